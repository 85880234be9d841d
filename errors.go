// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import "errors"

var (
	// ErrNoFrame is returned by RenderFrame before any sample was uploaded.
	ErrNoFrame = errors.New("frameproc: no frame uploaded")

	// ErrClosed is returned by operations on a closed scheduler or renderer.
	ErrClosed = errors.New("frameproc: closed")

	// ErrInvalidFrame reports a sample that cannot be uploaded.
	ErrInvalidFrame = errors.New("frameproc: invalid frame")

	// ErrInvalidCrop reports a crop rectangle outside [0,1] or empty.
	ErrInvalidCrop = errors.New("frameproc: invalid crop")

	// ErrInvalidEffects reports out-of-range effect parameters.
	ErrInvalidEffects = errors.New("frameproc: invalid effect parameters")

	// ErrInvalidResolution reports a zero output resolution.
	ErrInvalidResolution = errors.New("frameproc: invalid output resolution")
)
