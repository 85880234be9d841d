// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// Embedded WGSL shader sources.

//go:embed shaders/positioning.wgsl
var positioningShaderSource string

//go:embed shaders/effects.wgsl
var effectsShaderSource string

// Compute workgroup width shared by both shaders.
const workgroupWidth = 64

// validateShader runs the WGSL front end (parse, lower, validate) over
// source. Backends compile the WGSL themselves; this catches shader errors
// with a readable message before pipeline creation.
func validateShader(name, source string) error {
	if source == "" {
		return fmt.Errorf("gpu: %s shader source is empty", name)
	}
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("gpu: parse %s shader: %w", name, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("gpu: lower %s shader: %w", name, err)
	}
	errs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("gpu: validate %s shader: %w", name, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("gpu: validate %s shader: %w (%d issues)", name, errs[0], len(errs))
	}
	return nil
}

// dispatchSize returns the workgroup counts covering a w×h grid.
func dispatchSize(w, h uint32) (x, y, z uint32) {
	return (w + workgroupWidth - 1) / workgroupWidth, h, 1
}
