// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import "fmt"

// RenderMode selects how pending samples are handled while a render is in
// flight.
type RenderMode uint8

const (
	// MostRecentFrame keeps only the newest pending sample. Used for live
	// playback where latency matters more than completeness.
	MostRecentFrame RenderMode = iota
	// AllFrames renders every sample in arrival order. Used for export and
	// frame stepping.
	AllFrames
)

func (m RenderMode) String() string {
	switch m {
	case MostRecentFrame:
		return "most-recent-frame"
	case AllFrames:
		return "all-frames"
	default:
		return fmt.Sprintf("RenderMode(%d)", uint8(m))
	}
}

// ParseRenderMode parses the String form of a RenderMode.
func ParseRenderMode(s string) (RenderMode, error) {
	switch s {
	case "most-recent-frame", "latest", "":
		return MostRecentFrame, nil
	case "all-frames", "all":
		return AllFrames, nil
	default:
		return 0, fmt.Errorf("frameproc: unknown render mode %q", s)
	}
}

// RenderCmd is a command for the Scheduler. The set of implementations is
// closed.
type RenderCmd interface {
	renderCmd()
}

// ChangeRenderMode switches the pending-sample policy. It does not render.
type ChangeRenderMode struct{ Mode RenderMode }

// RenderFrame re-renders the current state without a new sample.
type RenderFrame struct{}

// RenderSample uploads a new decoded frame and renders it.
type RenderSample struct{ Frame *Frame }

// UpdateEffects replaces the color adjustment parameters.
type UpdateEffects struct{ Params EffectParameters }

// UpdateOutputResolution changes the output size.
type UpdateOutputResolution struct{ Width, Height uint32 }

// UpdateOrientation changes rotation and mirroring.
type UpdateOrientation struct{ Orientation Orientation }

// UpdateCrop changes the crop rectangle.
type UpdateCrop struct{ Crop Crop }

func (ChangeRenderMode) renderCmd()       {}
func (RenderFrame) renderCmd()            {}
func (RenderSample) renderCmd()           {}
func (UpdateEffects) renderCmd()          {}
func (UpdateOutputResolution) renderCmd() {}
func (UpdateOrientation) renderCmd()      {}
func (UpdateCrop) renderCmd()             {}

// derefCmd returns the value form of cmd. Pointer variants satisfy
// RenderCmd through their value receivers; a nil pointer yields nil.
func derefCmd(cmd RenderCmd) RenderCmd {
	switch c := cmd.(type) {
	case *ChangeRenderMode:
		if c != nil {
			return *c
		}
	case *RenderFrame:
		if c != nil {
			return *c
		}
	case *RenderSample:
		if c != nil {
			return *c
		}
	case *UpdateEffects:
		if c != nil {
			return *c
		}
	case *UpdateOutputResolution:
		if c != nil {
			return *c
		}
	case *UpdateOrientation:
		if c != nil {
			return *c
		}
	case *UpdateCrop:
		if c != nil {
			return *c
		}
	default:
		return cmd
	}
	return nil
}
