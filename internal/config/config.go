// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads the frameproc command configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/frameproc"
)

// Config is the full configuration of the frameproc command.
type Config struct {
	// Renderer is "gpu", "software" or "auto" (GPU with software fallback).
	Renderer string `yaml:"renderer"`

	GPU       GPUConfig       `yaml:"gpu"`
	Output    OutputConfig    `yaml:"output"`
	Transform TransformConfig `yaml:"transform"`
	Effects   EffectsConfig   `yaml:"effects"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// GPUConfig selects and tunes the GPU device.
type GPUConfig struct {
	Backend         string `yaml:"backend"`
	Adapter         string `yaml:"adapter"`
	Timestamps      bool   `yaml:"timestamps"`
	SubmitTimeoutMs int    `yaml:"submit_timeout_ms"`
	PollIntervalUs  int    `yaml:"poll_interval_us"`
}

// SubmitTimeout returns the submission timeout as a duration.
func (g GPUConfig) SubmitTimeout() time.Duration {
	return time.Duration(g.SubmitTimeoutMs) * time.Millisecond
}

// PollInterval returns the completion poll interval as a duration.
func (g GPUConfig) PollInterval() time.Duration {
	return time.Duration(g.PollIntervalUs) * time.Microsecond
}

// OutputConfig is the output resolution. Zero renders at source size.
type OutputConfig struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// TransformConfig holds orientation and crop.
type TransformConfig struct {
	Rotate    int        `yaml:"rotate"`
	BaseAngle int        `yaml:"base_angle"`
	Mirror    bool       `yaml:"mirror"`
	Crop      CropConfig `yaml:"crop"`
}

// CropConfig is a crop rectangle in fractions of the rotated frame.
type CropConfig struct {
	Left   float64 `yaml:"left"`
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
}

// EffectsConfig holds the color adjustments.
type EffectsConfig struct {
	Contrast   float32 `yaml:"contrast"`
	Brightness float32 `yaml:"brightness"`
	Hue        float32 `yaml:"hue"`
	Saturation float32 `yaml:"saturation"`
}

// SchedulerConfig tunes the render scheduler.
type SchedulerConfig struct {
	Mode            string `yaml:"mode"`
	ProfileInterval int    `yaml:"profile_interval"`
	ImageBuffer     int    `yaml:"image_buffer"`
}

// LogConfig controls the command's log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "auto", "text" or "json"
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Renderer: "auto",
		GPU: GPUConfig{
			Backend:         "vulkan",
			Adapter:         "discrete",
			Timestamps:      true,
			SubmitTimeoutMs: 2000,
			PollIntervalUs:  200,
		},
		Transform: TransformConfig{
			Crop: CropConfig{Right: 1, Bottom: 1},
		},
		Effects: EffectsConfig{Contrast: 1},
		Scheduler: SchedulerConfig{
			Mode:            frameproc.MostRecentFrame.String(),
			ProfileInterval: frameproc.DefaultProfileInterval,
			ImageBuffer:     1,
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	switch c.Renderer {
	case "auto", "gpu", "software":
	default:
		return fmt.Errorf("unknown renderer %q", c.Renderer)
	}
	if (c.Output.Width == 0) != (c.Output.Height == 0) {
		return fmt.Errorf("%w: output %dx%d", frameproc.ErrInvalidResolution, c.Output.Width, c.Output.Height)
	}
	if err := c.Orientation().Validate(); err != nil {
		return err
	}
	if err := c.Crop().Validate(); err != nil {
		return err
	}
	if err := c.EffectParameters().Validate(); err != nil {
		return err
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if c.Scheduler.ProfileInterval < 0 || c.Scheduler.ImageBuffer < 0 {
		return fmt.Errorf("negative scheduler setting: %+v", c.Scheduler)
	}
	if c.GPU.SubmitTimeoutMs < 0 || c.GPU.PollIntervalUs < 0 {
		return fmt.Errorf("negative gpu timing: %+v", c.GPU)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Orientation returns the configured orientation.
func (c Config) Orientation() frameproc.Orientation {
	return frameproc.Orientation{
		Angle:     c.Transform.Rotate,
		Mirrored:  c.Transform.Mirror,
		BaseAngle: c.Transform.BaseAngle,
	}
}

// Crop returns the configured crop.
func (c Config) Crop() frameproc.Crop {
	k := c.Transform.Crop
	return frameproc.Crop{Left: k.Left, Top: k.Top, Right: k.Right, Bottom: k.Bottom}
}

// EffectParameters returns the configured color adjustments.
func (c Config) EffectParameters() frameproc.EffectParameters {
	return frameproc.EffectParameters{
		Contrast:   c.Effects.Contrast,
		Brightness: c.Effects.Brightness,
		Hue:        c.Effects.Hue,
		Saturation: c.Effects.Saturation,
	}
}

// Mode returns the configured render mode.
func (c Config) Mode() (frameproc.RenderMode, error) {
	return frameproc.ParseRenderMode(c.Scheduler.Mode)
}
