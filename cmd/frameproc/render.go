// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/frameproc"
	"github.com/gogpu/frameproc/gpu"
	"github.com/gogpu/frameproc/internal/config"
	"github.com/gogpu/frameproc/internal/profile"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "position and color-correct a still frame",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "input image (png, jpeg, gif, bmp, tiff, webp)", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output PNG", Required: true},
			&cli.UintFlag{Name: "width", Usage: "output width"},
			&cli.UintFlag{Name: "height", Usage: "output height"},
			&cli.IntFlag{Name: "rotate", Usage: "clockwise rotation in degrees (multiple of 90)"},
			&cli.IntFlag{Name: "base-angle", Usage: "container rotation in degrees"},
			&cli.BoolFlag{Name: "mirror", Usage: "mirror horizontally"},
			&cli.StringFlag{Name: "crop", Usage: "crop fractions left,top,right,bottom"},
			&cli.Float64Flag{Name: "contrast", Usage: "contrast factor [0,4]"},
			&cli.Float64Flag{Name: "brightness", Usage: "brightness offset [-1,1]"},
			&cli.Float64Flag{Name: "hue", Usage: "hue rotation in degrees [-180,180]"},
			&cli.Float64Flag{Name: "saturation", Usage: "saturation offset [-1,1]"},
			&cli.StringFlag{Name: "renderer", Usage: "auto, gpu or software"},
			&cli.StringFlag{Name: "backend", Usage: "vulkan, metal, dx12, gles or noop"},
			&cli.StringFlag{Name: "adapter", Usage: "discrete, integrated or any"},
			&cli.StringFlag{Name: "mode", Usage: "most-recent-frame or all-frames"},
			&cli.IntFlag{Name: "frames", Value: 1, Usage: "render the frame N times and report timings"},
		},
		Action: runRender,
	}
}

func runRender(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := applyRenderFlags(c, &cfg); err != nil {
		return err
	}
	log, err := setupLogger(c, cfg)
	if err != nil {
		return err
	}

	src, format, err := decodeFile(c.String("in"))
	if err != nil {
		return err
	}
	frame := frameproc.FrameFromImage(src)
	log.Info("source decoded", "path", c.String("in"), "format", format, "size", frame.Size.String())

	r, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	mode, err := cfg.Mode()
	if err != nil {
		r.Close()
		return err
	}
	s := frameproc.NewScheduler(r, mode,
		frameproc.WithOwnedRenderer(),
		frameproc.WithProfileInterval(cfg.Scheduler.ProfileInterval),
		frameproc.WithImageBuffer(cfg.Scheduler.ImageBuffer),
		frameproc.WithLogger(log),
	)
	defer s.Close()

	setup := []frameproc.RenderCmd{
		frameproc.UpdateOrientation{Orientation: cfg.Orientation()},
		frameproc.UpdateCrop{Crop: cfg.Crop()},
		frameproc.UpdateEffects{Params: cfg.EffectParameters()},
	}
	if cfg.Output.Width > 0 {
		setup = append(setup, frameproc.UpdateOutputResolution{Width: cfg.Output.Width, Height: cfg.Output.Height})
	}
	if err := s.Send(setup...); err != nil {
		return err
	}

	frames := c.Int("frames")
	if frames < 1 {
		frames = 1
	}
	var last *image.RGBA
	for i := 0; i < frames; i++ {
		f := *frame
		f.Seq = uint64(i)
		if err := s.Send(frameproc.RenderSample{Frame: &f}); err != nil {
			return err
		}
		if last, err = nextImage(c, s); err != nil {
			return err
		}
	}
	drainProfiles(s)

	if err := writePNG(c.String("out"), last); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s %dx%d rendered=%d dropped=%d %s\n",
		c.String("out"), last.Bounds().Dx(), last.Bounds().Dy(), frames, s.Stats().Dropped, profile.Summary(r.Timings()))
	return nil
}

// nextImage waits for the next image, a scheduler failure or cancellation.
func nextImage(c *cli.Context, s *frameproc.Scheduler) (*image.RGBA, error) {
	for {
		select {
		case img, ok := <-s.Images():
			if !ok {
				if err := s.Err(); err != nil {
					return nil, err
				}
				return nil, frameproc.ErrClosed
			}
			return img, nil
		case line := <-s.Profiles():
			fmt.Fprintln(c.App.Writer, line)
		case <-c.Context.Done():
			return nil, c.Context.Err()
		}
	}
}

func drainProfiles(s *frameproc.Scheduler) {
	for {
		select {
		case <-s.Profiles():
		default:
			return
		}
	}
}

// newRenderer builds the renderer named by cfg.Renderer.
func newRenderer(cfg config.Config) (frameproc.Renderer, error) {
	if cfg.Renderer == "software" {
		return frameproc.NewSoftwareRenderer(cfg.Output.Width, cfg.Output.Height), nil
	}
	gcfg, err := gpuConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Renderer == "auto" {
		return gpu.NewRendererOrSoftware(gcfg), nil
	}
	r, err := gpu.NewRenderer(gcfg)
	if err != nil {
		return nil, fmt.Errorf("gpu renderer: %w", err)
	}
	return r, nil
}

func gpuConfig(cfg config.Config) (gpu.Config, error) {
	g := gpu.DefaultConfig()
	backend, err := gpu.ParseBackend(cfg.GPU.Backend)
	if err != nil {
		return g, err
	}
	adapter, err := gpu.ParseAdapterPreference(cfg.GPU.Adapter)
	if err != nil {
		return g, err
	}
	g.Backend = backend
	g.Adapter = adapter
	g.Timestamps = cfg.GPU.Timestamps
	g.SubmitTimeout = cfg.GPU.SubmitTimeout()
	if d := cfg.GPU.PollInterval(); d > 0 {
		g.PollInterval = d
	}
	g.Width, g.Height = cfg.Output.Width, cfg.Output.Height
	return g, nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Defaults(), nil
	}
	return config.LoadFromFile(path)
}

func setupLogger(c *cli.Context, cfg config.Config) (*slog.Logger, error) {
	level, format := cfg.Log.Level, cfg.Log.Format
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	log, err := newLogger(os.Stderr, level, format)
	if err != nil {
		return nil, err
	}
	frameproc.SetLogger(log)
	return log, nil
}

// applyRenderFlags overrides cfg with explicitly set flags and validates
// the result.
func applyRenderFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("width") || c.IsSet("height") {
		cfg.Output.Width = uint32(c.Uint("width"))
		cfg.Output.Height = uint32(c.Uint("height"))
	}
	if c.IsSet("rotate") {
		cfg.Transform.Rotate = c.Int("rotate")
	}
	if c.IsSet("base-angle") {
		cfg.Transform.BaseAngle = c.Int("base-angle")
	}
	if c.IsSet("mirror") {
		cfg.Transform.Mirror = c.Bool("mirror")
	}
	if c.IsSet("crop") {
		crop, err := parseCrop(c.String("crop"))
		if err != nil {
			return err
		}
		cfg.Transform.Crop = config.CropConfig{Left: crop.Left, Top: crop.Top, Right: crop.Right, Bottom: crop.Bottom}
	}
	if c.IsSet("contrast") {
		cfg.Effects.Contrast = float32(c.Float64("contrast"))
	}
	if c.IsSet("brightness") {
		cfg.Effects.Brightness = float32(c.Float64("brightness"))
	}
	if c.IsSet("hue") {
		cfg.Effects.Hue = float32(c.Float64("hue"))
	}
	if c.IsSet("saturation") {
		cfg.Effects.Saturation = float32(c.Float64("saturation"))
	}
	if c.IsSet("renderer") {
		cfg.Renderer = c.String("renderer")
	}
	if c.IsSet("backend") {
		cfg.GPU.Backend = c.String("backend")
	}
	if c.IsSet("adapter") {
		cfg.GPU.Adapter = c.String("adapter")
	}
	if c.IsSet("mode") {
		cfg.Scheduler.Mode = c.String("mode")
	}
	return cfg.Validate()
}

// parseCrop parses "left,top,right,bottom".
func parseCrop(s string) (frameproc.Crop, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return frameproc.Crop{}, fmt.Errorf("%w: want left,top,right,bottom, got %q", frameproc.ErrInvalidCrop, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return frameproc.Crop{}, errors.Join(frameproc.ErrInvalidCrop, err)
		}
		v[i] = f
	}
	crop := frameproc.Crop{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
	return crop, crop.Validate()
}
