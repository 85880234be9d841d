// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/urfave/cli/v2"
)

func testcardCommand() *cli.Command {
	return &cli.Command{
		Name:  "testcard",
		Usage: "write a synthetic source frame with color bars and an orientation marker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output PNG", Required: true},
			&cli.IntFlag{Name: "width", Value: 1920, Usage: "frame width"},
			&cli.IntFlag{Name: "height", Value: 1080, Usage: "frame height"},
			&cli.StringFlag{Name: "label", Value: "frameproc", Usage: "text drawn in the center"},
		},
		Action: func(c *cli.Context) error {
			w, h := c.Int("width"), c.Int("height")
			if w < 16 || h < 16 {
				return fmt.Errorf("testcard: size %dx%d too small", w, h)
			}
			img := drawTestCard(w, h, c.String("label"))
			if err := writePNG(c.String("out"), img); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s %dx%d\n", c.String("out"), w, h)
			return nil
		},
	}
}

// barColors are the SMPTE-style bars, left to right.
var barColors = [][3]float64{
	{0.75, 0.75, 0.75},
	{0.75, 0.75, 0},
	{0, 0.75, 0.75},
	{0, 0.75, 0},
	{0.75, 0, 0.75},
	{0.75, 0, 0},
	{0, 0, 0.75},
}

// drawTestCard renders color bars, a grid and a red marker in the top-left
// corner so rotation and mirroring are visible in the output.
func drawTestCard(w, h int, label string) image.Image {
	dc := gg.NewContext(w, h)
	fw, fh := float64(w), float64(h)

	barW := fw / float64(len(barColors))
	for i, c := range barColors {
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(float64(i)*barW, 0, barW+1, fh*2/3)
		dc.Fill()
	}

	// Luma ramp along the bottom third.
	steps := 16
	stepW := fw / float64(steps)
	for i := 0; i < steps; i++ {
		v := float64(i) / float64(steps-1)
		dc.SetRGB(v, v, v)
		dc.DrawRectangle(float64(i)*stepW, fh*2/3, stepW+1, fh/3)
		dc.Fill()
	}

	dc.SetRGBA(1, 1, 1, 0.5)
	dc.SetLineWidth(1)
	grid := fh / 8
	for x := grid; x < fw; x += grid {
		dc.DrawLine(x, 0, x, fh)
	}
	for y := grid; y < fh; y += grid {
		dc.DrawLine(0, y, fw, y)
	}
	dc.Stroke()

	marker := fh / 6
	dc.SetRGB(1, 0, 0)
	dc.MoveTo(0, 0)
	dc.LineTo(marker, 0)
	dc.LineTo(0, marker)
	dc.ClosePath()
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(fw/2-fw/6, fh/2-fh/16, fw/3, fh/8)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%s %dx%d", label, w, h), fw/2, fh/2, 0.5, 0.5)

	return dc.Image()
}
