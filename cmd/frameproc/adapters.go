// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/frameproc/gpu"
)

func adaptersCommand() *cli.Command {
	return &cli.Command{
		Name:  "adapters",
		Usage: "list the GPU adapters of a backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Value: "vulkan", Usage: "vulkan, metal, dx12, gles or noop"},
		},
		Action: func(c *cli.Context) error {
			backend, err := gpu.ParseBackend(c.String("backend"))
			if err != nil {
				return err
			}
			cfg := gpu.DefaultConfig()
			cfg.Backend = backend
			list, err := gpu.Adapters(cfg)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return gpu.ErrNoAdapter
			}
			for i, a := range list {
				ts := "no"
				if a.Timestamps {
					ts = "yes"
				}
				fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%s\ttimestamps=%s\n", i, a.Backend, a.DeviceType, a.Name, ts)
			}
			return nil
		},
	}
}
