// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/framegraph"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var source bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Build the scene and print its passes, resources and shader library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			dev, err := openBackend(cfg.Backend)
			if err != nil {
				return err
			}
			defer dev.Close()

			s := newScene(cfg)
			g, err := framegraph.Build(
				framegraph.NewDeviceHandle(dev.Device, dev.Queue, gputypes.TextureFormatRGBA8Unorm),
				s.components(),
				framegraph.WithShaderSource(sceneWGSL),
				framegraph.WithViewport(cfg.Width, cfg.Height),
			)
			if err != nil {
				return err
			}
			defer g.Close()
			return printGraph(cmd.OutOrStdout(), g, source)
		},
	}
	cmd.Flags().BoolVar(&source, "source", false, "print the full generated WGSL")
	return cmd
}

func printGraph(w io.Writer, g *framegraph.Graph, source bool) error {
	lib := g.Library()
	vw, vh := g.Viewport()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "viewport\t%dx%d\n", vw, vh)
	fmt.Fprintf(tw, "surface\t%s\n", g.SurfaceFormat())
	fmt.Fprintf(tw, "entry points\t%s\n", strings.Join(lib.EntryPoints(), " "))

	fmt.Fprintln(tw, "\npasses")
	for i, p := range g.Passes() {
		fmt.Fprintf(tw, "  %d\t%s\n", i, strings.TrimPrefix(fmt.Sprintf("%T", p), "*framegraph."))
	}
	fmt.Fprintln(tw, "\nresources")
	for _, r := range g.Resources() {
		label := r.Label()
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(tw, "  #%d\t%s\tcreated=%t\n", r.ID(), label, r.Created())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\ndeclarations")
	for _, d := range lib.Declarations() {
		fmt.Fprint(w, indent(d))
	}
	if source {
		fmt.Fprintln(w, "\nsource")
		fmt.Fprint(w, lib.Source())
	}
	return nil
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString("  ")
		b.WriteString(l)
	}
	return b.String()
}
