// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/internal/gpu"
)

type runOptions struct {
	cfg           Config
	watch         bool
	async         bool
	snapshotWidth int
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{cfg: DefaultConfig()}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the particle scene for a number of frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			o.override(cmd, &cfg)
			if err := cfg.validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return o.run(ctx, cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.cfg.Backend, "backend", o.cfg.Backend, fmt.Sprintf("GPU backend %v", backendNames()))
	f.IntVar(&o.cfg.Width, "width", o.cfg.Width, "viewport width")
	f.IntVar(&o.cfg.Height, "height", o.cfg.Height, "viewport height")
	f.IntVarP(&o.cfg.Frames, "frames", "n", o.cfg.Frames, "frames to draw, 0 runs until interrupted")
	f.IntVar(&o.cfg.Particles, "particles", o.cfg.Particles, "particle count")
	f.StringVar(&o.cfg.Params, "params", "", "parameter document (.json, .yaml, .toml)")
	f.StringVarP(&o.cfg.Snapshot, "snapshot", "o", "", "write the last frame to an image (.png, .tiff, .bmp)")
	f.StringVar(&o.cfg.Shader, "shader", "", "WGSL file replacing the built-in scene shader")
	f.IntVar(&o.snapshotWidth, "snapshot-width", 0, "scale the snapshot to this width")
	f.BoolVar(&o.watch, "watch", false, "reload --params when the file changes")
	f.BoolVar(&o.async, "async", false, "overlap frame encoding with GPU execution")
	return cmd
}

// override copies explicitly set flags over the config file values.
func (o *runOptions) override(cmd *cobra.Command, cfg *Config) {
	changed := cmd.Flags().Changed
	if changed("backend") {
		cfg.Backend = o.cfg.Backend
	}
	if changed("width") {
		cfg.Width = o.cfg.Width
	}
	if changed("height") {
		cfg.Height = o.cfg.Height
	}
	if changed("frames") {
		cfg.Frames = o.cfg.Frames
	}
	if changed("particles") {
		cfg.Particles = o.cfg.Particles
	}
	if changed("params") {
		cfg.Params = o.cfg.Params
	}
	if changed("snapshot") {
		cfg.Snapshot = o.cfg.Snapshot
	}
	if changed("shader") {
		cfg.Shader = o.cfg.Shader
	}
}

func (o *runOptions) run(ctx context.Context, cmd *cobra.Command, cfg Config) error {
	dev, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}
	defer dev.Close()

	s := newScene(cfg)
	if cfg.Params != "" {
		if err := s.load(cfg.Params); err != nil {
			return err
		}
	}
	shader := framegraph.WithShaderSource(sceneWGSL)
	if cfg.Shader != "" {
		shader = framegraph.WithShaderFiles(osfs.New(filepath.Dir(cfg.Shader)), filepath.Base(cfg.Shader))
	}

	g, err := framegraph.Build(
		framegraph.NewDeviceHandle(dev.Device, dev.Queue, gputypes.TextureFormatRGBA8Unorm),
		s.components(),
		shader,
		framegraph.WithViewport(cfg.Width, cfg.Height),
		framegraph.WithAsync(o.async),
	)
	if err != nil {
		return err
	}
	defer g.Close()

	var reload <-chan string
	if o.watch && cfg.Params != "" {
		w, err := watchFile(cfg.Params)
		if err != nil {
			return err
		}
		defer w.Close()
		reload = w.changes
	}

	for i := 0; cfg.Frames == 0 || i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			framegraph.Logger().Info("framegraph: interrupted", "frames", g.Frames())
			return o.finish(context.WithoutCancel(ctx), cmd, dev, g, s, cfg)
		case path := <-reload:
			if err := s.load(path); err != nil {
				framegraph.Logger().Warn("framegraph: params reload failed", "path", path, "err", err)
			}
		default:
		}
		if err := g.Draw(ctx, nil); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
	return o.finish(ctx, cmd, dev, g, s, cfg)
}

// finish reports the frame count and writes the snapshot, if requested.
func (o *runOptions) finish(ctx context.Context, cmd *cobra.Command, dev *gpu.Device, g *framegraph.Graph, s *scene, cfg Config) error {
	fmt.Fprintf(cmd.OutOrStdout(), "drew %d frames on %s\n", g.Frames(), cfg.Backend)
	if cfg.Snapshot == "" {
		return nil
	}
	img, err := framegraph.Snapshot(ctx, dev.Device, dev.Queue, s.target)
	if err != nil {
		return err
	}
	var out image.Image = img
	if o.snapshotWidth > 0 {
		b := img.Bounds()
		out = framegraph.ScaleImage(img, o.snapshotWidth, b.Dy()*o.snapshotWidth/b.Dx())
	}
	f, err := os.Create(cfg.Snapshot)
	if err != nil {
		return err
	}
	if err := framegraph.EncodeImage(f, cfg.Snapshot, out); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.Snapshot)
	return nil
}

// load applies a parameter document to the scene uniforms. The particle
// count is owned by the buffer and never taken from the document.
func (s *scene) load(path string) error {
	f, err := framegraph.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	n, err := s.params.Import(data, f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.params.SetFloat("count", float32(s.particles.Len()))
	framegraph.Logger().Info("framegraph: params loaded", "path", path, "fields", n)
	return nil
}
