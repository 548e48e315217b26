// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	_ "embed"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
)

//go:embed scene.wgsl
var sceneWGSL string

// scene is the demo graph: particles seeded once on the GPU, advanced every
// frame and drawn as points into an offscreen target.
type scene struct {
	particles  *framegraph.Buffer[[4]float32]
	params     *framegraph.Uniforms
	tint       *framegraph.Binding[[4]float32]
	background *framegraph.Binding[framegraph.Color]
	target     *framegraph.Texture

	last time.Time
}

func newScene(cfg Config) *scene {
	c := framegraph.Hex(cfg.Tint)
	return &scene{
		particles: framegraph.NewBuffer[[4]float32](cfg.Particles, framegraph.BufferLabel("particles")),
		params: framegraph.NewUniforms("Params",
			framegraph.Field("speed", framegraph.Float, 0.25),
			framegraph.Field("spread", framegraph.Float, 0.9),
			framegraph.Field("dt", framegraph.Float, 1.0/60),
			framegraph.Field("count", framegraph.Float, float32(cfg.Particles)),
		),
		tint:       framegraph.NewBinding([4]float32{c.R, c.G, c.B, c.A}).Named("vec4<f32>", "tint"),
		background: framegraph.NewBinding(framegraph.Hex(cfg.Background)),
		target: framegraph.NewTexture(
			framegraph.TextureLabel("target"),
			framegraph.WithFormat(framegraph.FixedFormat(gputypes.TextureFormatRGBA8Unorm)),
		),
	}
}

func (s *scene) components() []framegraph.Component {
	return []framegraph.Component{
		framegraph.NewRunOnHost(s.tick).Label("tick"),
		framegraph.NewGroup(
			framegraph.NewCompute("seed").
				Buffer("particles", s.particles, framegraph.FitGrid()).
				Uniforms(s.params, "params"),
		).Label("seed").Once(),
		framegraph.NewCompute("advance").
			Buffer("particles", s.particles, framegraph.FitGrid()).
			Uniforms(s.params, "params"),
		framegraph.NewClearRender().Texture(s.target).Color(s.background),
		framegraph.NewRender("vs_point", "fs_point").
			Label("points").
			Primitive(gputypes.PrimitiveTopologyPointList).
			VertexBuffer("points", s.particles, framegraph.Slot(2)).
			FragmentBytes(s.tint).
			VertexCount(framegraph.Constant(s.particles.Len())).
			ColorAttachment(0, framegraph.ColorAttachment{
				Texture: s.target,
				Load:    framegraph.Constant(gputypes.LoadOpLoad),
			}),
	}
}

// tick feeds the wall-clock frame time to the simulation.
func (s *scene) tick(*framegraph.FrameContext) error {
	now := time.Now()
	if !s.last.IsZero() {
		dt := float32(now.Sub(s.last).Seconds())
		s.params.SetFloat("dt", min(dt, 0.1))
	}
	s.last = now
	return nil
}
