// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/shader"
)

type computePass struct {
	env       *passEnv
	c         Compute
	label     string
	args      *argSet
	pipeline  hal.ComputePipeline
	workgroup [3]uint32
}

func newComputePass(env *passEnv, c Compute) (*computePass, error) {
	label := c.label
	if label == "" {
		label = c.function
	}
	args, err := newArgSet(label, c.args)
	if err != nil {
		return nil, err
	}
	return &computePass{env: env, c: c, label: label, args: args}, nil
}

func (p *computePass) resources() []Resource { return p.args.resources() }

func (p *computePass) declare(surface gputypes.TextureFormat) (shader.Block, string, error) {
	b, err := p.args.block(surface)
	return b, p.c.source, err
}

// Setup creates the bind group layouts and the compute pipeline.
func (p *computePass) Setup(lib *Library) error {
	ep, err := lib.entryPoint(p.c.function, shader.StageCompute)
	if err != nil {
		return err
	}
	if err := p.args.setup(p.env, computeVisibility); err != nil {
		return err
	}
	pipeline, err := p.env.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   p.label,
		Layout:  p.args.layout.Pipeline(),
		Compute: hal.ComputeState{Module: lib.shader, EntryPoint: ep.Name},
	})
	if err != nil {
		p.args.destroy()
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	p.pipeline = pipeline
	p.workgroup = ep.Workgroup
	Logger().Debug("framegraph: compute pipeline created",
		"label", p.label, "workgroup", ep.Workgroup, "args", len(p.args.args))
	return nil
}

// Prerun checks that every argument has an allocation.
func (p *computePass) Prerun(*FrameContext) error { return p.args.check() }

// Encode uploads byte arguments, binds and dispatches.
func (p *computePass) Encode(fc *FrameContext) error {
	if err := p.args.upload(fc); err != nil {
		return err
	}
	groups, err := p.args.bind(fc)
	if err != nil {
		return err
	}
	grid := p.grid()
	if grid[0] == 0 || grid[1] == 0 || grid[2] == 0 {
		Logger().Debug("framegraph: empty dispatch skipped", "label", p.label)
		return nil
	}

	cp := fc.Encoder().BeginComputePass(&hal.ComputePassDescriptor{Label: p.label})
	cp.SetPipeline(p.pipeline)
	for i, g := range groups {
		cp.SetBindGroup(uint32(i), g, nil) //nolint:gosec // at most MaxGroups
	}
	cp.Dispatch(grid[0], grid[1], grid[2])
	cp.End()
	return nil
}

// grid returns the dispatch size in workgroups: the explicit grid if set,
// else the grid-fit argument's extent divided by the workgroup size,
// rounded up, else a single workgroup.
func (p *computePass) grid() [3]uint32 {
	if p.c.grid != nil {
		g := p.c.grid.Get()
		return [3]uint32{nonNegative(g[0]), nonNegative(g[1]), nonNegative(g[2])}
	}
	a, ok := p.args.gridArg()
	if !ok {
		return [3]uint32{1, 1, 1}
	}
	extent := [3]int{1, 1, 1}
	switch {
	case a.texture != nil:
		extent[0], extent[1] = a.texture.Size()
	case a.buffer != nil:
		extent[0] = a.buffer.Len()
	}
	var out [3]uint32
	for i := range out {
		wg := max(p.workgroup[i], 1)
		out[i] = (nonNegative(extent[i]) + wg - 1) / wg
	}
	return out
}

func nonNegative(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n) //nolint:gosec // checked non-negative
}

func (p *computePass) destroy() {
	if p.pipeline != nil {
		p.env.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	p.args.destroy()
}
