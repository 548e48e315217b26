// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/internal/shader"
)

type groupPass struct {
	g        Group
	label    string
	children []graphPass
	active   *Binding[bool]
}

func newGroupPass(env *passEnv, g Group) (*groupPass, error) {
	p := &groupPass{g: g, label: labelOr(g.label, "group"), active: g.active}
	if p.active == nil {
		p.active = NewBinding(true)
	}
	for i, c := range g.children {
		child, err := newPass(env, c)
		if err != nil {
			p.destroy()
			return nil, fmt.Errorf("%s[%d]: %w", p.label, i, err)
		}
		p.children = append(p.children, child)
	}
	return p, nil
}

// resources is empty; the builder walks the children itself.
func (p *groupPass) resources() []Resource { return nil }

func (p *groupPass) declare(gputypes.TextureFormat) (shader.Block, string, error) {
	return shader.Block{}, "", nil
}

func (p *groupPass) Setup(lib *Library) error {
	for i, c := range p.children {
		if err := c.Setup(lib); err != nil {
			return fmt.Errorf("%s[%d]: %w", p.label, i, err)
		}
	}
	return nil
}

func (p *groupPass) Prerun(fc *FrameContext) error {
	for _, c := range p.children {
		if err := c.Prerun(fc); err != nil {
			return err
		}
	}
	return nil
}

// iterations evaluates the group for one frame.
func (p *groupPass) iterations() int {
	active := p.active.Get()
	if p.g.once {
		p.active.Set(false)
	}
	if !active {
		return 0
	}
	return max(optional(p.g.repeat, 1), 0)
}

// Encode encodes the children in order, repeat times.
func (p *groupPass) Encode(fc *FrameContext) error {
	n := p.iterations()
	for range n {
		for _, c := range p.children {
			if err := c.Encode(fc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *groupPass) destroy() {
	for _, c := range p.children {
		c.destroy()
	}
}

type hostPass struct {
	h RunOnHost
}

func (p *hostPass) resources() []Resource { return nil }

func (p *hostPass) declare(gputypes.TextureFormat) (shader.Block, string, error) {
	return shader.Block{}, "", nil
}

func (p *hostPass) Setup(*Library) error       { return nil }
func (p *hostPass) Prerun(*FrameContext) error { return nil }
func (p *hostPass) destroy()                   {}

// Encode calls the host function.
func (p *hostPass) Encode(fc *FrameContext) error {
	if p.h.fn == nil {
		return nil
	}
	if err := p.h.fn(fc); err != nil {
		return fmt.Errorf("%s: %w", labelOr(p.h.label, "host"), err)
	}
	return nil
}
