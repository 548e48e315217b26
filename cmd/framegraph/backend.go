// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan backend

	"github.com/gogpu/framegraph/internal/gpu"
)

// backends maps --backend names to their hal implementation. The noop and
// software backends both report BackendEmpty, so they are built directly
// instead of going through the registry.
var backends = map[string]func() (hal.Backend, error){
	"noop":     func() (hal.Backend, error) { return noop.API{}, nil },
	"software": func() (hal.Backend, error) { return software.API{}, nil },
	"vulkan":   func() (hal.Backend, error) { return registered(gputypes.BackendVulkan) },
}

func registered(b gputypes.Backend) (hal.Backend, error) {
	backend, ok := hal.GetBackend(b)
	if !ok {
		return nil, fmt.Errorf("%s backend not available", b)
	}
	return backend, nil
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func openBackend(name string) (*gpu.Device, error) {
	open, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (want one of %v)", name, backendNames())
	}
	backend, err := open()
	if err != nil {
		return nil, err
	}
	dev, err := gpu.OpenDevice(backend)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return dev, nil
}
