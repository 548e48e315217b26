// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
)

// Config describes the demo scene and how to run it.
type Config struct {
	Backend    string `toml:"backend"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Frames     int    `toml:"frames"`
	Particles  int    `toml:"particles"`
	Background string `toml:"background"`
	Tint       string `toml:"tint"`

	// Params is a JSON, YAML or TOML document applied to the scene uniforms.
	Params string `toml:"params"`

	// Snapshot is an image path written after the last frame.
	Snapshot string `toml:"snapshot"`

	// Shader replaces the embedded scene shader.
	Shader string `toml:"shader"`
}

// DefaultConfig returns the config used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend:    "noop",
		Width:      256,
		Height:     256,
		Frames:     1,
		Particles:  1024,
		Background: "#101018",
		Tint:       "#ffcc33",
	}
}

// ReadConfig decodes a TOML config over the defaults.
func ReadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("config: size %dx%d must be positive", c.Width, c.Height)
	case c.Frames < 0:
		return fmt.Errorf("config: frames %d is negative", c.Frames)
	case c.Particles <= 0:
		return fmt.Errorf("config: particles %d must be positive", c.Particles)
	}
	return nil
}
