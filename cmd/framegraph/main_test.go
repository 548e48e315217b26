// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "off"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(`
backend = "software"
width = 64
frames = 3
background = "#ff0000"
`))
	require.NoError(t, err)
	assert.Equal(t, "software", cfg.Backend)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, DefaultConfig().Height, cfg.Height)
	assert.Equal(t, 3, cfg.Frames)
	assert.Equal(t, "#ff0000", cfg.Background)
	assert.Equal(t, DefaultConfig().Particles, cfg.Particles)
}

func TestReadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown field", `colour = "red"`},
		{"bad syntax", `width = `},
		{"zero width", `width = 0`},
		{"negative frames", `frames = -1`},
		{"no particles", `particles = 0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConfig(strings.NewReader(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"off":   levelOff,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseLevel("loud")
	assert.Error(t, err)
}

func TestOpenBackend(t *testing.T) {
	dev, err := openBackend("noop")
	require.NoError(t, err)
	dev.Close()

	_, err = openBackend("metal9")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestParamsExport(t *testing.T) {
	out, err := execute(t, "params", "export")
	require.NoError(t, err)
	assert.Contains(t, out, `"speed"`)
	assert.Contains(t, out, "0.25")
	assert.Contains(t, out, "1024")

	path := filepath.Join(t.TempDir(), "params.yaml")
	_, err = execute(t, "params", "export", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "spread: 0.9")

	_, err = execute(t, "params", "export", "--format", "ini")
	assert.Error(t, err)
}

func TestParamsImport(t *testing.T) {
	path := writeFile(t, "params.toml", "speed = 2.0\ncount = 5.0\nunknown = 1.0\n")
	out, err := execute(t, "params", "import", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "speed: 2")
	assert.Contains(t, out, "count: 1024")
}

func TestParamsImportJSONPath(t *testing.T) {
	path := writeFile(t, "scenes.json", `{"scenes": [{"params": {"spread": 0.5}}]}`)
	out, err := execute(t, "params", "import", path, "--jsonpath", "$.scenes[0].params")
	require.NoError(t, err)
	assert.Contains(t, out, `"spread"`)
	assert.NotContains(t, out, "0.9")

	_, err = execute(t, "params", "import", path, "--jsonpath", "$.missing")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "seed advance vs_point fs_point")
	assert.Contains(t, out, "computePass")
	assert.Contains(t, out, "renderPass")
	assert.Contains(t, out, "particles")
	assert.Contains(t, out, "var<storage, read_write> particles: array<vec4<f32>>;")
	assert.Contains(t, out, "var<uniform> tint: vec4<f32>;")
}

func TestRunSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	out, err := execute(t, "run", "--frames", "3", "--width", "32", "--height", "16", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "drew 3 frames on noop")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestRunScaledSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	_, err := execute(t, "run", "--width", "32", "--height", "16", "--snapshot", path, "--snapshot-width", "8")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func TestRunConfigOverride(t *testing.T) {
	cfg := writeFile(t, "scene.toml", "frames = 2\nparticles = 100\n")
	out, err := execute(t, "--config", cfg, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "drew 2 frames")

	out, err = execute(t, "--config", cfg, "run", "--frames", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "drew 4 frames")
}

func TestRunErrors(t *testing.T) {
	_, err := execute(t, "run", "--backend", "nope")
	assert.ErrorContains(t, err, "unknown backend")

	_, err = execute(t, "run", "--width", "0")
	assert.Error(t, err)

	_, err = execute(t, "run", "--params", writeFile(t, "p.ini", "speed=1"))
	assert.Error(t, err)

	_, err = execute(t, "run", "--shader", writeFile(t, "broken.wgsl", "fn seed( {"))
	assert.Error(t, err)
}
