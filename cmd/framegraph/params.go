// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/framegraph"
)

func newParamsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Export or validate scene parameter documents",
	}
	cmd.AddCommand(newParamsExportCmd(root), newParamsImportCmd(root))
	return cmd
}

func parseFormat(s string) (framegraph.Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return framegraph.FormatJSON, nil
	case "yaml", "yml":
		return framegraph.FormatYAML, nil
	case "toml":
		return framegraph.FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %q", framegraph.ErrUnknownFormat, s)
}

// sceneParams returns the scene uniforms with the config's parameter
// document applied.
func sceneParams(root *rootOptions) (*scene, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	s := newScene(cfg)
	if cfg.Params != "" {
		if err := s.load(cfg.Params); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newParamsExportCmd(root *rootOptions) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current scene parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format)
			if output != "" && !cmd.Flags().Changed("format") {
				f, err = framegraph.FormatFromPath(output)
			}
			if err != nil {
				return err
			}
			s, err := sceneParams(root)
			if err != nil {
				return err
			}
			data, err := s.params.Export(f)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o600)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "document format (json, yaml, toml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, format taken from its extension")
	return cmd
}

func newParamsImportCmd(root *rootOptions) *cobra.Command {
	var format, path string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Apply a parameter document to the scene and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := parseFormat(format)
			if err != nil {
				return err
			}
			s, err := sceneParams(root)
			if err != nil {
				return err
			}
			var n int
			if path != "" {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				n, err = s.params.ImportJSONPath(data, path)
				if err != nil {
					return err
				}
				s.params.SetFloat("count", float32(s.particles.Len()))
			} else if err := s.load(args[0]); err != nil {
				return err
			}
			data, err := s.params.Export(out)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "applied %d fields\n", n)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml, toml)")
	cmd.Flags().StringVar(&path, "jsonpath", "", "select the parameter object from a JSON document, e.g. $.scenes[0]")
	return cmd
}
