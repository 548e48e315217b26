// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/framegraph"
)

type rootOptions struct {
	logLevel string
	config   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "framegraph",
		Short:         "Build and run GPU render graphs",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := parseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			framegraph.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error, off)")
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "path to a TOML scene config")

	cmd.AddCommand(newRunCmd(opts), newInspectCmd(opts), newParamsCmd(opts))
	return cmd
}

// levelOff is above every level slog emits.
const levelOff = slog.Level(100)

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off", "none":
		return levelOff, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// loadConfig reads the --config file, if any, on top of the defaults.
func (o *rootOptions) loadConfig() (Config, error) {
	if o.config == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(o.config)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return ReadConfig(f)
}
