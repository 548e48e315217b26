// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command framegraph builds and runs a small particle render graph headless,
// inspects the generated shader library, and moves parameter documents in
// and out of the scene's uniforms.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
