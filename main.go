// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Ringwork.
//
// Usage:
//
//	go run . [flags]
//	./ringwork serve
//
// See --help for the available commands.
package main

import (
	"os"

	"github.com/toeirei/ringwork/ui/cli"
)

func main() {
	// Cobra already printed the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
