// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Ringwork using Cobra.
// It loads configuration, opens the stores and delegates every operation to
// the session resolver and the key lifecycle orchestrator in `internal/core`.
package cli
