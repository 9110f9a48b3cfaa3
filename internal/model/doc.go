// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the data types shared across Ringwork: the
// client-held identity token, the resolved profile and the SSH key items
// stored in a user's ring. These are plain structs without behavior beyond
// small helpers so that storage and transport adapters stay straightforward.
package model
