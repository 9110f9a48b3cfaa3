// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil holds helpers shared by tests of packages that sit on top
// of the stores.
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/toeirei/ringwork/internal/db"
	"github.com/toeirei/ringwork/internal/security"
)

// MemoryDSN returns a shared-cache in-memory sqlite DSN unique to t. The
// database lives as long as one connection to it stays open.
func MemoryDSN(t testing.TB, prefix string) string {
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	return "file:" + prefix + "_" + name + "?mode=memory&cache=shared"
}

// NewStore opens a migrated in-memory store closed at the end of the test.
func NewStore(t testing.TB, prefix string) *db.Store {
	t.Helper()
	s, err := db.NewStoreFromDSN("sqlite", MemoryDSN(t, prefix))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// AddUser creates an account with the default workspace.
func AddUser(t testing.TB, accounts *db.AccountStore, username, password string) {
	t.Helper()
	if _, err := accounts.AddUser(context.Background(), username, security.FromString(password), ""); err != nil {
		t.Fatalf("add user %s: %v", username, err)
	}
}
