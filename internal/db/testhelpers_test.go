// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/ringwork/internal/security"
	"golang.org/x/crypto/bcrypt"
)

// newTestStore opens a private in-memory sqlite store for the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := NewStoreFromDSN("sqlite", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestAccounts returns an account store with a cheap bcrypt cost and a
// controllable clock.
func newTestAccounts(t *testing.T, s *Store, now *time.Time) *AccountStore {
	t.Helper()
	a := NewAccountStore(s, time.Hour)
	a.cost = bcrypt.MinCost
	if now != nil {
		a.now = func() time.Time { return *now }
	}
	return a
}

func mustAddUser(t *testing.T, a *AccountStore, username, password string) {
	t.Helper()
	if _, err := a.AddUser(context.Background(), username, security.FromString(password), ""); err != nil {
		t.Fatalf("AddUser %s failed: %v", username, err)
	}
}
