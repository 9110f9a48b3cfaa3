// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core resolves client identity tokens to profiles and runs the SSH
// key lifecycle (list, generate, import, delete) against a profile's ring.
// The interfaces below are the side-effect boundaries; internal/db and
// internal/crypto/ssh provide the production implementations.
package core

import (
	"context"
	"errors"

	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/security"
)

// ErrDuplicate must be wrapped by KeyRing.Put when the name is already
// present in the workspace.
var ErrDuplicate = errors.New("name already present in ring")

// AccountGateway verifies credentials and issues or revokes session secrets.
// Lookups that find nothing return (nil, nil).
type AccountGateway interface {
	// Login checks the credentials and binds a freshly issued secret to
	// sessionID. Invalid credentials return a nil profile.
	Login(ctx context.Context, username string, password security.Secret, sessionID string) (*model.Profile, string, error)
	// Fetch resolves a live (unexpired) session.
	Fetch(ctx context.Context, sessionID, secret string) (*model.Profile, error)
	// Logout revokes the session. Unknown sessions are not an error.
	Logout(ctx context.Context, sessionID, secret string) error
	// Lookup returns the profile of username without any credential.
	Lookup(ctx context.Context, username string) (*model.Profile, error)
}

// KeyRing is durable per-workspace key storage. List returns keys in
// insertion order; Get returns (nil, nil) for unknown names.
type KeyRing interface {
	List(ctx context.Context, workspace string) ([]model.StoredKey, error)
	Get(ctx context.Context, workspace, name string) (*model.StoredKey, error)
	Contains(ctx context.Context, workspace, name string) (bool, error)
	Put(ctx context.Context, workspace string, key model.StoredKey) error
	Remove(ctx context.Context, workspace, name string) (bool, error)
}

// KeyFactory creates and parses key pairs.
type KeyFactory interface {
	Generate(algorithm model.Algorithm, bits int, comment string) (model.KeyPair, error)
	Parse(private string) (model.KeyPair, error)
}

// AuditWriter is the minimal contract for emitting audit events.
type AuditWriter interface {
	LogAction(ctx context.Context, username, action, details string) error
}
