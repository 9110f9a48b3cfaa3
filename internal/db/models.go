// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/toeirei/ringwork/internal/model"
	"github.com/uptrace/bun"
)

// AccountModel maps the `accounts` table.
type AccountModel struct {
	bun.BaseModel `bun:"table:accounts"`
	ID            int       `bun:"id,pk,autoincrement"`
	Username      string    `bun:"username"`
	PasswordHash  string    `bun:"password_hash"`
	Workspace     string    `bun:"workspace"`
	CreatedAt     time.Time `bun:"created_at"`
}

// SessionModel maps the `sessions` table. Only the SHA-256 digest of the
// issued secret is stored; timestamps are unix seconds so that expiry
// comparisons behave the same on every engine.
type SessionModel struct {
	bun.BaseModel `bun:"table:sessions"`
	SessionID     string `bun:"session_id,pk"`
	SecretHash    string `bun:"secret_hash"`
	Username      string `bun:"username"`
	CreatedAt     int64  `bun:"created_at"`
	ExpiresAt     int64  `bun:"expires_at"`
}

// SSHKeyModel maps the `ssh_keys` table. (workspace, name) is unique.
type SSHKeyModel struct {
	bun.BaseModel `bun:"table:ssh_keys"`
	ID            int       `bun:"id,pk,autoincrement"`
	Workspace     string    `bun:"workspace"`
	Username      string    `bun:"username"`
	Name          string    `bun:"name"`
	Algorithm     string    `bun:"algorithm"`
	Bits          int       `bun:"bits"`
	Comment       string    `bun:"comment"`
	Fingerprint   string    `bun:"fingerprint"`
	PrivateKey    string    `bun:"private_key"`
	PublicKey     string    `bun:"public_key"`
	CreatedAt     time.Time `bun:"created_at"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Username      string    `bun:"username"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

func accountModelToProfile(a AccountModel) model.Profile {
	return model.Profile{Username: a.Username, Workspace: a.Workspace}
}

func sshKeyModelToStored(k SSHKeyModel) model.StoredKey {
	return model.StoredKey{
		Name:  k.Name,
		Owner: k.Username,
		Pair: model.KeyPair{
			Algorithm:   model.Algorithm(k.Algorithm),
			Bits:        k.Bits,
			Comment:     k.Comment,
			Fingerprint: k.Fingerprint,
			Private:     k.PrivateKey,
			Public:      k.PublicKey,
		},
		CreatedAt: k.CreatedAt.UTC(),
	}
}

func storedToSSHKeyModel(workspace string, k model.StoredKey) SSHKeyModel {
	return SSHKeyModel{
		Workspace:   workspace,
		Username:    k.Owner,
		Name:        k.Name,
		Algorithm:   string(k.Pair.Algorithm),
		Bits:        k.Pair.Bits,
		Comment:     k.Pair.Comment,
		Fingerprint: k.Pair.Fingerprint,
		PrivateKey:  k.Pair.Private,
		PublicKey:   k.Pair.Public,
		CreatedAt:   k.CreatedAt,
	}
}

func auditLogModelToModel(a AuditLogModel) model.AuditLogEntry {
	return model.AuditLogEntry{
		ID:        a.ID,
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
		Username:  a.Username,
		Action:    a.Action,
		Details:   a.Details,
	}
}
