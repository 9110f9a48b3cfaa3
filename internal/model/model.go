// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdentityToken is the (session_id, secret_key) pair persisted on the client.
// A non-empty SecretKey means the client is authenticated for SessionID.
type IdentityToken struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// NewIdentityToken returns an anonymous token with a fresh random session id.
func NewIdentityToken() IdentityToken {
	return IdentityToken{SessionID: NewSessionID()}
}

// NewSessionID generates a random (v4) session identifier. uuid reads from
// crypto/rand.
func NewSessionID() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// Authenticated reports whether the token carries a secret key.
func (t IdentityToken) Authenticated() bool {
	return t.SessionID != "" && t.SecretKey != ""
}

// Anonymous returns a copy of the token with the secret key cleared.
func (t IdentityToken) Anonymous() IdentityToken {
	return IdentityToken{SessionID: t.SessionID}
}

// Profile is an authenticated identity resolved from a valid token.
type Profile struct {
	Username  string `json:"username"`
	Workspace string `json:"workspace"`
}

// String returns the username@workspace representation.
func (p Profile) String() string {
	return fmt.Sprintf("%s@%s", p.Username, p.Workspace)
}

// Algorithm names a supported SSH key algorithm.
type Algorithm string

const (
	AlgorithmRSA     Algorithm = "rsa"
	AlgorithmDSA     Algorithm = "dsa"
	AlgorithmECDSA   Algorithm = "ecdsa"
	AlgorithmEd25519 Algorithm = "ed25519"
)

// Algorithms lists the supported algorithms in display order.
var Algorithms = []Algorithm{AlgorithmRSA, AlgorithmDSA, AlgorithmECDSA, AlgorithmEd25519}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	for _, known := range Algorithms {
		if a == known {
			return true
		}
	}
	return false
}

// KeyPair is a generated or parsed SSH key pair as produced by the crypto
// layer and stored in a ring.
type KeyPair struct {
	Algorithm   Algorithm
	Bits        int
	Comment     string
	Fingerprint string
	Private     string
	Public      string
}

// SSHKeyItem is a key pair as it is presented to a user: named, owned and
// timestamped.
type SSHKeyItem struct {
	Name        string    `json:"name"`
	Algorithm   Algorithm `json:"algorithm"`
	Bits        int       `json:"bits"`
	Comment     string    `json:"comment"`
	Fingerprint string    `json:"fingerprint"`
	Private     string    `json:"private,omitempty"`
	Public      string    `json:"public"`
	User        string    `json:"user"`
	CreatedAt   time.Time `json:"created_at"`
}

// String returns a one-line summary suitable for listings.
func (k SSHKeyItem) String() string {
	return fmt.Sprintf("%s (%s %d) %s", k.Name, k.Algorithm, k.Bits, k.Fingerprint)
}

// StoredKey is a ring entry: the key pair plus its name, the username that
// created it and its insertion time. Owner never changes after insertion.
type StoredKey struct {
	Name      string
	Owner     string
	Pair      KeyPair
	CreatedAt time.Time
}

// Item converts a stored key into the user-facing item.
func (s StoredKey) Item() SSHKeyItem {
	return SSHKeyItem{
		Name:        s.Name,
		Algorithm:   s.Pair.Algorithm,
		Bits:        s.Pair.Bits,
		Comment:     s.Pair.Comment,
		Fingerprint: s.Pair.Fingerprint,
		Private:     s.Pair.Private,
		Public:      s.Pair.Public,
		User:        s.Owner,
		CreatedAt:   s.CreatedAt,
	}
}

// AuditLogEntry represents a single event in the audit trail.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Username  string
	Action    string
	Details   string
}
