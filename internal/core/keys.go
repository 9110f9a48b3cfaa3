// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toeirei/ringwork/internal/logging"
	"github.com/toeirei/ringwork/internal/model"
)

// GenerateRequest describes a key to be generated. Bits <= 0 selects the
// algorithm default.
type GenerateRequest struct {
	Name      string          `json:"name"`
	Comment   string          `json:"comment"`
	Algorithm model.Algorithm `json:"algorithm"`
	Bits      int             `json:"bits"`
}

// ImportRequest carries an existing private key. An empty Name is derived
// from the comment embedded in the key.
type ImportRequest struct {
	Name    string `json:"name"`
	Private string `json:"private"`
}

// Orchestrator runs the key lifecycle for the profile a token resolves to.
// Every call re-reads the ring; nothing is cached between calls.
type Orchestrator struct {
	sessions *SessionResolver
	ring     KeyRing
	keys     KeyFactory
	audit    AuditWriter
	now      func() time.Time
}

// NewOrchestrator wires the lifecycle operations to their collaborators.
// audit may be nil.
func NewOrchestrator(sessions *SessionResolver, ring KeyRing, keys KeyFactory, audit AuditWriter) *Orchestrator {
	return &Orchestrator{sessions: sessions, ring: ring, keys: keys, audit: audit, now: time.Now}
}

// profile resolves token, reporting any failure uniformly as LoginRequired.
func (o *Orchestrator) profile(ctx context.Context, token model.IdentityToken) (*model.Profile, error) {
	p, err := o.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, &Error{Kind: KindLoginRequired, Err: err}
	}
	return p, nil
}

// List returns the caller's keys in insertion order.
func (o *Orchestrator) List(ctx context.Context, token model.IdentityToken) ([]model.SSHKeyItem, error) {
	p, err := o.profile(ctx, token)
	if err != nil {
		return nil, err
	}
	stored, err := o.ring.List(ctx, p.Workspace)
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", p, err)
	}
	items := make([]model.SSHKeyItem, 0, len(stored))
	for _, s := range stored {
		items = append(items, s.Item())
	}
	return items, nil
}

// Get returns a single key of the caller, private part included.
func (o *Orchestrator) Get(ctx context.Context, token model.IdentityToken, name string) (*model.SSHKeyItem, error) {
	p, err := o.profile(ctx, token)
	if err != nil {
		return nil, err
	}
	stored, err := o.ring.Get(ctx, p.Workspace, name)
	if err != nil {
		return nil, fmt.Errorf("get key %s: %w", name, err)
	}
	if stored == nil {
		return nil, &Error{Kind: KindNotFound, Detail: name}
	}
	item := stored.Item()
	return &item, nil
}

// Generate creates a key pair and stores it under req.Name.
func (o *Orchestrator) Generate(ctx context.Context, token model.IdentityToken, req GenerateRequest) (*model.SSHKeyItem, error) {
	name := strings.TrimSpace(req.Name)
	comment := strings.TrimSpace(req.Comment)
	if name == "" {
		return nil, validationError(FieldName, "name required")
	}
	if err := ValidateKeyName(name); err != nil {
		return nil, err
	}
	if comment == "" {
		return nil, validationError(FieldComment, "comment required")
	}
	if err := ValidateKeyComment(comment); err != nil {
		return nil, err
	}

	p, err := o.profile(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := o.ensureAbsent(ctx, p, name, KindGenerationFailed); err != nil {
		return nil, err
	}
	algorithm := model.Algorithm(strings.ToLower(strings.TrimSpace(string(req.Algorithm))))
	bits, err := NormalizeBits(algorithm, req.Bits)
	if err != nil {
		return nil, err
	}

	pair, err := o.keys.Generate(algorithm, bits, comment)
	if err != nil {
		logging.Warnf("generate %s key %s for %s: %v", algorithm, name, p, err)
		return nil, failure(KindGenerationFailed, err)
	}
	item, err := o.store(ctx, p, name, pair, KindGenerationFailed)
	if err != nil {
		return nil, err
	}
	o.record(ctx, p.Username, "GENERATE_KEY", fmt.Sprintf("name: %s, algorithm: %s, bits: %d", name, algorithm, bits))
	return item, nil
}

// Import parses an unencrypted private key and stores it.
func (o *Orchestrator) Import(ctx context.Context, token model.IdentityToken, req ImportRequest) (*model.SSHKeyItem, error) {
	name := strings.TrimSpace(req.Name)
	private := strings.TrimSpace(req.Private)

	var (
		pair     model.KeyPair
		parseErr error
		parsed   bool
	)
	if name == "" && private != "" {
		pair, parseErr = o.keys.Parse(private)
		parsed = true
		if parseErr == nil {
			name = KeyNameFromComment(pair.Comment)
		}
	}
	if name == "" {
		return nil, validationError(FieldName, "name required")
	}
	if err := ValidateKeyName(name); err != nil {
		return nil, err
	}
	if private == "" {
		return nil, validationError(FieldPrivate, "private key required")
	}

	p, err := o.profile(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := o.ensureAbsent(ctx, p, name, KindImportFailed); err != nil {
		return nil, err
	}
	if !parsed {
		pair, parseErr = o.keys.Parse(private)
	}
	if parseErr != nil {
		return nil, failure(KindImportFailed, parseErr)
	}
	if err := ValidateKeyComment(pair.Comment); err != nil {
		return nil, err
	}
	item, err := o.store(ctx, p, name, pair, KindImportFailed)
	if err != nil {
		return nil, err
	}
	o.record(ctx, p.Username, "IMPORT_KEY", fmt.Sprintf("name: %s, fingerprint: %s", name, pair.Fingerprint))
	return item, nil
}

// Delete removes a key from the caller's ring.
func (o *Orchestrator) Delete(ctx context.Context, token model.IdentityToken, name string) error {
	p, err := o.profile(ctx, token)
	if err != nil {
		return err
	}
	removed, err := o.ring.Remove(ctx, p.Workspace, name)
	if err != nil {
		logging.Warnf("delete key %s for %s: %v", name, p, err)
		return failure(KindDeletionFailed, err)
	}
	if !removed {
		return &Error{Kind: KindDeletionFailed, Detail: name}
	}
	o.record(ctx, p.Username, "DELETE_KEY", "name: "+name)
	return nil
}

// PublicKey returns the authorized_keys line of the key name owned by
// username. It needs no token: public keys are published to anyone who knows
// the name. A key in a shared workspace is only served under its owner.
func (o *Orchestrator) PublicKey(ctx context.Context, username, name string) (string, error) {
	p, err := o.sessions.accounts.Lookup(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", username, err)
	}
	if p == nil {
		return "", &Error{Kind: KindNotFound, Detail: username}
	}
	stored, err := o.ring.Get(ctx, p.Workspace, name)
	if err != nil {
		return "", fmt.Errorf("get key %s of %s: %w", name, username, err)
	}
	if stored == nil || stored.Owner != p.Username {
		return "", &Error{Kind: KindNotFound, Detail: name}
	}
	return stored.Pair.Public, nil
}

// ensureAbsent reports Conflict when name is taken. A failing membership
// check is reported as kind.
func (o *Orchestrator) ensureAbsent(ctx context.Context, p *model.Profile, name string, kind Kind) error {
	exists, err := o.ring.Contains(ctx, p.Workspace, name)
	if err != nil {
		return failure(kind, err)
	}
	if exists {
		return &Error{Kind: KindConflict, Detail: name}
	}
	return nil
}

// store inserts the pair. The ring is the final arbiter of name
// uniqueness: a duplicate at insert time is a Conflict as well.
func (o *Orchestrator) store(ctx context.Context, p *model.Profile, name string, pair model.KeyPair, kind Kind) (*model.SSHKeyItem, error) {
	key := model.StoredKey{Name: name, Owner: p.Username, Pair: pair, CreatedAt: o.now().UTC()}
	if err := o.ring.Put(ctx, p.Workspace, key); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, &Error{Kind: KindConflict, Detail: name, Err: err}
		}
		logging.Warnf("store key %s for %s: %v", name, p, err)
		return nil, failure(kind, err)
	}
	item := key.Item()
	return &item, nil
}

func (o *Orchestrator) record(ctx context.Context, username, action, details string) {
	if o.audit == nil {
		return
	}
	if err := o.audit.LogAction(ctx, username, action, details); err != nil {
		logging.Warnf("audit %s: %v", action, err)
	}
}
