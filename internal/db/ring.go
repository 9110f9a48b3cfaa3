// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/toeirei/ringwork/internal/core"
	"github.com/toeirei/ringwork/internal/model"
	"github.com/uptrace/bun"
)

// RingStore keeps the key rings of all workspaces in the ssh_keys table. The
// unique (workspace, name) constraint decides racing inserts. It implements
// core.KeyRing.
type RingStore struct {
	bun *bun.DB
}

// NewRingStore returns a ring store on s.
func NewRingStore(s *Store) *RingStore {
	return &RingStore{bun: s.bun}
}

// List returns the workspace's keys in insertion order.
func (r *RingStore) List(ctx context.Context, workspace string) ([]model.StoredKey, error) {
	var rows []SSHKeyModel
	if err := r.bun.NewSelect().Model(&rows).Where("workspace = ?", workspace).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.StoredKey, 0, len(rows))
	for _, k := range rows {
		out = append(out, sshKeyModelToStored(k))
	}
	return out, nil
}

// Get returns the named key or nil when it does not exist.
func (r *RingStore) Get(ctx context.Context, workspace, name string) (*model.StoredKey, error) {
	var k SSHKeyModel
	err := r.bun.NewSelect().Model(&k).Where("workspace = ?", workspace).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s := sshKeyModelToStored(k)
	return &s, nil
}

// Contains reports whether name exists in the workspace.
func (r *RingStore) Contains(ctx context.Context, workspace, name string) (bool, error) {
	return r.bun.NewSelect().Model((*SSHKeyModel)(nil)).Where("workspace = ?", workspace).Where("name = ?", name).Exists(ctx)
}

// Put inserts key. A name already present yields an error wrapping both
// core.ErrDuplicate and ErrDuplicate.
func (r *RingStore) Put(ctx context.Context, workspace string, key model.StoredKey) error {
	row := storedToSSHKeyModel(workspace, key)
	if _, err := r.bun.NewInsert().Model(&row).Exec(ctx); err != nil {
		if mapped := MapDBError(err); errors.Is(mapped, ErrDuplicate) {
			return fmt.Errorf("key %s: %w: %w", key.Name, core.ErrDuplicate, ErrDuplicate)
		}
		return err
	}
	return nil
}

// Remove deletes name and reports whether a row was removed.
func (r *RingStore) Remove(ctx context.Context, workspace, name string) (bool, error) {
	res, err := r.bun.NewDelete().Model((*SSHKeyModel)(nil)).Where("workspace = ?", workspace).Where("name = ?", name).Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
