// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/toeirei/ringwork/internal/model"
	"github.com/uptrace/bun"
)

// AuditStore records security relevant actions. It implements
// core.AuditWriter.
type AuditStore struct {
	bun *bun.DB
	now func() time.Time
}

// NewAuditStore returns an audit store on s.
func NewAuditStore(s *Store) *AuditStore {
	return &AuditStore{bun: s.bun, now: time.Now}
}

// LogAction records an audit trail event.
func (a *AuditStore) LogAction(ctx context.Context, username, action, details string) error {
	_, err := a.bun.NewInsert().Model(&AuditLogModel{
		Timestamp: a.now().UTC(),
		Username:  username,
		Action:    action,
		Details:   details,
	}).Exec(ctx)
	return MapDBError(err)
}

// Entries returns audit log entries, most recent first. limit <= 0 returns
// all of them.
func (a *AuditStore) Entries(ctx context.Context, limit int) ([]model.AuditLogEntry, error) {
	var rows []AuditLogModel
	q := a.bun.NewSelect().Model(&rows).OrderExpr("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, auditLogModelToModel(r))
	}
	return out, nil
}
