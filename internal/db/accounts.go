// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/security"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is used when an AccountStore is created without a TTL.
const DefaultSessionTTL = 7 * 24 * time.Hour

// secretBytes is the number of random bytes in an issued session secret.
const secretBytes = 32

// ErrUserNotFound is returned by account administration for unknown users.
var ErrUserNotFound = errors.New("user not found")

// AccountStore verifies credentials and issues, resolves and revokes
// sessions. It implements core.AccountGateway.
type AccountStore struct {
	bun  *bun.DB
	ttl  time.Duration
	cost int
	now  func() time.Time
}

// NewAccountStore returns an account store whose sessions live for ttl.
func NewAccountStore(s *Store, ttl time.Duration) *AccountStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AccountStore{bun: s.bun, ttl: ttl, cost: bcrypt.DefaultCost, now: time.Now}
}

func (a *AccountStore) account(ctx context.Context, username string) (*AccountModel, error) {
	var am AccountModel
	err := a.bun.NewSelect().Model(&am).Where("username = ?", username).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &am, nil
}

// Login checks username and password with bcrypt and binds a fresh secret
// to sessionID, replacing any session previously stored under that id.
// Unknown users and wrong passwords return a nil profile and no error.
func (a *AccountStore) Login(ctx context.Context, username string, password security.Secret, sessionID string) (*model.Profile, string, error) {
	if sessionID == "" {
		return nil, "", fmt.Errorf("empty session id")
	}
	am, err := a.account(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("load account %s: %w", username, err)
	}
	if am == nil {
		return nil, "", nil
	}
	if err := password.Use(func(b []byte) error {
		return bcrypt.CompareHashAndPassword([]byte(am.PasswordHash), b)
	}); err != nil {
		return nil, "", nil
	}

	secret, err := security.NewToken(secretBytes)
	if err != nil {
		return nil, "", err
	}
	now := a.now().UTC()
	sess := &SessionModel{
		SessionID:  sessionID,
		SecretHash: security.HashToken(secret),
		Username:   am.Username,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(a.ttl).Unix(),
	}
	err = a.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*SessionModel)(nil)).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(sess).Exec(ctx)
		return MapDBError(err)
	})
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}
	p := accountModelToProfile(*am)
	return &p, secret, nil
}

// Fetch resolves an unexpired session whose secret matches.
func (a *AccountStore) Fetch(ctx context.Context, sessionID, secret string) (*model.Profile, error) {
	var sess SessionModel
	err := a.bun.NewSelect().Model(&sess).Where("session_id = ?", sessionID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !security.EqualHash(sess.SecretHash, security.HashToken(secret)) {
		return nil, nil
	}
	if sess.ExpiresAt <= a.now().UTC().Unix() {
		return nil, nil
	}
	am, err := a.account(ctx, sess.Username)
	if err != nil || am == nil {
		return nil, err
	}
	p := accountModelToProfile(*am)
	return &p, nil
}

// Logout deletes the session when the secret matches.
func (a *AccountStore) Logout(ctx context.Context, sessionID, secret string) error {
	_, err := a.bun.NewDelete().Model((*SessionModel)(nil)).
		Where("session_id = ?", sessionID).
		Where("secret_hash = ?", security.HashToken(secret)).
		Exec(ctx)
	return err
}

// Lookup returns the profile of username.
func (a *AccountStore) Lookup(ctx context.Context, username string) (*model.Profile, error) {
	am, err := a.account(ctx, username)
	if err != nil || am == nil {
		return nil, err
	}
	p := accountModelToProfile(*am)
	return &p, nil
}

// DeleteExpiredSessions removes every session past its expiry and returns
// how many were removed.
func (a *AccountStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := a.bun.NewDelete().Model((*SessionModel)(nil)).
		Where("expires_at <= ?", a.now().UTC().Unix()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (a *AccountStore) hash(password security.Secret) (string, error) {
	var hash []byte
	err := password.Use(func(b []byte) error {
		var err error
		hash, err = bcrypt.GenerateFromPassword(b, a.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// AddUser creates an account. An empty workspace defaults to the username.
// An existing username yields ErrDuplicate.
func (a *AccountStore) AddUser(ctx context.Context, username string, password security.Secret, workspace string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username required")
	}
	if password.Empty() {
		return nil, fmt.Errorf("password required")
	}
	if workspace = strings.TrimSpace(workspace); workspace == "" {
		workspace = username
	}
	hash, err := a.hash(password)
	if err != nil {
		return nil, err
	}
	am := &AccountModel{Username: username, PasswordHash: hash, Workspace: workspace, CreatedAt: a.now().UTC()}
	if _, err := a.bun.NewInsert().Model(am).Exec(ctx); err != nil {
		return nil, MapDBError(err)
	}
	p := accountModelToProfile(*am)
	return &p, nil
}

// SetPassword replaces the password of username and revokes its sessions.
func (a *AccountStore) SetPassword(ctx context.Context, username string, password security.Secret) error {
	if password.Empty() {
		return fmt.Errorf("password required")
	}
	hash, err := a.hash(password)
	if err != nil {
		return err
	}
	return a.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*AccountModel)(nil)).
			Set("password_hash = ?", hash).
			Where("username = ?", username).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUserNotFound
		}
		_, err = tx.NewDelete().Model((*SessionModel)(nil)).Where("username = ?", username).Exec(ctx)
		return err
	})
}

// RemoveUser deletes the account, its sessions and the keys of its
// workspace when no other account shares it.
func (a *AccountStore) RemoveUser(ctx context.Context, username string) error {
	return a.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var am AccountModel
		if err := tx.NewSelect().Model(&am).Where("username = ?", username).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}
		if _, err := tx.NewDelete().Model((*SessionModel)(nil)).Where("username = ?", username).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*AccountModel)(nil)).Where("id = ?", am.ID).Exec(ctx); err != nil {
			return err
		}
		shared, err := tx.NewSelect().Model((*AccountModel)(nil)).Where("workspace = ?", am.Workspace).Count(ctx)
		if err != nil {
			return err
		}
		if shared == 0 {
			_, err = tx.NewDelete().Model((*SSHKeyModel)(nil)).Where("workspace = ?", am.Workspace).Exec(ctx)
		}
		return err
	})
}

// ListUsers returns every account ordered by username.
func (a *AccountStore) ListUsers(ctx context.Context) ([]model.Profile, error) {
	var ams []AccountModel
	if err := a.bun.NewSelect().Model(&ams).OrderExpr("username ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(ams))
	for _, am := range ams {
		out = append(out, accountModelToProfile(am))
	}
	return out, nil
}
