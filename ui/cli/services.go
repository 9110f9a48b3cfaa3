// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/toeirei/ringwork/internal/config"
	"github.com/toeirei/ringwork/internal/core"
	sshkeys "github.com/toeirei/ringwork/internal/crypto/ssh"
	"github.com/toeirei/ringwork/internal/db"
	"github.com/toeirei/ringwork/internal/i18n"
	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/state"
)

// services bundles the stores and core components a command works with.
type services struct {
	store    *db.Store
	accounts *db.AccountStore
	ring     *db.RingStore
	audit    *db.AuditStore
	sessions *core.SessionResolver
	keys     *core.Orchestrator
}

// Package-level seams replaced by tests.
var (
	openStore = db.NewStoreFromDSN

	tokenFile = func() (*state.TokenFile, error) {
		dir, err := config.UserDir()
		if err != nil {
			return nil, err
		}
		return state.DefaultTokenFile(dir), nil
	}

	clipboardWrite = clipboard.WriteAll
)

func openServices() (*services, error) {
	store, err := openStore(appConfig.Database.Type, appConfig.Database.Dsn)
	if err != nil {
		return nil, errors.New(i18n.T("cli.error.init_db", err))
	}
	accounts := db.NewAccountStore(store, appConfig.Session.TTL)
	ring := db.NewRingStore(store)
	audit := db.NewAuditStore(store)
	sessions := core.NewSessionResolver(accounts, audit)
	return &services{
		store:    store,
		accounts: accounts,
		ring:     ring,
		audit:    audit,
		sessions: sessions,
		keys:     core.NewOrchestrator(sessions, ring, sshkeys.Factory{}, audit),
	}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}

// withServices opens the stores for the duration of fn.
func withServices(fn func(s *services) error) error {
	s, err := openServices()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}

// loadToken returns the persisted identity token, minting and saving a
// fresh session id on first use.
func loadToken(s *services) (model.IdentityToken, *state.TokenFile, error) {
	tf, err := tokenFile()
	if err != nil {
		return model.IdentityToken{}, nil, err
	}
	existing, err := tf.Load()
	if err != nil {
		return model.IdentityToken{}, nil, err
	}
	tok := s.sessions.EnsureToken(existing)
	if existing == nil || existing.SessionID == "" {
		if err := tf.Save(tok); err != nil {
			return model.IdentityToken{}, nil, err
		}
	}
	return tok, tf, nil
}

// withSession opens the stores and loads the caller's token.
func withSession(fn func(ctx context.Context, s *services, tok model.IdentityToken) error) error {
	return withServices(func(s *services) error {
		tok, _, err := loadToken(s)
		if err != nil {
			return err
		}
		return fn(context.Background(), s, tok)
	})
}

// describe renders err for the terminal, localizing core failures.
func describe(err error) error {
	if core.KindOf(err) == "" {
		return err
	}
	msg := i18n.T(core.MessageID(err))
	var ce *core.Error
	if errors.As(err, &ce) && ce.Detail != "" {
		msg += ": " + ce.Detail
	}
	return errors.New(msg)
}

// readLine reads a line from r without the trailing newline. A final line
// without a newline is accepted.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
