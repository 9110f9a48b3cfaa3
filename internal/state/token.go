// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package state persists the terminal client's identity token between
// invocations. The token file is the CLI counterpart of the browser cookies
// and is only ever readable by its owner.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/toeirei/ringwork/internal/model"
	"gopkg.in/yaml.v3"
)

// TokenFileName is the file name used inside the user config directory.
const TokenFileName = "session.yaml"

// TokenFile reads and writes an IdentityToken as YAML.
type TokenFile struct {
	path string
	mu   sync.Mutex
}

// NewTokenFile returns a token file at path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// DefaultTokenFile returns the token file inside dir.
func DefaultTokenFile(dir string) *TokenFile {
	return NewTokenFile(filepath.Join(dir, TokenFileName))
}

// Path returns the file location.
func (f *TokenFile) Path() string { return f.path }

// Load returns the stored token. A missing file yields a nil token and no
// error so callers can hand it straight to EnsureToken.
func (f *TokenFile) Load() (*model.IdentityToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok model.IdentityToken
	if err := yaml.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", f.path, err)
	}
	return &tok, nil
}

// Save writes tok atomically with mode 0600.
func (f *TokenFile) Save(tok model.IdentityToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (f *TokenFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
