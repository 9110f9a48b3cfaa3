// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/security"
)

type fakeUser struct {
	password  string
	workspace string
}

type fakeSession struct {
	secret   string
	username string
}

// fakeAccounts is an in-memory AccountGateway.
type fakeAccounts struct {
	mu       sync.Mutex
	users    map[string]fakeUser
	sessions map[string]fakeSession
	issued   int

	loginErr  error
	fetchErr  error
	logoutErr error

	loginCalls  int
	fetchCalls  int
	logoutCalls int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:    map[string]fakeUser{"alice": {password: "wonderland", workspace: "ws-alice"}},
		sessions: map[string]fakeSession{},
	}
}

func (f *fakeAccounts) Login(_ context.Context, username string, password security.Secret, sessionID string) (*model.Profile, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, "", f.loginErr
	}
	u, ok := f.users[username]
	if !ok || u.password != string(password) {
		return nil, "", nil
	}
	f.issued++
	secret := fmt.Sprintf("secret-%d", f.issued)
	f.sessions[sessionID] = fakeSession{secret: secret, username: username}
	return &model.Profile{Username: username, Workspace: u.workspace}, secret, nil
}

func (f *fakeAccounts) Fetch(_ context.Context, sessionID, secret string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	s, ok := f.sessions[sessionID]
	if !ok || s.secret != secret {
		return nil, nil
	}
	return &model.Profile{Username: s.username, Workspace: f.users[s.username].workspace}, nil
}

func (f *fakeAccounts) Logout(_ context.Context, sessionID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	if f.logoutErr != nil {
		return f.logoutErr
	}
	if s, ok := f.sessions[sessionID]; ok && s.secret == secret {
		delete(f.sessions, sessionID)
	}
	return nil
}

func (f *fakeAccounts) Lookup(_ context.Context, username string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	return &model.Profile{Username: username, Workspace: u.workspace}, nil
}

// login returns an authenticated token for alice.
func (f *fakeAccounts) login(sessionID string) model.IdentityToken {
	_, secret, _ := f.Login(context.Background(), "alice", security.FromString("wonderland"), sessionID)
	f.mu.Lock()
	f.loginCalls = 0
	f.mu.Unlock()
	return model.IdentityToken{SessionID: sessionID, SecretKey: secret}
}

// fakeRing is an in-memory KeyRing that keeps insertion order.
type fakeRing struct {
	mu   sync.Mutex
	keys map[string][]model.StoredKey

	listErr     error
	getErr      error
	containsErr error
	putErr      error
	removeErr   error

	// hideFromContains simulates a racing writer: Contains reports the
	// name absent even though Put will find it.
	hideFromContains bool

	calls int
}

func newFakeRing() *fakeRing {
	return &fakeRing{keys: map[string][]model.StoredKey{}}
}

func (r *fakeRing) List(_ context.Context, workspace string) ([]model.StoredKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]model.StoredKey(nil), r.keys[workspace]...), nil
}

func (r *fakeRing) Get(_ context.Context, workspace, name string) (*model.StoredKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, k := range r.keys[workspace] {
		if k.Name == name {
			k := k
			return &k, nil
		}
	}
	return nil, nil
}

func (r *fakeRing) Contains(_ context.Context, workspace, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.containsErr != nil {
		return false, r.containsErr
	}
	if r.hideFromContains {
		return false, nil
	}
	return r.indexOf(workspace, name) >= 0, nil
}

func (r *fakeRing) Put(_ context.Context, workspace string, key model.StoredKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.putErr != nil {
		return r.putErr
	}
	if r.indexOf(workspace, key.Name) >= 0 {
		return fmt.Errorf("put %s: %w", key.Name, ErrDuplicate)
	}
	r.keys[workspace] = append(r.keys[workspace], key)
	return nil
}

func (r *fakeRing) Remove(_ context.Context, workspace, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.removeErr != nil {
		return false, r.removeErr
	}
	i := r.indexOf(workspace, name)
	if i < 0 {
		return false, nil
	}
	r.keys[workspace] = append(r.keys[workspace][:i], r.keys[workspace][i+1:]...)
	return true, nil
}

func (r *fakeRing) indexOf(workspace, name string) int {
	for i, k := range r.keys[workspace] {
		if k.Name == name {
			return i
		}
	}
	return -1
}

func (r *fakeRing) names(workspace string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, k := range r.keys[workspace] {
		out = append(out, k.Name)
	}
	return out
}

func (r *fakeRing) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeFactory records the normalized request and returns a synthetic pair.
type fakeFactory struct {
	generateErr error
	parseErr    error
	parsed      model.KeyPair

	lastAlgorithm model.Algorithm
	lastBits      int
	generated     int
}

func (f *fakeFactory) Generate(algorithm model.Algorithm, bits int, comment string) (model.KeyPair, error) {
	f.lastAlgorithm, f.lastBits = algorithm, bits
	if f.generateErr != nil {
		return model.KeyPair{}, f.generateErr
	}
	f.generated++
	return model.KeyPair{
		Algorithm:   algorithm,
		Bits:        bits,
		Comment:     comment,
		Fingerprint: fmt.Sprintf("SHA256:fake%d", f.generated),
		Private:     "PRIVATE",
		Public:      fmt.Sprintf("ssh-%s AAAA %s", algorithm, comment),
	}, nil
}

func (f *fakeFactory) Parse(private string) (model.KeyPair, error) {
	if f.parseErr != nil {
		return model.KeyPair{}, f.parseErr
	}
	return f.parsed, nil
}

// fakeAudit collects audit actions.
type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *fakeAudit) LogAction(_ context.Context, username, action, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, username+":"+action)
	return nil
}
