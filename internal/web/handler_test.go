// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/ringwork/internal/core"
	sshkeys "github.com/toeirei/ringwork/internal/crypto/ssh"
	"github.com/toeirei/ringwork/internal/db"
	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/testutil"
	gossh "golang.org/x/crypto/ssh"
)

type testPortal struct {
	server   *Server
	accounts *db.AccountStore
	ring     *db.RingStore
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	store := testutil.NewStore(t, "web")

	accounts := db.NewAccountStore(store, time.Hour)
	ring := db.NewRingStore(store)
	audit := db.NewAuditStore(store)
	sessions := core.NewSessionResolver(accounts, audit)
	orch := core.NewOrchestrator(sessions, ring, sshkeys.Factory{}, audit)

	srv, err := New(&HTTPServerConfig{ListenAddr: "127.0.0.1:0", Quiet: true}, NewHandler(sessions, orch, CookieConfig{SecretTTL: time.Hour}))
	require.NoError(t, err)

	testutil.AddUser(t, accounts, "alice", "wonderland")
	return &testPortal{server: srv, accounts: accounts, ring: ring}
}

// client keeps cookies between requests like a browser would.
type client struct {
	t       *testing.T
	portal  *testPortal
	cookies map[string]*http.Cookie
}

func (p *testPortal) client(t *testing.T) *client {
	return &client{t: t, portal: p, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, target string, body any, header ...string) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.portal.server.Handler().ServeHTTP(w, req)
	resp := w.Result()
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return resp
}

func (c *client) login() {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/session/login", LoginRequest{Username: "alice", Password: "wonderland"})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func TestHealthEndpoints(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)

	resp := c.do(http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"alive"}`, body(t, resp))

	resp = c.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	p.server.SetReady(false)
	resp = c.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"not ready"}`, body(t, resp))
}

func TestEnsureToken_IssuesStableSessionCookie(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)

	c.do(http.MethodGet, "/api/ssh/pub/raw/alice/none", nil)
	first, ok := c.cookies[SessionCookie]
	require.True(t, ok, "session cookie not issued")
	assert.NotEmpty(t, first.Value)
	assert.True(t, first.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, first.SameSite)

	resp := c.do(http.MethodGet, "/api/ssh/pub/raw/alice/none", nil)
	for _, ck := range resp.Cookies() {
		assert.NotEqual(t, SessionCookie, ck.Name, "existing session id must not be replaced")
	}
	assert.Equal(t, first.Value, c.cookies[SessionCookie].Value)
}

func TestGuard_APIAndBrowser(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)

	resp := c.do(http.MethodGet, "/api/ssh/keys", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Equal(t, "login_required", e.Error)
	assert.NotEmpty(t, e.Message)

	resp = c.do(http.MethodGet, "/api/ssh/keys", nil, "Accept", "text/html,application/xhtml+xml")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?target=%2Fapi%2Fssh%2Fkeys", resp.Header.Get("Location"))
}

func TestLogin(t *testing.T) {
	p := newTestPortal(t)

	t.Run("success with target", func(t *testing.T) {
		c := p.client(t)
		resp := c.do(http.MethodPost, "/api/session/login?target=/keys", LoginRequest{Username: "alice", Password: "wonderland"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		lr := decode[LoginResponse](t, resp)
		assert.Equal(t, LoginResponse{Username: "alice", Workspace: "alice", Redirect: "/keys"}, lr)
		assert.NotEmpty(t, c.cookies[SecretCookie].Value)

		resp = c.do(http.MethodGet, "/api/session", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, model.Profile{Username: "alice", Workspace: "alice"}, decode[model.Profile](t, resp))
	})

	t.Run("foreign target falls back to root", func(t *testing.T) {
		c := p.client(t)
		resp := c.do(http.MethodPost, "/api/session/login?target=//evil.example/x", LoginRequest{Username: "alice", Password: "wonderland"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/", decode[LoginResponse](t, resp).Redirect)
	})

	t.Run("wrong password", func(t *testing.T) {
		c := p.client(t)
		resp := c.do(http.MethodPost, "/api/session/login", LoginRequest{Username: "alice", Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid_credentials", decode[ErrorResponse](t, resp).Error)
		_, ok := c.cookies[SecretCookie]
		assert.False(t, ok)
	})

	t.Run("missing username", func(t *testing.T) {
		c := p.client(t)
		resp := c.do(http.MethodPost, "/api/session/login", LoginRequest{Password: "x"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decode[ErrorResponse](t, resp)
		assert.Equal(t, "validation", e.Error)
		assert.Equal(t, core.FieldUsername, e.Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := p.client(t)
		resp := c.do(http.MethodPost, "/api/session/login", "not an object")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "bad_request", decode[ErrorResponse](t, resp).Error)
	})
}

func TestLogout(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)
	c.login()
	secret := c.cookies[SecretCookie].Value

	resp := c.do(http.MethodPost, "/api/session/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, ok := c.cookies[SecretCookie]
	assert.False(t, ok, "secret cookie not cleared")

	// the revoked secret no longer works even when replayed
	c.cookies[SecretCookie] = &http.Cookie{Name: SecretCookie, Value: secret}
	resp = c.do(http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// logging out twice is fine
	delete(c.cookies, SecretCookie)
	resp = c.do(http.MethodPost, "/api/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestKeyLifecycle(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)
	c.login()

	resp := c.do(http.MethodPost, "/api/ssh/keys", core.GenerateRequest{Name: "laptop", Comment: "alice@laptop", Algorithm: model.AlgorithmEd25519})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.SSHKeyItem](t, resp)
	assert.Equal(t, "laptop", created.Name)
	assert.Equal(t, "alice", created.User)
	assert.Equal(t, 256, created.Bits)
	assert.NotEmpty(t, created.Private)

	resp = c.do(http.MethodPost, "/api/ssh/keys", core.GenerateRequest{Name: "laptop", Comment: "again", Algorithm: model.AlgorithmEd25519})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decode[ErrorResponse](t, resp).Error)

	resp = c.do(http.MethodGet, "/api/ssh/keys", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]model.SSHKeyItem](t, resp)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Private, "list must not leak private keys")
	assert.Equal(t, created.Fingerprint, items[0].Fingerprint)

	resp = c.do(http.MethodGet, "/api/ssh/keys/laptop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.Private, decode[model.SSHKeyItem](t, resp).Private)

	resp = c.do(http.MethodGet, "/api/ssh/keys/laptop/private", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=laptop", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, created.Private, body(t, resp))

	resp = c.do(http.MethodDelete, "/api/ssh/keys/laptop", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = c.do(http.MethodGet, "/api/ssh/keys/laptop", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = c.do(http.MethodDelete, "/api/ssh/keys/laptop", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "deletion_failed", decode[ErrorResponse](t, resp).Error)
}

func TestGenerate_ValidationStatus(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)
	c.login()

	cases := []struct {
		req   core.GenerateRequest
		field string
	}{
		{core.GenerateRequest{Comment: "c", Algorithm: model.AlgorithmRSA}, core.FieldName},
		{core.GenerateRequest{Name: "k", Algorithm: model.AlgorithmRSA}, core.FieldComment},
		{core.GenerateRequest{Name: "k", Comment: "c", Algorithm: "ed448"}, core.FieldAlgorithm},
		{core.GenerateRequest{Name: "k", Comment: "c", Algorithm: model.AlgorithmECDSA, Bits: 224}, core.FieldBits},
	}
	for _, tc := range cases {
		resp := c.do(http.MethodPost, "/api/ssh/keys", tc.req)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "field %s", tc.field)
		e := decode[ErrorResponse](t, resp)
		assert.Equal(t, "validation", e.Error)
		assert.Equal(t, tc.field, e.Field)
	}
}

func TestGenerate_LocalizedMessage(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)
	c.login()

	resp := c.do(http.MethodPost, "/api/ssh/keys", core.GenerateRequest{Comment: "c"}, "Accept-Language", "de-DE,de;q=0.9")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	de := decode[ErrorResponse](t, resp)

	resp = c.do(http.MethodPost, "/api/ssh/keys", core.GenerateRequest{Comment: "c"}, "Accept-Language", "en")
	en := decode[ErrorResponse](t, resp)

	assert.NotEqual(t, "error.validation.name", en.Message)
	assert.NotEqual(t, en.Message, de.Message)
}

func TestImport(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)
	c.login()

	pair, err := sshkeys.Factory{}.Generate(model.AlgorithmECDSA, 256, "work laptop")
	require.NoError(t, err)

	resp := c.do(http.MethodPost, "/api/ssh/keys/import", core.ImportRequest{Private: pair.Private})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[model.SSHKeyItem](t, resp)
	assert.Equal(t, "work-laptop", item.Name)
	assert.Equal(t, pair.Fingerprint, item.Fingerprint)

	resp = c.do(http.MethodPost, "/api/ssh/keys/import", core.ImportRequest{Name: "junk", Private: "-----BEGIN NOTHING-----"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "import_failed", decode[ErrorResponse](t, resp).Error)
}

func TestPublicKeyEndpoints(t *testing.T) {
	p := newTestPortal(t)
	c := p.client(t)
	c.login()

	resp := c.do(http.MethodPost, "/api/ssh/keys", core.GenerateRequest{Name: "ci", Comment: "alice@ci", Algorithm: model.AlgorithmEd25519})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.SSHKeyItem](t, resp)

	anon := p.client(t)
	resp = anon.do(http.MethodGet, "/api/ssh/pub/raw/alice/ci", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := body(t, resp)
	assert.Equal(t, created.Public, raw)
	_, _, _, _, err := gossh.ParseAuthorizedKey([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Content-Disposition"))

	resp = anon.do(http.MethodGet, "/api/ssh/pub/download/alice/ci", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "attachment; filename=ci.pub", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, created.Public, body(t, resp))

	for _, target := range []string{"/api/ssh/pub/raw/alice/missing", "/api/ssh/pub/raw/nobody/ci", "/api/ssh/pub/download/alice/missing"} {
		resp = anon.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
	}
}

func TestPublicKey_StorageErrorIs500(t *testing.T) {
	store, err := db.NewStoreFromDSN("sqlite", testutil.MemoryDSN(t, "web"))
	require.NoError(t, err)
	accounts := db.NewAccountStore(store, time.Hour)
	sessions := core.NewSessionResolver(accounts, nil)
	orch := core.NewOrchestrator(sessions, db.NewRingStore(store), sshkeys.Factory{}, nil)
	srv, err := New(&HTTPServerConfig{Quiet: true}, NewHandler(sessions, orch, CookieConfig{}))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	req := httptest.NewRequest(http.MethodGet, "/api/ssh/pub/raw/alice/ci", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	assert.Equal(t, "internal", e.Error)
}

func TestSessionLocks_SerializeAndRelease(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "sid")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	go func() {
		rel, err := locks.acquire(ctx, "sid")
		if err == nil {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			rel()
		}
		close(done)
	}()

	// other sessions are not blocked
	other, err := locks.acquire(ctx, "other")
	require.NoError(t, err)
	other()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, "first")
	mu.Unlock()
	release()
	<-done

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 0, locks.size())
}

func TestSessionLocks_CancelledWaiter(t *testing.T) {
	locks := newSessionLocks()
	release, err := locks.acquire(context.Background(), "sid")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "sid")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Equal(t, 0, locks.size())
}

func TestStatusFor(t *testing.T) {
	cases := map[core.Kind]int{
		core.KindValidation:         http.StatusBadRequest,
		core.KindLoginRequired:      http.StatusUnauthorized,
		core.KindNotAuthenticated:   http.StatusUnauthorized,
		core.KindInvalidCredentials: http.StatusUnauthorized,
		core.KindNotFound:           http.StatusNotFound,
		core.KindConflict:           http.StatusConflict,
		core.KindGenerationFailed:   http.StatusUnprocessableEntity,
		core.KindImportFailed:       http.StatusUnprocessableEntity,
		core.KindDeletionFailed:     http.StatusUnprocessableEntity,
		"":                          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), "kind %q", kind)
	}
}
