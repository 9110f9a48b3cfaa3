// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/security"
)

func TestEnsureToken(t *testing.T) {
	r := NewSessionResolver(newFakeAccounts(), nil)

	fresh := r.EnsureToken(nil)
	if fresh.SessionID == "" || fresh.SecretKey != "" {
		t.Fatalf("expected anonymous token with session id, got %+v", fresh)
	}

	empty := r.EnsureToken(&model.IdentityToken{})
	if empty.SessionID == "" {
		t.Fatalf("expected session id for empty token")
	}

	stored := model.IdentityToken{SessionID: "sid-1", SecretKey: "s"}
	for i := 0; i < 2; i++ {
		got := r.EnsureToken(&stored)
		if got != stored {
			t.Fatalf("populated token changed on call %d: %+v", i, got)
		}
		stored = got
	}
}

func TestResolve_IncompleteTokenSkipsGateway(t *testing.T) {
	accounts := newFakeAccounts()
	r := NewSessionResolver(accounts, nil)

	for _, tok := range []model.IdentityToken{{}, {SessionID: "sid"}, {SecretKey: "secret"}} {
		if _, err := r.Resolve(context.Background(), tok); !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("expected NotAuthenticated for %+v, got %v", tok, err)
		}
	}
	if accounts.fetchCalls != 0 {
		t.Fatalf("gateway must not be called for incomplete tokens, got %d calls", accounts.fetchCalls)
	}
}

func TestResolve(t *testing.T) {
	accounts := newFakeAccounts()
	r := NewSessionResolver(accounts, nil)
	tok := accounts.login("sid-1")

	p, err := r.Resolve(context.Background(), tok)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.Username != "alice" || p.Workspace != "ws-alice" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	wrong := tok
	wrong.SecretKey = "other"
	if _, err := r.Resolve(context.Background(), wrong); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected NotAuthenticated for wrong secret, got %v", err)
	}

	accounts.fetchErr = errors.New("db down")
	_, err = r.Resolve(context.Background(), tok)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected NotAuthenticated for gateway failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	accounts := newFakeAccounts()
	audit := &fakeAudit{}
	r := NewSessionResolver(accounts, audit)
	anon := model.IdentityToken{SessionID: "sid-7"}

	p, tok, err := r.Login(context.Background(), "alice", security.FromString("wonderland"), anon)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if p.Username != "alice" || tok.SessionID != "sid-7" || tok.SecretKey == "" {
		t.Fatalf("unexpected login result: %+v %+v", p, tok)
	}
	if _, err := r.Resolve(context.Background(), tok); err != nil {
		t.Fatalf("issued token does not resolve: %v", err)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "alice:LOGIN" {
		t.Fatalf("unexpected audit trail: %v", audit.actions)
	}
}

func TestLogin_AssignsSessionIDWhenMissing(t *testing.T) {
	r := NewSessionResolver(newFakeAccounts(), nil)
	_, tok, err := r.Login(context.Background(), "alice", security.FromString("wonderland"), model.IdentityToken{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if tok.SessionID == "" || tok.SecretKey == "" {
		t.Fatalf("expected complete token, got %+v", tok)
	}
}

func TestLogin_Failures(t *testing.T) {
	accounts := newFakeAccounts()
	r := NewSessionResolver(accounts, nil)
	anon := model.IdentityToken{SessionID: "sid-2"}

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"empty username", "  ", "x", &Error{Kind: KindValidation, Field: FieldUsername}},
		{"empty password", "alice", "", &Error{Kind: KindValidation, Field: FieldPassword}},
		{"wrong password", "alice", "nope", ErrInvalidCredentials},
		{"unknown user", "bob", "x", ErrInvalidCredentials},
	}
	for _, tc := range cases {
		_, tok, err := r.Login(context.Background(), tc.username, security.FromString(tc.password), anon)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if tok != anon {
			t.Fatalf("%s: token modified on failure: %+v", tc.name, tok)
		}
	}
	if accounts.loginCalls != 2 {
		t.Fatalf("validation failures must not reach the gateway, got %d calls", accounts.loginCalls)
	}

	accounts.loginErr = errors.New("db down")
	if _, _, err := r.Login(context.Background(), "alice", security.FromString("wonderland"), anon); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected InvalidCredentials on gateway error, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	accounts := newFakeAccounts()
	r := NewSessionResolver(accounts, nil)
	tok := accounts.login("sid-3")

	out := r.Logout(context.Background(), tok)
	if out.SessionID != "sid-3" || out.SecretKey != "" {
		t.Fatalf("unexpected token after logout: %+v", out)
	}
	if accounts.logoutCalls != 1 {
		t.Fatalf("expected one revoke, got %d", accounts.logoutCalls)
	}
	if _, err := r.Resolve(context.Background(), tok); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("revoked token still resolves: %v", err)
	}

	again := r.Logout(context.Background(), out)
	if again != out || accounts.logoutCalls != 1 {
		t.Fatalf("logout of anonymous token must be a no-op: %+v calls=%d", again, accounts.logoutCalls)
	}
}

func TestLogout_GatewayErrorStillClearsSecret(t *testing.T) {
	accounts := newFakeAccounts()
	r := NewSessionResolver(accounts, nil)
	tok := accounts.login("sid-4")
	accounts.logoutErr = errors.New("db down")

	if out := r.Logout(context.Background(), tok); out.SecretKey != "" {
		t.Fatalf("secret must be cleared even when revocation fails")
	}
}

func TestGuard(t *testing.T) {
	accounts := newFakeAccounts()
	r := NewSessionResolver(accounts, nil)
	tok := accounts.login("sid-5")

	res := r.Guard(context.Background(), tok, "/keys")
	if !res.Allowed || res.Profile == nil || res.Redirect != "" {
		t.Fatalf("expected allow, got %+v", res)
	}

	anon := tok.Anonymous()
	first := r.Guard(context.Background(), anon, "/keys")
	second := r.Guard(context.Background(), anon, "/keys")
	if first.Allowed || first.Redirect != "/login?target=%2Fkeys" {
		t.Fatalf("unexpected guard result: %+v", first)
	}
	if first != second {
		t.Fatalf("guard must be deterministic: %+v vs %+v", first, second)
	}

	if res := r.Guard(context.Background(), anon, "https://evil.example/x"); res.Redirect != "/login" {
		t.Fatalf("foreign target must be dropped, got %q", res.Redirect)
	}
}

func TestIsLocalPath(t *testing.T) {
	cases := map[string]bool{
		"/":                   true,
		"/keys?x=1":           true,
		"":                    false,
		"keys":                false,
		"//evil.example":      false,
		"/\\evil.example":     false,
		"http://evil.example": false,
	}
	for in, want := range cases {
		if got := IsLocalPath(in); got != want {
			t.Errorf("IsLocalPath(%q) = %v, want %v", in, got, want)
		}
	}
	if SafeTarget("//evil") != "/" || SafeTarget("/keys") != "/keys" {
		t.Fatalf("SafeTarget did not sanitize")
	}
}
