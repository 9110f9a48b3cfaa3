// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"net/url"
	"strings"

	"github.com/toeirei/ringwork/internal/logging"
	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/security"
)

// DefaultLoginPath is the route unauthenticated clients are sent to.
const DefaultLoginPath = "/login"

// SessionResolver turns client identity tokens into profiles. It holds no
// per-client state and is safe for concurrent use.
type SessionResolver struct {
	accounts  AccountGateway
	audit     AuditWriter
	loginPath string
}

// NewSessionResolver returns a resolver backed by accounts. audit may be nil.
func NewSessionResolver(accounts AccountGateway, audit AuditWriter) *SessionResolver {
	return &SessionResolver{accounts: accounts, audit: audit, loginPath: DefaultLoginPath}
}

// WithLoginPath overrides the redirect target used by Guard.
func (r *SessionResolver) WithLoginPath(path string) *SessionResolver {
	r.loginPath = path
	return r
}

// EnsureToken returns existing unchanged when it already carries a session
// id, otherwise an anonymous token with a fresh random session id.
func (r *SessionResolver) EnsureToken(existing *model.IdentityToken) model.IdentityToken {
	if existing == nil || existing.SessionID == "" {
		return model.NewIdentityToken()
	}
	return *existing
}

// Resolve returns the profile bound to token. Incomplete tokens, unknown or
// expired sessions and gateway failures all yield ErrNotAuthenticated.
func (r *SessionResolver) Resolve(ctx context.Context, token model.IdentityToken) (*model.Profile, error) {
	if !token.Authenticated() {
		return nil, &Error{Kind: KindNotAuthenticated, Detail: "incomplete identity token"}
	}
	profile, err := r.accounts.Fetch(ctx, token.SessionID, token.SecretKey)
	if err != nil {
		logging.Warnf("resolve session %s: %v", token.SessionID, err)
		return nil, failure(KindNotAuthenticated, err)
	}
	if profile == nil {
		return nil, &Error{Kind: KindNotAuthenticated}
	}
	return profile, nil
}

// Login checks the credentials and returns the profile together with the
// token carrying the newly issued secret. On failure the token is returned
// as passed in.
func (r *SessionResolver) Login(ctx context.Context, username string, password security.Secret, token model.IdentityToken) (*model.Profile, model.IdentityToken, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, token, validationError(FieldUsername, "username required")
	}
	if password.Empty() {
		return nil, token, validationError(FieldPassword, "password required")
	}

	issued := r.EnsureToken(&token)
	profile, secret, err := r.accounts.Login(ctx, username, password, issued.SessionID)
	if err != nil {
		logging.Warnf("login %s: %v", username, err)
		return nil, token, failure(KindInvalidCredentials, err)
	}
	if profile == nil || secret == "" {
		r.record(ctx, username, "LOGIN_FAILED", "")
		return nil, token, &Error{Kind: KindInvalidCredentials}
	}

	issued.SecretKey = secret
	r.record(ctx, profile.Username, "LOGIN", "session: "+issued.SessionID)
	return profile, issued, nil
}

// Logout revokes the session, when one is held, and returns the token with
// the secret cleared. Revocation failures are logged, never returned.
func (r *SessionResolver) Logout(ctx context.Context, token model.IdentityToken) model.IdentityToken {
	if token.SecretKey == "" {
		return token.Anonymous()
	}
	var username string
	if profile, err := r.accounts.Fetch(ctx, token.SessionID, token.SecretKey); err == nil && profile != nil {
		username = profile.Username
	}
	if err := r.accounts.Logout(ctx, token.SessionID, token.SecretKey); err != nil {
		logging.Warnf("logout session %s: %v", token.SessionID, err)
	} else if username != "" {
		r.record(ctx, username, "LOGOUT", "session: "+token.SessionID)
	}
	return token.Anonymous()
}

// GuardResult is the outcome of Guard: either Allowed with the profile, or a
// redirect to the login route.
type GuardResult struct {
	Allowed  bool
	Profile  *model.Profile
	Redirect string
}

// Guard allows the request when token resolves and otherwise redirects to
// the login route, carrying target as the return path when it is local.
func (r *SessionResolver) Guard(ctx context.Context, token model.IdentityToken, target string) GuardResult {
	profile, err := r.Resolve(ctx, token)
	if err == nil {
		return GuardResult{Allowed: true, Profile: profile}
	}
	return GuardResult{Redirect: LoginURL(r.loginPath, target)}
}

// LoginURL builds the login route with an optional ?target= return path.
func LoginURL(loginPath, target string) string {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if !IsLocalPath(target) {
		return loginPath
	}
	return loginPath + "?" + url.Values{"target": {target}}.Encode()
}

// SafeTarget returns target when it is a local absolute path and "/"
// otherwise.
func SafeTarget(target string) string {
	if IsLocalPath(target) {
		return target
	}
	return "/"
}

// IsLocalPath reports whether p is an absolute path on this host, so that
// following it cannot leave the portal.
func IsLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

func (r *SessionResolver) record(ctx context.Context, username, action, details string) {
	if r.audit == nil {
		return
	}
	if err := r.audit.LogAction(ctx, username, action, details); err != nil {
		logging.Warnf("audit %s: %v", action, err)
	}
}
