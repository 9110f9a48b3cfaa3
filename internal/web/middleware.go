// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/toeirei/ringwork/internal/core"
	"github.com/toeirei/ringwork/internal/logging"
	"github.com/toeirei/ringwork/internal/model"
)

// Cookie names carrying the identity token.
const (
	SessionCookie = "ringwork_session"
	SecretCookie  = "ringwork_secret"
)

// sessionCookieMaxAge keeps the session id for a year; the secret cookie
// lives as long as the server side session.
const sessionCookieMaxAge = 365 * 24 * 60 * 60

type ctxKey int

const (
	tokenKey ctxKey = iota
	profileKey
)

// CookieConfig controls the attributes of the token cookies.
type CookieConfig struct {
	Secure    bool
	SecretTTL time.Duration
}

func tokenFrom(ctx context.Context) model.IdentityToken {
	tok, _ := ctx.Value(tokenKey).(model.IdentityToken)
	return tok
}

func profileFrom(ctx context.Context) *model.Profile {
	p, _ := ctx.Value(profileKey).(*model.Profile)
	return p
}

func readToken(r *http.Request) *model.IdentityToken {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	tok := model.IdentityToken{SessionID: c.Value}
	if s, err := r.Cookie(SecretCookie); err == nil {
		tok.SecretKey = s.Value
	}
	return &tok
}

func (h *Handler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) setSecret(w http.ResponseWriter, secret string) {
	http.SetCookie(w, h.cookie(SecretCookie, secret, int(h.cookies.SecretTTL/time.Second)))
}

func (h *Handler) clearSecret(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(SecretCookie, "", -1))
}

// ensureToken gives every request an identity token, issuing a session id
// cookie when the client has none.
func (h *Handler) ensureToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		existing := readToken(r)
		tok := h.sessions.EnsureToken(existing)
		if existing == nil {
			http.SetCookie(w, h.cookie(SessionCookie, tok.SessionID, sessionCookieMaxAge))
			if _, err := r.Cookie(SecretCookie); err == nil {
				h.clearSecret(w)
			}
		}
		ctx := context.WithValue(r.Context(), tokenKey, tok)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireProfile lets the request through only when its token resolves.
// Browser navigations are redirected to the login route, API calls get 401.
func (h *Handler) requireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := h.sessions.Guard(r.Context(), tokenFrom(r.Context()), r.URL.RequestURI())
		if !res.Allowed {
			if wantsHTML(r) {
				http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
				return
			}
			writeError(w, r, core.ErrLoginRequired)
			return
		}
		ctx := context.WithValue(r.Context(), profileKey, res.Profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// serialize runs mutating requests of one session one at a time.
func (h *Handler) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := tokenFrom(r.Context()).SessionID
		release, err := h.locks.acquire(r.Context(), sid)
		if err != nil {
			// client went away while queued
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

// sessionLocks hands out one lock per session id and forgets it once no
// request holds or waits for it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: map[string]*sessionLock{}}
}

func (s *sessionLocks) acquire(ctx context.Context, sid string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[sid]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		s.locks[sid] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			s.unref(sid, l)
		}, nil
	case <-ctx.Done():
		s.unref(sid, l)
		return nil, ctx.Err()
	}
}

func (s *sessionLocks) unref(sid string, l *sessionLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, sid)
	}
}

func (s *sessionLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.L.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
