// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/toeirei/ringwork/internal/core"
	"github.com/toeirei/ringwork/internal/logging"
	"github.com/toeirei/ringwork/internal/security"
)

// maxBodyBytes bounds JSON request bodies; imported private keys are the
// largest legitimate payload.
const maxBodyBytes = 1 << 20

// Handler implements the portal API on top of the session resolver and the
// key lifecycle orchestrator.
type Handler struct {
	sessions *core.SessionResolver
	keys     *core.Orchestrator
	cookies  CookieConfig
	locks    *sessionLocks
}

// NewHandler creates a new API handler.
func NewHandler(sessions *core.SessionResolver, keys *core.Orchestrator, cookies CookieConfig) *Handler {
	return &Handler{
		sessions: sessions,
		keys:     keys,
		cookies:  cookies,
		locks:    newSessionLocks(),
	}
}

// RegisterRoutes registers the API routes with r. The routes expect the
// ensure-token middleware to run first.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/ssh/pub/raw/{uid}/{kid}", h.HandlePublicKeyRaw)
	r.Get("/api/ssh/pub/download/{uid}/{kid}", h.HandlePublicKeyDownload)

	r.With(h.serialize).Post("/api/session/login", h.HandleLogin)
	r.With(h.serialize).Post("/api/session/logout", h.HandleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireProfile)
		r.Get("/api/session", h.HandleSession)
		r.Get("/api/ssh/keys", h.HandleListKeys)
		r.Get("/api/ssh/keys/{name}", h.HandleGetKey)
		r.Get("/api/ssh/keys/{name}/private", h.HandlePrivateKey)

		r.Group(func(r chi.Router) {
			r.Use(h.serialize)
			r.Post("/api/ssh/keys", h.HandleGenerateKey)
			r.Post("/api/ssh/keys/import", h.HandleImportKey)
			r.Delete("/api/ssh/keys/{name}", h.HandleDeleteKey)
		})
	})
}

// urlParam returns the decoded path parameter. chi routes on RawPath when
// the request carries escapes that Path cannot represent.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// LoginRequest is the body of POST /api/session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Username  string `json:"username"`
	Workspace string `json:"workspace"`
	Redirect  string `json:"redirect"`
}

// HandleLogin verifies credentials and stores the issued secret in a cookie.
//
// Responses:
//   - 200 OK: {username, workspace, redirect}
//   - 400 Bad Request: malformed body or missing username/password
//   - 401 Unauthorized: invalid credentials
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	password := security.FromString(req.Password)
	defer password.Zero()

	profile, tok, err := h.sessions.Login(r.Context(), req.Username, password, tokenFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setSecret(w, tok.SecretKey)
	writeJSON(w, http.StatusOK, LoginResponse{
		Username:  profile.Username,
		Workspace: profile.Workspace,
		Redirect:  core.SafeTarget(r.URL.Query().Get("target")),
	})
}

// HandleLogout revokes the session and clears the secret cookie. It
// succeeds for clients that are not logged in.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context(), tokenFrom(r.Context()))
	h.clearSecret(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession returns the profile of the logged in user.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profileFrom(r.Context()))
}

// HandleListKeys returns the caller's ring without private material.
func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	items, err := h.keys.List(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range items {
		items[i].Private = ""
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGetKey returns one key including its private half.
func (h *Handler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	item, err := h.keys.Get(r.Context(), tokenFrom(r.Context()), urlParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, item)
}

// HandlePrivateKey serves the private key as a file download.
func (h *Handler) HandlePrivateKey(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	item, err := h.keys.Get(r.Context(), tokenFrom(r.Context()), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Disposition", attachment(name))
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, item.Private)
}

// HandleGenerateKey creates a key pair from a GenerateRequest body.
//
// Responses:
//   - 201 Created: the new key including its private half
//   - 400 Bad Request: invalid name, comment, algorithm or bits
//   - 409 Conflict: the name is taken
//   - 422 Unprocessable Entity: key generation or storage failed
func (h *Handler) HandleGenerateKey(w http.ResponseWriter, r *http.Request) {
	var req core.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	item, err := h.keys.Generate(r.Context(), tokenFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.L.Debug("Generated key", "name", item.Name, "user", item.User)
	writeJSON(w, http.StatusCreated, item)
}

// HandleImportKey stores an existing private key from an ImportRequest body.
func (h *Handler) HandleImportKey(w http.ResponseWriter, r *http.Request) {
	var req core.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	item, err := h.keys.Import(r.Context(), tokenFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleDeleteKey removes a key from the caller's ring.
func (h *Handler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Delete(r.Context(), tokenFrom(r.Context()), urlParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePublicKeyRaw serves a user's public key as plain text.
func (h *Handler) HandlePublicKeyRaw(w http.ResponseWriter, r *http.Request) {
	h.servePublicKey(w, r, false)
}

// HandlePublicKeyDownload serves a user's public key as a .pub attachment.
func (h *Handler) HandlePublicKeyDownload(w http.ResponseWriter, r *http.Request) {
	h.servePublicKey(w, r, true)
}

func (h *Handler) servePublicKey(w http.ResponseWriter, r *http.Request, download bool) {
	uid, kid := urlParam(r, "uid"), urlParam(r, "kid")
	pub, err := h.keys.PublicKey(r.Context(), uid, kid)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			logging.L.Error("Failed to load public key", "user", uid, "key", kid, "err", err)
		}
		writeError(w, r, err)
		return
	}
	if download {
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Disposition", attachment(kid+".pub"))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, pub)
}

func attachment(filename string) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if v == "" {
		return "attachment"
	}
	return v
}
