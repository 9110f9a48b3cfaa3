// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toeirei/ringwork/internal/core"
	"github.com/toeirei/ringwork/internal/i18n"
	"github.com/toeirei/ringwork/internal/logging"
)

// Kinds reported for failures that do not come from the core.
const (
	kindBadRequest = "bad_request"
	kindInternal   = "internal"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindLoginRequired, core.KindNotAuthenticated, core.KindInvalidCredentials:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindGenerationFailed, core.KindImportFailed, core.KindDeletionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func languages(r *http.Request) []string {
	if al := r.Header.Get("Accept-Language"); al != "" {
		return []string{al}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.L.Error("Failed to encode response", "err", err)
	}
}

// writeError renders err with the status of its kind and a localized
// message. Errors outside the core taxonomy become 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	field := core.FieldOf(err)
	status := StatusFor(kind)

	resp := ErrorResponse{Error: string(kind), Field: field}
	if kind == "" {
		resp.Error = kindInternal
		logging.L.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	resp.Message = i18n.TL(languages(r), core.MessageID(err))
	switch kind {
	case core.KindGenerationFailed, core.KindImportFailed, core.KindDeletionFailed:
		var ce *core.Error
		if errors.As(err, &ce) && ce.Detail != "" {
			resp.Message += ": " + ce.Detail
		}
	}
	writeJSON(w, status, resp)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	logging.L.Debug("Bad request", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   kindBadRequest,
		Message: i18n.TL(languages(r), "error."+kindBadRequest),
	})
}
