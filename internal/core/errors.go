// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
)

// Kind classifies a failure reported by the session resolver or the key
// lifecycle operations. Transports map kinds to status codes and messages.
type Kind string

const (
	KindLoginRequired      Kind = "login_required"
	KindNotAuthenticated   Kind = "not_authenticated"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindGenerationFailed   Kind = "generation_failed"
	KindImportFailed       Kind = "import_failed"
	KindDeletionFailed     Kind = "deletion_failed"
	KindNotFound           Kind = "not_found"
)

// Error is the single typed failure returned by this package. Field is set
// for validation errors, Detail carries a human readable cause and Err the
// wrapped collaborator error, if any.
type Error struct {
	Kind   Kind
	Field  string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Field when the target names one, so
// errors.Is(err, ErrConflict) holds for every conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

// Sentinels for errors.Is comparisons.
var (
	ErrLoginRequired      = &Error{Kind: KindLoginRequired}
	ErrNotAuthenticated   = &Error{Kind: KindNotAuthenticated}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrGenerationFailed   = &Error{Kind: KindGenerationFailed}
	ErrImportFailed       = &Error{Kind: KindImportFailed}
	ErrDeletionFailed     = &Error{Kind: KindDeletionFailed}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// Input fields named by validation errors.
const (
	FieldName      = "name"
	FieldComment   = "comment"
	FieldAlgorithm = "algorithm"
	FieldBits      = "bits"
	FieldPrivate   = "private"
	FieldUsername  = "username"
	FieldPassword  = "password"
)

func validationError(field, detail string) *Error {
	return &Error{Kind: KindValidation, Field: field, Detail: detail}
}

func failure(kind Kind, err error) *Error {
	if err == nil {
		return &Error{Kind: kind}
	}
	return &Error{Kind: kind, Detail: err.Error(), Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldOf returns the offending input field of a validation error.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// MessageID returns the translation id describing err. Errors outside this
// package map to "error.internal".
func MessageID(err error) string {
	var e *Error
	switch {
	case !errors.As(err, &e):
		return "error.internal"
	case e.Kind == KindValidation && e.Field != "":
		return "error.validation." + e.Field
	default:
		return "error." + string(e.Kind)
	}
}
