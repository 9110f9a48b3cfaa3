// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/toeirei/ringwork/internal/model"
)

// Key size defaults and limits.
const (
	DefaultRSABits   = 4096
	MinRSABits       = 1024
	DSABits          = 1024
	DefaultECDSABits = 521
	Ed25519Bits      = 256
	maxKeyNameLength = 128
	maxCommentLength = 1024
)

// NormalizeBits maps a requested key size to the size that will actually be
// generated. Non-positive bits select the algorithm default. RSA sizes below
// the minimum are raised to it, DSA and ed25519 sizes are fixed and ECDSA
// sizes outside {256, 384, 521} are rejected.
func NormalizeBits(algorithm model.Algorithm, bits int) (int, error) {
	if !algorithm.Valid() {
		return 0, validationError(FieldAlgorithm, fmt.Sprintf("unsupported algorithm %q", algorithm))
	}
	switch algorithm {
	case model.AlgorithmRSA:
		if bits <= 0 {
			return DefaultRSABits, nil
		}
		return max(MinRSABits, bits), nil
	case model.AlgorithmDSA:
		return DSABits, nil
	case model.AlgorithmECDSA:
		switch {
		case bits <= 0:
			return DefaultECDSABits, nil
		case bits == 256, bits == 384, bits == 521:
			return bits, nil
		}
		return 0, validationError(FieldBits, fmt.Sprintf("ecdsa key size must be 256, 384 or 521, got %d", bits))
	default:
		return Ed25519Bits, nil
	}
}

// ValidateKeyName checks a non-empty key name. Names end up in URLs and
// download file names, so separators and control characters are refused.
func ValidateKeyName(name string) error {
	if len(name) > maxKeyNameLength {
		return validationError(FieldName, "name too long")
	}
	if name == "." || name == ".." {
		return validationError(FieldName, "invalid name")
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == '"' || unicode.IsControl(r) {
			return validationError(FieldName, fmt.Sprintf("name must not contain %q", r))
		}
	}
	return nil
}

// ValidateKeyComment checks a non-empty key comment. The comment ends the
// authorized_keys line, so it must stay on that line.
func ValidateKeyComment(comment string) error {
	if len(comment) > maxCommentLength {
		return validationError(FieldComment, "comment too long")
	}
	for _, r := range comment {
		if unicode.IsControl(r) {
			return validationError(FieldComment, fmt.Sprintf("comment must not contain %q", r))
		}
	}
	return nil
}

// KeyNameFromComment derives a ring name from a key comment. Whitespace runs
// become dashes and path separators underscores.
func KeyNameFromComment(comment string) string {
	name := strings.Join(strings.Fields(comment), "-")
	return strings.NewReplacer("/", "_", "\\", "_", "\"", "").Replace(name)
}
