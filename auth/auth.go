// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"strings"
)

// Request headers
const (
	HeaderStaffKey = "X-Staff-Key"
	HeaderUserID   = "X-User-ID"
)

var (
	ErrInvalidStaffKey = errors.New("invalid staff key")
	ErrMissingUser     = errors.New("missing user identity")
)

// ValidateStaffKey checks the key presented by an operator against the
// configured one. Both sides are hashed first so the comparison takes the
// same time whatever their lengths.
func ValidateStaffKey(provided, expected string) error {
	if provided == "" || expected == "" {
		return ErrInvalidStaffKey
	}

	p := sha256.Sum256([]byte(provided))
	e := sha256.Sum256([]byte(expected))
	if !hmac.Equal(p[:], e[:]) {
		return ErrInvalidStaffKey
	}
	return nil
}

// UserID normalises the identity asserted by the upstream session layer.
func UserID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrMissingUser
	}
	return id, nil
}
