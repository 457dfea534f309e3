// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/condovote/store"
)

// Error kinds. Every rejection wraps exactly one of these; test with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrWindowClosed       = errors.New("voting window closed")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrInvalidPoll        = errors.New("invalid poll")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingVoter       = errors.New("missing voter")
	ErrAlreadyVoted       = errors.New("unit already voted")
	ErrUnitExists         = errors.New("unit already exists")
	ErrStorageConflict    = errors.New("storage conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
)

var kinds = []error{
	ErrNotFound,
	ErrInvalidState,
	ErrWindowClosed,
	ErrInvalidSelection,
	ErrInvalidPoll,
	ErrInvalidInput,
	ErrMissingVoter,
	ErrAlreadyVoted,
	ErrUnitExists,
	ErrStorageConflict,
	ErrServiceUnavailable,
}

// Kind returns the error kind wrapped by err, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// translate maps store errors onto ledger kinds. what names the missing
// record for ErrNotFound messages.
func translate(err error, what string) error {
	if err == nil || Kind(err) != nil {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrStorageConflict, err)
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return err
}

// reason is the metrics label for a rejected vote.
func reason(err error) string {
	switch Kind(err) {
	case ErrNotFound:
		return "not_found"
	case ErrInvalidState:
		return "invalid_state"
	case ErrWindowClosed:
		return "window_closed"
	case ErrInvalidSelection:
		return "invalid_selection"
	case ErrMissingVoter:
		return "missing_voter"
	case ErrAlreadyVoted:
		return "already_voted"
	case ErrServiceUnavailable:
		return "unavailable"
	}
	return "error"
}
