// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"

	"github.com/danielhkuo/condovote/store"
)

// SetBeforeBallotInsert installs a function run just before a new ballot is
// inserted, inside the vote transaction.
func (l *Ledger) SetBeforeBallotInsert(fn func(ctx context.Context, q *store.Queries) error) {
	l.hooks.beforeInsert = fn
}

// SetBeforeVoteRetry installs a function run between a conflicting vote
// attempt and its retry.
func (l *Ledger) SetBeforeVoteRetry(fn func(ctx context.Context)) {
	l.hooks.beforeRetry = fn
}
