// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/metrics"
	"github.com/danielhkuo/condovote/store"
)

// Ledger owns every rule about polls, units and ballots. Callers reach the
// database only through it.
type Ledger struct {
	store   *store.Store
	log     logrus.FieldLogger
	metrics *metrics.MetricService
	now     func() time.Time
	hooks   castHooks
}

// castHooks are seams inside CastVote. Both are nil outside tests.
type castHooks struct {
	// beforeInsert runs in the vote transaction after no existing ballot was
	// found. A non-nil error aborts the attempt as if the insert returned it.
	beforeInsert func(ctx context.Context, q *store.Queries) error
	// beforeRetry runs between a conflicting attempt and its retry.
	beforeRetry func(ctx context.Context)
}

func New(st *store.Store, log logrus.FieldLogger, ms *metrics.MetricService) *Ledger {
	return &Ledger{
		store:   st,
		log:     log,
		metrics: ms,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests to pin the voting window.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Now returns the current time in UTC according to the ledger's clock.
func (l *Ledger) Now() time.Time {
	return l.now().UTC()
}
