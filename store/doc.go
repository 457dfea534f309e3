// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists polls, units and ballots.

It is the only package that speaks SQL. Queries are built with goqu in
prepared mode so the same code runs against PostgreSQL and SQLite; the
dialect is chosen once in New.

# Queries and transactions

Queries carries every read and write. A Store embeds one bound to the
connection pool, and WithTx hands a transaction-bound Queries to a
callback:

	err := s.WithTx(ctx, func(q *store.Queries) error {
		poll, err := q.PollByID(ctx, pollID)
		if err != nil {
			return err
		}
		return q.InsertBallot(ctx, ballot)
	})

The transaction commits when the callback returns nil and rolls back
otherwise. On SQLite the pool holds a single connection, so code inside a
callback must use q and never the outer Store.

# Ballots

A unit holds at most one ballot per poll, enforced by UNIQUE(poll_id,
unit_id). InsertBallot returns ErrConflict when that constraint fires.
ReplaceSelection rewrites the whole selection of an existing ballot in a
single UPDATE and increments updated_count; selections never merge.

Selected option IDs are stored as a JSON array in option_ids. For
single-choice polls option_id mirrors the one selected option so the
foreign key protects it.

# Errors

  - ErrNotFound: lookup by key matched no row
  - ErrConflict: unique or primary key violation
  - ErrUnavailable: the database could not be reached

Everything else is returned as-is.
*/
package store
