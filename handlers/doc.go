// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the gin handlers of the condovote API.

# Handler Types

Each handler is a struct over the ledger and a logger:

  - PollHandler: create, edit, list and transition polls
  - VotingHandler: cast votes and read a unit's ballot
  - ResultsHandler: tallies, participation and previews
  - UnitHandler: units, membership and the caller's units

	pollHandler := handlers.NewPollHandler(l, log)

Handlers hold no rules of their own beyond two access checks: a caller may
only vote or read a ballot for a unit they are linked to, and results are
shown only when visible. Everything else is the ledger's decision, and its
errors are written with middleware.LedgerError.

# Result Visibility

	closed                                   final tally
	open, show_partial, inside the window    partial tally
	anything else                            403

?detail=true additionally requires the staff key and only yields per-unit
lines for tracked polls.
*/
package handlers
