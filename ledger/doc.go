// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger enforces the voting rules.

# Poll lifecycle

Polls move draft → open → closed and never back. Only drafts can be edited
or gain options, and a poll needs at least two options to open. Transitions
are compare-and-set on the stored status, so of two concurrent closes one
wins and the other gets ErrInvalidState.

# Casting

CastVote checks, in order: the poll exists, it is open, now falls inside
[start_at, end_at], the selection fits the poll type, a tracked poll has a
voter, and the unit exists. The check and the write share one transaction.

A unit holds one ballot per poll. With allow_vote_change the new selection
replaces the old one; without it the second vote fails with
ErrAlreadyVoted. Anonymous polls drop the voter before anything is stored.

Whether the caller may vote for the unit is not checked here; see
IsEligible.

# Tally

Tally counts ballots per option and derives percentages rounded to two
places. Closed polls yield a final result. Per-unit detail is only ever
produced for tracked polls.

# Errors

Every rejection wraps one of the Err* kinds; Kind recovers it.
*/
package ledger
