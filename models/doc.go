// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: title, description, type, audit_mode, flags, window, options
  - UpdateDraftRequest: only the fields being changed
  - AddOptionRequest: label
  - TransitionRequest: status
  - CastVoteRequest: unit_id, option_ids
  - CreateUnitRequest: number
  - LinkMemberRequest: user_id

# Response Types

Types for JSON responses:

  - CastVoteResponse: ballot, message
  - BallotCountResponse: ballot_count
  - PollPreviewResponse: title, status, end_at, counts
  - ListPollsResponse, EligibleUnitsResponse
  - ErrorResponse: error, message

# Domain Types

  - Poll: poll metadata and lifecycle state
  - Option: voting option with label and position
  - Unit: housing unit, the voting principal
  - Ballot: one unit's selection in one poll
  - TallyResult: per-option counts and percentages

# Constants

Status values:

	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"

Poll types:

	TypeSingleChoice = "single_choice"
	TypeMultiChoice  = "multi_choice"

Audit modes:

	AuditAnonymous = "anonymous"
	AuditTracked   = "tracked"
*/
package models
