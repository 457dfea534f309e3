// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll status constants
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Poll type constants
const (
	TypeSingleChoice = "single_choice"
	TypeMultiChoice  = "multi_choice"
)

// Audit mode constants
const (
	AuditAnonymous = "anonymous"
	AuditTracked   = "tracked"
)

// Domain types

type Poll struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Type            string     `json:"type"`
	AuditMode       string     `json:"audit_mode"`
	ShowPartial     bool       `json:"show_partial"`
	AllowVoteChange bool       `json:"allow_vote_change"`
	CreatedBy       string     `json:"created_by"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           time.Time  `json:"end_at"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	OpenedAt        *time.Time `json:"opened_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// InWindow reports whether t falls inside [StartAt, EndAt], bounds included.
func (p Poll) InWindow(t time.Time) bool {
	return !t.Before(p.StartAt) && !t.After(p.EndAt)
}

type Option struct {
	ID       string `json:"id"`
	PollID   string `json:"poll_id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

type PollWithOptions struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

type Unit struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitStatus tells a resident whether a unit already voted in a poll.
type UnitStatus struct {
	Unit     Unit `json:"unit"`
	HasVoted bool `json:"has_voted"`
}

type Ballot struct {
	ID           string    `json:"id"`
	PollID       string    `json:"poll_id"`
	UnitID       string    `json:"unit_id"`
	OptionID     *string   `json:"option_id,omitempty"`
	OptionIDs    []string  `json:"option_ids"`
	VoterUserID  *string   `json:"voter_user_id,omitempty"`
	CastAt       time.Time `json:"cast_at"`
	UpdatedCount int       `json:"updated_count"`
}

// Tally types

type OptionTally struct {
	OptionID   string  `json:"option_id"`
	Label      string  `json:"label"`
	Position   int     `json:"position"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// BallotDetail is a per-unit line of a tracked poll's tally.
type BallotDetail struct {
	UnitID      string    `json:"unit_id"`
	UnitNumber  string    `json:"unit_number"`
	OptionIDs   []string  `json:"option_ids"`
	VoterUserID string    `json:"voter_user_id"`
	CastAt      time.Time `json:"cast_at"`
}

type TallyResult struct {
	PollID     string         `json:"poll_id"`
	Status     string         `json:"status"`
	Final      bool           `json:"final"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionTally  `json:"options"`
	Detail     []BallotDetail `json:"detail,omitempty"`
	ComputedAt time.Time      `json:"computed_at"`
}

// Request types

type CreatePollRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Type            string    `json:"type"`
	AuditMode       string    `json:"audit_mode"`
	ShowPartial     bool      `json:"show_partial"`
	AllowVoteChange bool      `json:"allow_vote_change"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	Options         []string  `json:"options"`
}

// UpdateDraftRequest carries only the fields being changed.
type UpdateDraftRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Options     []string   `json:"options,omitempty"`
}

type AddOptionRequest struct {
	Label string `json:"label"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type CastVoteRequest struct {
	UnitID    string   `json:"unit_id"`
	OptionIDs []string `json:"option_ids"`
}

type CreateUnitRequest struct {
	Number string `json:"number"`
}

type LinkMemberRequest struct {
	UserID string `json:"user_id"`
}

// Response types

type CreatePollResponse struct {
	PollID string `json:"poll_id"`
}

type AddOptionResponse struct {
	OptionID string `json:"option_id"`
}

type CastVoteResponse struct {
	Ballot  Ballot `json:"ballot"`
	Message string `json:"message"`
}

type BallotCountResponse struct {
	BallotCount int `json:"ballot_count"`
}

// PollPreviewResponse is a compact poll summary for chat menus.
type PollPreviewResponse struct {
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	EndAt       time.Time `json:"end_at"`
	OptionCount int       `json:"option_count"`
	BallotCount int       `json:"ballot_count"`
}

type ListPollsResponse struct {
	Polls []Poll `json:"polls"`
}

type EligibleUnitsResponse struct {
	Units []UnitStatus `json:"units"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
