// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/danielhkuo/condovote/models"
)

type pollRow struct {
	ID              string     `db:"id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	Type            string     `db:"poll_type"`
	AuditMode       string     `db:"audit_mode"`
	ShowPartial     bool       `db:"show_partial"`
	AllowVoteChange bool       `db:"allow_vote_change"`
	CreatedBy       string     `db:"created_by"`
	StartAt         time.Time  `db:"start_at"`
	EndAt           time.Time  `db:"end_at"`
	Status          string     `db:"status"`
	CreatedAt       time.Time  `db:"created_at"`
	OpenedAt        *time.Time `db:"opened_at"`
	ClosedAt        *time.Time `db:"closed_at"`
}

func (r pollRow) toModel() models.Poll {
	return models.Poll{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Type:            r.Type,
		AuditMode:       r.AuditMode,
		ShowPartial:     r.ShowPartial,
		AllowVoteChange: r.AllowVoteChange,
		CreatedBy:       r.CreatedBy,
		StartAt:         r.StartAt,
		EndAt:           r.EndAt,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		OpenedAt:        r.OpenedAt,
		ClosedAt:        r.ClosedAt,
	}
}

type optionRow struct {
	ID       string `db:"id"`
	PollID   string `db:"poll_id"`
	Label    string `db:"label"`
	Position int    `db:"position"`
}

// InsertPoll stores a new poll. Options are inserted separately.
func (s *Queries) InsertPoll(ctx context.Context, p models.Poll) error {
	_, err := s.q.Insert(tablePoll).Rows(goqu.Record{
		"id":                p.ID,
		"title":             p.Title,
		"description":       p.Description,
		"poll_type":         p.Type,
		"audit_mode":        p.AuditMode,
		"show_partial":      p.ShowPartial,
		"allow_vote_change": p.AllowVoteChange,
		"created_by":        p.CreatedBy,
		"start_at":          p.StartAt,
		"end_at":            p.EndAt,
		"status":            p.Status,
		"created_at":        p.CreatedAt,
	}).Prepared(true).Executor().ExecContext(ctx)

	return classify(err)
}

// PollByID returns ErrNotFound when the poll does not exist.
func (s *Queries) PollByID(ctx context.Context, id string) (*models.Poll, error) {
	var row pollRow

	found, err := s.q.From(tablePoll).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, classify(err)
	}
	if !found {
		return nil, ErrNotFound
	}

	poll := row.toModel()
	return &poll, nil
}

// PollForVote reads a poll inside a vote transaction. On PostgreSQL the row
// is held FOR SHARE until the transaction ends, so a status change commits
// either before the read or after the ballot write. SQLite serialises
// writers and needs no lock clause.
func (s *Queries) PollForVote(ctx context.Context, id string) (*models.Poll, error) {
	var row pollRow

	found, err := s.pollForVote(id).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, classify(err)
	}
	if !found {
		return nil, ErrNotFound
	}

	poll := row.toModel()
	return &poll, nil
}

func (s *Queries) pollForVote(id string) *goqu.SelectDataset {
	ds := s.q.From(tablePoll).Where(goqu.C("id").Eq(id))
	if s.q.Dialect() == "postgres" {
		ds = ds.ForShare(exp.Wait)
	}
	return ds.Prepared(true)
}

// ListPolls returns polls newest first. An empty status lists every poll.
func (s *Queries) ListPolls(ctx context.Context, status string) ([]models.Poll, error) {
	ds := s.q.From(tablePoll).Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())
	if status != "" {
		ds = ds.Where(goqu.C("status").Eq(status))
	}

	var rows []pollRow
	if err := ds.Prepared(true).ScanStructsContext(ctx, &rows); err != nil {
		return nil, classify(err)
	}

	polls := make([]models.Poll, 0, len(rows))
	for _, row := range rows {
		polls = append(polls, row.toModel())
	}
	return polls, nil
}

// UpdateDraft rewrites the editable fields of a poll, but only while it is
// still a draft. It reports whether a row was changed.
func (s *Queries) UpdateDraft(ctx context.Context, p models.Poll) (bool, error) {
	res, err := s.q.Update(tablePoll).Set(goqu.Record{
		"title":       p.Title,
		"description": p.Description,
		"start_at":    p.StartAt,
		"end_at":      p.EndAt,
	}).Where(
		goqu.C("id").Eq(p.ID),
		goqu.C("status").Eq(models.StatusDraft),
	).Prepared(true).Executor().ExecContext(ctx)
	if err != nil {
		return false, classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// SetStatus moves a poll from one status to another as a compare-and-set:
// nothing changes unless the stored status still equals from.
func (s *Queries) SetStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	record := goqu.Record{"status": to}
	switch to {
	case models.StatusOpen:
		record["opened_at"] = at
	case models.StatusClosed:
		record["closed_at"] = at
	}

	res, err := s.q.Update(tablePoll).Set(record).Where(
		goqu.C("id").Eq(id),
		goqu.C("status").Eq(from),
	).Prepared(true).Executor().ExecContext(ctx)
	if err != nil {
		return false, classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// InsertOptions stores options in one statement.
func (s *Queries) InsertOptions(ctx context.Context, options []models.Option) error {
	if len(options) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(options))
	for _, opt := range options {
		rows = append(rows, goqu.Record{
			"id":       opt.ID,
			"poll_id":  opt.PollID,
			"label":    opt.Label,
			"position": opt.Position,
		})
	}

	_, err := s.q.Insert(tableOption).Rows(rows...).Prepared(true).Executor().ExecContext(ctx)
	return classify(err)
}

// DeleteOptions removes every option of a poll. Only valid for drafts:
// options referenced by ballots are protected by a foreign key.
func (s *Queries) DeleteOptions(ctx context.Context, pollID string) error {
	_, err := s.q.Delete(tableOption).
		Where(goqu.C("poll_id").Eq(pollID)).
		Prepared(true).
		Executor().ExecContext(ctx)

	return classify(err)
}

// OptionsByPoll returns a poll's options in display order.
func (s *Queries) OptionsByPoll(ctx context.Context, pollID string) ([]models.Option, error) {
	var rows []optionRow

	err := s.q.From(tableOption).
		Where(goqu.C("poll_id").Eq(pollID)).
		Order(goqu.C("position").Asc()).
		Prepared(true).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, classify(err)
	}

	options := make([]models.Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, models.Option{
			ID:       row.ID,
			PollID:   row.PollID,
			Label:    row.Label,
			Position: row.Position,
		})
	}
	return options, nil
}

// CountOptions returns how many options a poll has. Positions are dense,
// so the count is also the next free position.
func (s *Queries) CountOptions(ctx context.Context, pollID string) (int, error) {
	n, err := s.q.From(tableOption).
		Where(goqu.C("poll_id").Eq(pollID)).
		Prepared(true).
		CountContext(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return int(n), nil
}
