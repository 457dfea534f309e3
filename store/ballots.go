// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/danielhkuo/condovote/models"
)

type ballotRow struct {
	ID           string         `db:"id"`
	PollID       string         `db:"poll_id"`
	UnitID       string         `db:"unit_id"`
	OptionID     sql.NullString `db:"option_id"`
	OptionIDs    string         `db:"option_ids"`
	VoterUserID  sql.NullString `db:"voter_user_id"`
	CastAt       time.Time      `db:"cast_at"`
	UpdatedCount int            `db:"updated_count"`
}

func (r ballotRow) toModel() (models.Ballot, error) {
	b := models.Ballot{
		ID:           r.ID,
		PollID:       r.PollID,
		UnitID:       r.UnitID,
		CastAt:       r.CastAt,
		UpdatedCount: r.UpdatedCount,
	}
	if r.OptionID.Valid {
		b.OptionID = &r.OptionID.String
	}
	if r.VoterUserID.Valid {
		b.VoterUserID = &r.VoterUserID.String
	}
	if err := json.Unmarshal([]byte(r.OptionIDs), &b.OptionIDs); err != nil {
		return models.Ballot{}, fmt.Errorf("failed to decode option ids of ballot %s: %w", r.ID, err)
	}
	return b, nil
}

// BallotRecord is a stored ballot joined with its unit number.
type BallotRecord struct {
	models.Ballot
	UnitNumber string
}

type ballotRecordRow struct {
	ID           string         `db:"id"`
	PollID       string         `db:"poll_id"`
	UnitID       string         `db:"unit_id"`
	OptionID     sql.NullString `db:"option_id"`
	OptionIDs    string         `db:"option_ids"`
	VoterUserID  sql.NullString `db:"voter_user_id"`
	CastAt       time.Time      `db:"cast_at"`
	UpdatedCount int            `db:"updated_count"`
	UnitNumber   string         `db:"unit_number"`
}

func (r ballotRecordRow) ballot() ballotRow {
	return ballotRow{
		ID:           r.ID,
		PollID:       r.PollID,
		UnitID:       r.UnitID,
		OptionID:     r.OptionID,
		OptionIDs:    r.OptionIDs,
		VoterUserID:  r.VoterUserID,
		CastAt:       r.CastAt,
		UpdatedCount: r.UpdatedCount,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func encodeOptionIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode option ids: %w", err)
	}
	return string(raw), nil
}

// BallotFor returns the ballot a unit holds in a poll, or ErrNotFound.
func (s *Queries) BallotFor(ctx context.Context, pollID, unitID string) (*models.Ballot, error) {
	var row ballotRow

	found, err := s.q.From(tableBallot).Where(
		goqu.C("poll_id").Eq(pollID),
		goqu.C("unit_id").Eq(unitID),
	).Prepared(true).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, classify(err)
	}
	if !found {
		return nil, ErrNotFound
	}

	ballot, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &ballot, nil
}

// InsertBallot stores a first ballot. A second ballot for the same
// (poll, unit) pair yields ErrConflict.
func (s *Queries) InsertBallot(ctx context.Context, b models.Ballot) error {
	optionIDs, err := encodeOptionIDs(b.OptionIDs)
	if err != nil {
		return err
	}

	_, err = s.q.Insert(tableBallot).Rows(goqu.Record{
		"id":            b.ID,
		"poll_id":       b.PollID,
		"unit_id":       b.UnitID,
		"option_id":     nullString(b.OptionID),
		"option_ids":    optionIDs,
		"voter_user_id": nullString(b.VoterUserID),
		"cast_at":       b.CastAt,
		"updated_count": 0,
	}).Prepared(true).Executor().ExecContext(ctx)

	return classify(err)
}

// ReplaceSelection overwrites a ballot's selection in a single row update
// and bumps its change counter.
func (s *Queries) ReplaceSelection(ctx context.Context, b models.Ballot) error {
	optionIDs, err := encodeOptionIDs(b.OptionIDs)
	if err != nil {
		return err
	}

	res, err := s.q.Update(tableBallot).Set(goqu.Record{
		"option_id":     nullString(b.OptionID),
		"option_ids":    optionIDs,
		"voter_user_id": nullString(b.VoterUserID),
		"cast_at":       b.CastAt,
		"updated_count": goqu.L("updated_count + 1"),
	}).Where(goqu.C("id").Eq(b.ID)).Prepared(true).Executor().ExecContext(ctx)
	if err != nil {
		return classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BallotsByPoll returns every ballot of a poll with its unit number,
// ordered by unit number.
func (s *Queries) BallotsByPoll(ctx context.Context, pollID string) ([]BallotRecord, error) {
	var rows []ballotRecordRow

	b := goqu.T("b")
	err := s.q.From(goqu.T(tableBallot).As("b")).
		Join(
			goqu.T(tableUnit).As("u"),
			goqu.On(goqu.T("u").Col("id").Eq(b.Col("unit_id"))),
		).
		Select(
			b.Col("id"),
			b.Col("poll_id"),
			b.Col("unit_id"),
			b.Col("option_id"),
			b.Col("option_ids"),
			b.Col("voter_user_id"),
			b.Col("cast_at"),
			b.Col("updated_count"),
			goqu.T("u").Col("number").As("unit_number"),
		).
		Where(b.Col("poll_id").Eq(pollID)).
		Order(goqu.T("u").Col("number").Asc()).
		Prepared(true).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, classify(err)
	}

	records := make([]BallotRecord, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.ballot().toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, BallotRecord{Ballot: ballot, UnitNumber: row.UnitNumber})
	}
	return records, nil
}

// CountBallots returns how many units have voted in a poll.
func (s *Queries) CountBallots(ctx context.Context, pollID string) (int, error) {
	n, err := s.q.From(tableBallot).
		Where(goqu.C("poll_id").Eq(pollID)).
		Prepared(true).
		CountContext(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return int(n), nil
}

// VotedUnits returns the subset of unitIDs that hold a ballot in pollID.
func (s *Queries) VotedUnits(ctx context.Context, pollID string, unitIDs []string) (map[string]bool, error) {
	voted := make(map[string]bool, len(unitIDs))
	if len(unitIDs) == 0 {
		return voted, nil
	}

	var ids []string
	err := s.q.From(tableBallot).
		Select("unit_id").
		Where(
			goqu.C("poll_id").Eq(pollID),
			goqu.C("unit_id").In(unitIDs),
		).
		Prepared(true).
		ScanValsContext(ctx, &ids)
	if err != nil {
		return nil, classify(err)
	}

	for _, id := range ids {
		voted[id] = true
	}
	return voted, nil
}
