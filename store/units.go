// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/danielhkuo/condovote/models"
)

type unitRow struct {
	ID        string    `db:"id"`
	Number    string    `db:"number"`
	CreatedAt time.Time `db:"created_at"`
}

func (r unitRow) toModel() models.Unit {
	return models.Unit{ID: r.ID, Number: r.Number, CreatedAt: r.CreatedAt}
}

// InsertUnit stores a unit. A duplicate number yields ErrConflict.
func (s *Queries) InsertUnit(ctx context.Context, u models.Unit) error {
	_, err := s.q.Insert(tableUnit).Rows(goqu.Record{
		"id":         u.ID,
		"number":     u.Number,
		"created_at": u.CreatedAt,
	}).Prepared(true).Executor().ExecContext(ctx)

	return classify(err)
}

// UnitByID returns ErrNotFound when the unit does not exist.
func (s *Queries) UnitByID(ctx context.Context, id string) (*models.Unit, error) {
	var row unitRow

	found, err := s.q.From(tableUnit).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, classify(err)
	}
	if !found {
		return nil, ErrNotFound
	}

	unit := row.toModel()
	return &unit, nil
}

// LinkMember records that userID belongs to unitID. Linking twice is a no-op.
func (s *Queries) LinkMember(ctx context.Context, unitID, userID string, at time.Time) error {
	_, err := s.q.Insert(tableUnitMember).Rows(goqu.Record{
		"unit_id":   unitID,
		"user_id":   userID,
		"linked_at": at,
	}).Prepared(true).Executor().ExecContext(ctx)

	err = classify(err)
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}

// UnlinkMember removes a membership and reports whether one existed.
func (s *Queries) UnlinkMember(ctx context.Context, unitID, userID string) (bool, error) {
	res, err := s.q.Delete(tableUnitMember).Where(
		goqu.C("unit_id").Eq(unitID),
		goqu.C("user_id").Eq(userID),
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

// UnitsForUser returns the units userID is linked to, ordered by number.
func (s *Queries) UnitsForUser(ctx context.Context, userID string) ([]models.Unit, error) {
	var rows []unitRow

	err := s.q.From(goqu.T(tableUnit).As("u")).
		Join(
			goqu.T(tableUnitMember).As("m"),
			goqu.On(goqu.T("m").Col("unit_id").Eq(goqu.T("u").Col("id"))),
		).
		Select(
			goqu.T("u").Col("id"),
			goqu.T("u").Col("number"),
			goqu.T("u").Col("created_at"),
		).
		Where(goqu.T("m").Col("user_id").Eq(userID)).
		Order(goqu.T("u").Col("number").Asc()).
		Prepared(true).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, classify(err)
	}

	units := make([]models.Unit, 0, len(rows))
	for _, row := range rows {
		units = append(units, row.toModel())
	}
	return units, nil
}

// IsMember reports whether userID is linked to unitID.
func (s *Queries) IsMember(ctx context.Context, unitID, userID string) (bool, error) {
	n, err := s.q.From(tableUnitMember).Where(
		goqu.C("unit_id").Eq(unitID),
		goqu.C("user_id").Eq(userID),
	).Prepared(true).CountContext(ctx)
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}
