// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/models"
	"github.com/danielhkuo/condovote/store"
)

// ResolveEligibleUnits returns the units userID may vote through, ordered by
// unit number. An empty result is a valid answer, not an error.
func (l *Ledger) ResolveEligibleUnits(ctx context.Context, userID string) ([]models.Unit, error) {
	if userID == "" {
		return []models.Unit{}, nil
	}

	units, err := l.store.UnitsForUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "units")
	}
	return units, nil
}

// UnitStatuses pairs each of userID's eligible units with whether it has
// already voted in pollID.
func (l *Ledger) UnitStatuses(ctx context.Context, pollID, userID string) ([]models.UnitStatus, error) {
	if _, err := l.store.PollByID(ctx, pollID); err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	units, err := l.ResolveEligibleUnits(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}

	voted, err := l.store.VotedUnits(ctx, pollID, ids)
	if err != nil {
		return nil, translate(err, "ballots")
	}

	statuses := make([]models.UnitStatus, 0, len(units))
	for _, u := range units {
		statuses = append(statuses, models.UnitStatus{Unit: u, HasVoted: voted[u.ID]})
	}
	return statuses, nil
}

// IsEligible reports whether userID is linked to unitID.
func (l *Ledger) IsEligible(ctx context.Context, unitID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	ok, err := l.store.IsMember(ctx, unitID, userID)
	if err != nil {
		return false, translate(err, "unit "+unitID)
	}
	return ok, nil
}

// CreateUnit registers a housing unit. Numbers are unique.
func (l *Ledger) CreateUnit(ctx context.Context, number string) (*models.Unit, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("%w: unit number is required", ErrInvalidInput)
	}

	unit := models.Unit{
		ID:        uuid.NewString(),
		Number:    number,
		CreatedAt: l.Now(),
	}

	err := l.store.InsertUnit(ctx, unit)
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: %s", ErrUnitExists, number)
	}
	if err != nil {
		return nil, translate(err, "unit")
	}

	l.log.WithFields(logrus.Fields{
		"unit_id": unit.ID,
		"number":  unit.Number,
	}).Info("unit created")

	return &unit, nil
}

// LinkUser makes userID eligible to vote for unitID. Linking twice is harmless.
func (l *Ledger) LinkUser(ctx context.Context, unitID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	if _, err := l.store.UnitByID(ctx, unitID); err != nil {
		return translate(err, "unit "+unitID)
	}

	if err := l.store.LinkMember(ctx, unitID, userID, l.Now()); err != nil {
		return translate(err, "unit "+unitID)
	}

	l.log.WithFields(logrus.Fields{
		"unit_id": unitID,
		"user_id": userID,
	}).Info("user linked to unit")

	return nil
}

// UnlinkUser removes userID from unitID. Ballots the unit already cast stay.
func (l *Ledger) UnlinkUser(ctx context.Context, unitID, userID string) error {
	removed, err := l.store.UnlinkMember(ctx, unitID, userID)
	if err != nil {
		return translate(err, "unit "+unitID)
	}
	if !removed {
		return fmt.Errorf("%w: user %s is not linked to unit %s", ErrNotFound, userID, unitID)
	}

	l.log.WithFields(logrus.Fields{
		"unit_id": unitID,
		"user_id": userID,
	}).Info("user unlinked from unit")

	return nil
}
