// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/metrics"
	"github.com/danielhkuo/condovote/models"
	"github.com/danielhkuo/condovote/store"
)

// VoteRequest is one unit's vote in one poll. VoterUserID is required for
// tracked polls and discarded for anonymous ones.
type VoteRequest struct {
	PollID      string
	UnitID      string
	OptionIDs   []string
	VoterUserID string
}

// CastVote validates and records a vote. A unit holds at most one ballot per
// poll; when the poll allows vote changes a repeat vote replaces the stored
// selection, otherwise it fails with ErrAlreadyVoted.
//
// A write that loses a uniqueness race to a concurrent vote for the same
// unit is retried once. If the retry conflicts as well the vote is reported
// as ErrAlreadyVoted.
func (l *Ledger) CastVote(ctx context.Context, req VoteRequest) (*models.Ballot, error) {
	logger := l.log.WithFields(logrus.Fields{
		"poll_id": req.PollID,
		"unit_id": req.UnitID,
	})

	ballot, changed, err := l.castOnce(ctx, req)
	if errors.Is(err, ErrStorageConflict) {
		l.metrics.IncConflictRetry()
		logger.Warn("ballot write conflict, retrying")
		if l.hooks.beforeRetry != nil {
			l.hooks.beforeRetry(ctx)
		}

		ballot, changed, err = l.castOnce(ctx, req)
		if errors.Is(err, ErrStorageConflict) {
			err = fmt.Errorf("%w: concurrent ballot for unit %s", ErrAlreadyVoted, req.UnitID)
		}
	}
	if err != nil {
		l.metrics.IncVoteRejection(reason(err))
		logger.WithError(err).Info("vote rejected")
		return nil, err
	}

	if changed {
		l.metrics.IncVotesCast(metrics.KindChanged)
		logger.WithField("updated_count", ballot.UpdatedCount).Info("ballot changed")
	} else {
		l.metrics.IncVotesCast(metrics.KindNew)
		logger.Info("ballot cast")
	}

	return ballot, nil
}

// castOnce runs one check-and-write attempt in a single transaction.
// changed reports whether an existing ballot was replaced.
func (l *Ledger) castOnce(ctx context.Context, req VoteRequest) (*models.Ballot, bool, error) {
	var (
		result  *models.Ballot
		changed bool
	)

	err := l.store.WithTx(ctx, func(q *store.Queries) error {
		poll, err := q.PollForVote(ctx, req.PollID)
		if err != nil {
			return translate(err, "poll "+req.PollID)
		}
		if poll.Status != models.StatusOpen {
			return fmt.Errorf("%w: poll is %s", ErrInvalidState, poll.Status)
		}

		now := l.Now()
		if !poll.InWindow(now) {
			return fmt.Errorf("%w: voting runs from %s to %s", ErrWindowClosed,
				poll.StartAt.Format(time.RFC3339), poll.EndAt.Format(time.RFC3339))
		}

		options, err := q.OptionsByPoll(ctx, poll.ID)
		if err != nil {
			return err
		}
		selection, err := validateSelection(*poll, options, req.OptionIDs)
		if err != nil {
			return err
		}

		var voter *string
		if poll.AuditMode == models.AuditTracked {
			if req.VoterUserID == "" {
				return fmt.Errorf("%w: tracked poll requires a voter", ErrMissingVoter)
			}
			voter = &req.VoterUserID
		}

		if _, err := q.UnitByID(ctx, req.UnitID); err != nil {
			return translate(err, "unit "+req.UnitID)
		}

		ballot := models.Ballot{
			PollID:      poll.ID,
			UnitID:      req.UnitID,
			OptionIDs:   selection,
			VoterUserID: voter,
			CastAt:      now,
		}
		if poll.Type == models.TypeSingleChoice {
			ballot.OptionID = &selection[0]
		}

		existing, err := q.BallotFor(ctx, poll.ID, req.UnitID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			ballot.ID = uuid.NewString()
			if l.hooks.beforeInsert != nil {
				if err := l.hooks.beforeInsert(ctx, q); err != nil {
					return translate(err, "ballot")
				}
			}
			if err := q.InsertBallot(ctx, ballot); err != nil {
				return translate(err, "ballot")
			}
			result = &ballot
			return nil

		case err != nil:
			return err
		}

		if !poll.AllowVoteChange {
			return fmt.Errorf("%w: unit %s voted at %s", ErrAlreadyVoted,
				req.UnitID, existing.CastAt.Format(time.RFC3339))
		}

		ballot.ID = existing.ID
		if err := q.ReplaceSelection(ctx, ballot); err != nil {
			return err
		}

		result, err = q.BallotFor(ctx, poll.ID, req.UnitID)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, translate(err, "ballot")
	}

	return result, changed, nil
}

// validateSelection checks optionIDs against the poll type and option set and
// returns them ordered by option position.
func validateSelection(poll models.Poll, options []models.Option, optionIDs []string) ([]string, error) {
	switch poll.Type {
	case models.TypeSingleChoice:
		if len(optionIDs) != 1 {
			return nil, fmt.Errorf("%w: single choice poll takes exactly one option, got %d",
				ErrInvalidSelection, len(optionIDs))
		}
	case models.TypeMultiChoice:
		if len(optionIDs) == 0 {
			return nil, fmt.Errorf("%w: select at least one option", ErrInvalidSelection)
		}
	default:
		return nil, fmt.Errorf("%w: unknown poll type %q", ErrInvalidSelection, poll.Type)
	}

	positions := make(map[string]int, len(options))
	for _, opt := range options {
		positions[opt.ID] = opt.Position
	}

	seen := make(map[string]bool, len(optionIDs))
	selection := make([]string, 0, len(optionIDs))
	for _, id := range optionIDs {
		if _, ok := positions[id]; !ok {
			return nil, fmt.Errorf("%w: option %s does not belong to this poll", ErrInvalidSelection, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: option %s selected twice", ErrInvalidSelection, id)
		}
		seen[id] = true
		selection = append(selection, id)
	}

	sort.Slice(selection, func(i, j int) bool {
		return positions[selection[i]] < positions[selection[j]]
	})

	return selection, nil
}

// GetBallot returns the ballot a unit holds in a poll.
func (l *Ledger) GetBallot(ctx context.Context, pollID, unitID string) (*models.Ballot, error) {
	if _, err := l.store.PollByID(ctx, pollID); err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	ballot, err := l.store.BallotFor(ctx, pollID, unitID)
	if err != nil {
		return nil, translate(err, "ballot for unit "+unitID)
	}
	return ballot, nil
}

// CountBallots returns how many units have voted in a poll.
func (l *Ledger) CountBallots(ctx context.Context, pollID string) (int, error) {
	if _, err := l.store.PollByID(ctx, pollID); err != nil {
		return 0, translate(err, "poll "+pollID)
	}

	n, err := l.store.CountBallots(ctx, pollID)
	if err != nil {
		return 0, translate(err, "ballots")
	}
	return n, nil
}
