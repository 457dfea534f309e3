// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/models"
	"github.com/danielhkuo/condovote/store"
)

var hundred = decimal.NewFromInt(100)

// Tally counts the ballots of a poll per option.
//
// Percentages are rounded to two places per option and are not normalised,
// so they may not add up to exactly 100. Detail lines are attached only when
// includeDetail is set and the poll is tracked; anonymous polls never carry
// voter identity. Who may see the result is up to the caller.
func (l *Ledger) Tally(ctx context.Context, pollID string, includeDetail bool) (*models.TallyResult, error) {
	started := time.Now()

	var (
		poll    *models.Poll
		options []models.Option
		ballots []store.BallotRecord
	)

	// One transaction so the poll, its options and its ballots agree.
	err := l.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		if poll, err = q.PollByID(ctx, pollID); err != nil {
			return translate(err, "poll "+pollID)
		}
		if options, err = q.OptionsByPoll(ctx, pollID); err != nil {
			return err
		}
		ballots, err = q.BallotsByPoll(ctx, pollID)
		return err
	})
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	votes := make(map[string]int, len(options))
	for _, b := range ballots {
		for _, id := range b.OptionIDs {
			votes[id]++
		}
	}

	total := len(ballots)
	result := &models.TallyResult{
		PollID:     poll.ID,
		Status:     poll.Status,
		Final:      poll.Status == models.StatusClosed,
		TotalVotes: total,
		Options:    make([]models.OptionTally, 0, len(options)),
		ComputedAt: l.Now(),
	}

	for _, opt := range options {
		result.Options = append(result.Options, models.OptionTally{
			OptionID:   opt.ID,
			Label:      opt.Label,
			Position:   opt.Position,
			Votes:      votes[opt.ID],
			Percentage: Percentage(votes[opt.ID], total),
		})
	}

	if includeDetail && poll.AuditMode == models.AuditTracked {
		result.Detail = make([]models.BallotDetail, 0, len(ballots))
		for _, b := range ballots {
			detail := models.BallotDetail{
				UnitID:     b.UnitID,
				UnitNumber: b.UnitNumber,
				OptionIDs:  b.OptionIDs,
				CastAt:     b.CastAt,
			}
			if b.VoterUserID != nil {
				detail.VoterUserID = *b.VoterUserID
			}
			result.Detail = append(result.Detail, detail)
		}
	}

	l.metrics.ObserveTallyDuration(time.Since(started))
	l.log.WithFields(logrus.Fields{
		"poll_id":     pollID,
		"total_votes": total,
		"final":       result.Final,
		"detail":      result.Detail != nil,
	}).Debug("tally computed")

	return result, nil
}

// Percentage returns votes/total*100 rounded half away from zero to two
// places, or 0 when total is 0.
func Percentage(votes, total int) float64 {
	if total == 0 {
		return 0
	}

	return decimal.NewFromInt(int64(votes)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		InexactFloat64()
}
