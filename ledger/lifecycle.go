// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/models"
	"github.com/danielhkuo/condovote/store"
)

// minOptionsToOpen is the number of options a poll needs before it can open.
const minOptionsToOpen = 2

// nextStatus lists the only legal transition out of each status.
var nextStatus = map[string]string{
	models.StatusDraft: models.StatusOpen,
	models.StatusOpen:  models.StatusClosed,
}

var transitionMessages = map[string]string{
	models.StatusOpen:   "poll opened",
	models.StatusClosed: "poll closed",
}

// CreatePoll stores a new draft poll together with its options.
func (l *Ledger) CreatePoll(ctx context.Context, createdBy string, req models.CreatePollRequest) (*models.PollWithOptions, error) {
	now := l.Now()

	poll := models.Poll{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Type:            req.Type,
		AuditMode:       req.AuditMode,
		ShowPartial:     req.ShowPartial,
		AllowVoteChange: req.AllowVoteChange,
		CreatedBy:       strings.TrimSpace(createdBy),
		StartAt:         req.StartAt.UTC(),
		EndAt:           req.EndAt.UTC(),
		Status:          models.StatusDraft,
		CreatedAt:       now,
	}
	if poll.Type == "" {
		poll.Type = models.TypeSingleChoice
	}
	if poll.AuditMode == "" {
		poll.AuditMode = models.AuditAnonymous
	}

	if err := validatePoll(poll); err != nil {
		return nil, err
	}

	options, err := buildOptions(poll.ID, req.Options)
	if err != nil {
		return nil, err
	}

	err = l.store.WithTx(ctx, func(q *store.Queries) error {
		if err := q.InsertPoll(ctx, poll); err != nil {
			return err
		}
		return q.InsertOptions(ctx, options)
	})
	if err != nil {
		return nil, translate(err, "poll")
	}

	l.log.WithFields(logrus.Fields{
		"poll_id":    poll.ID,
		"type":       poll.Type,
		"audit_mode": poll.AuditMode,
		"options":    len(options),
	}).Info("poll created")

	return &models.PollWithOptions{Poll: poll, Options: options}, nil
}

// UpdateDraft applies the non-nil fields of req to a draft poll. A non-nil
// Options slice replaces the whole option list.
func (l *Ledger) UpdateDraft(ctx context.Context, pollID string, req models.UpdateDraftRequest) (*models.PollWithOptions, error) {
	var result models.PollWithOptions

	err := l.store.WithTx(ctx, func(q *store.Queries) error {
		poll, err := q.PollByID(ctx, pollID)
		if err != nil {
			return translate(err, "poll "+pollID)
		}
		if poll.Status != models.StatusDraft {
			return fmt.Errorf("%w: poll is %s, only drafts can be edited", ErrInvalidState, poll.Status)
		}

		if req.Title != nil {
			poll.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			poll.Description = strings.TrimSpace(*req.Description)
		}
		if req.StartAt != nil {
			poll.StartAt = req.StartAt.UTC()
		}
		if req.EndAt != nil {
			poll.EndAt = req.EndAt.UTC()
		}
		if err := validatePoll(*poll); err != nil {
			return err
		}

		updated, err := q.UpdateDraft(ctx, *poll)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: poll left draft during edit", ErrInvalidState)
		}

		if req.Options != nil {
			options, err := buildOptions(poll.ID, req.Options)
			if err != nil {
				return err
			}
			if err := q.DeleteOptions(ctx, poll.ID); err != nil {
				return err
			}
			if err := q.InsertOptions(ctx, options); err != nil {
				return err
			}
		}

		options, err := q.OptionsByPoll(ctx, poll.ID)
		if err != nil {
			return err
		}

		result = models.PollWithOptions{Poll: *poll, Options: options}
		return nil
	})
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	l.log.WithField("poll_id", pollID).Info("draft updated")
	return &result, nil
}

// AddOption appends an option to a draft poll.
func (l *Ledger) AddOption(ctx context.Context, pollID, label string) (*models.Option, error) {
	var option models.Option

	err := l.store.WithTx(ctx, func(q *store.Queries) error {
		poll, err := q.PollByID(ctx, pollID)
		if err != nil {
			return translate(err, "poll "+pollID)
		}
		if poll.Status != models.StatusDraft {
			return fmt.Errorf("%w: poll is %s, options can only be added to drafts", ErrInvalidState, poll.Status)
		}

		existing, err := q.OptionsByPoll(ctx, pollID)
		if err != nil {
			return err
		}
		labels := make([]string, 0, len(existing)+1)
		for _, opt := range existing {
			labels = append(labels, opt.Label)
		}
		labels = append(labels, label)

		options, err := buildOptions(pollID, labels)
		if err != nil {
			return err
		}

		option = options[len(options)-1]
		return q.InsertOptions(ctx, []models.Option{option})
	})
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	l.log.WithFields(logrus.Fields{
		"poll_id":   pollID,
		"option_id": option.ID,
	}).Info("option added")

	return &option, nil
}

// TransitionPoll moves a poll one step along draft -> open -> closed.
// The status write is a compare-and-set, so of two concurrent identical
// transitions exactly one succeeds. Ballots are never touched.
func (l *Ledger) TransitionPoll(ctx context.Context, pollID, to string) (*models.Poll, error) {
	poll, err := l.store.PollByID(ctx, pollID)
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	from := poll.Status
	if next, ok := nextStatus[from]; !ok || next != to {
		return nil, fmt.Errorf("%w: cannot move poll from %s to %q", ErrInvalidState, from, to)
	}

	if to == models.StatusOpen {
		n, err := l.store.CountOptions(ctx, pollID)
		if err != nil {
			return nil, translate(err, "poll "+pollID)
		}
		if n < minOptionsToOpen {
			return nil, fmt.Errorf("%w: poll needs at least %d options to open, has %d",
				ErrInvalidState, minOptionsToOpen, n)
		}
	}

	ok, err := l.store.SetStatus(ctx, pollID, from, to, l.Now())
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	current, err := l.store.PollByID(ctx, pollID)
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: poll moved to %s concurrently", ErrInvalidState, current.Status)
	}

	l.metrics.IncPollTransition(to)
	l.log.WithFields(logrus.Fields{
		"poll_id": pollID,
		"from":    from,
		"to":      to,
	}).Info(transitionMessages[to])

	return current, nil
}

// GetPoll returns a poll without its options.
func (l *Ledger) GetPoll(ctx context.Context, pollID string) (*models.Poll, error) {
	poll, err := l.store.PollByID(ctx, pollID)
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}
	return poll, nil
}

// GetPollWithOptions returns a poll and its options in display order.
func (l *Ledger) GetPollWithOptions(ctx context.Context, pollID string) (*models.PollWithOptions, error) {
	poll, err := l.store.PollByID(ctx, pollID)
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	options, err := l.store.OptionsByPoll(ctx, pollID)
	if err != nil {
		return nil, translate(err, "poll "+pollID)
	}

	return &models.PollWithOptions{Poll: *poll, Options: options}, nil
}

// ListPolls returns polls newest first, optionally filtered by status.
func (l *Ledger) ListPolls(ctx context.Context, status string) ([]models.Poll, error) {
	switch status {
	case "", models.StatusDraft, models.StatusOpen, models.StatusClosed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	polls, err := l.store.ListPolls(ctx, status)
	if err != nil {
		return nil, translate(err, "polls")
	}
	return polls, nil
}

func validatePoll(p models.Poll) error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidPoll)
	case p.CreatedBy == "":
		return fmt.Errorf("%w: creator is required", ErrInvalidPoll)
	case p.Type != models.TypeSingleChoice && p.Type != models.TypeMultiChoice:
		return fmt.Errorf("%w: unknown poll type %q", ErrInvalidPoll, p.Type)
	case p.AuditMode != models.AuditAnonymous && p.AuditMode != models.AuditTracked:
		return fmt.Errorf("%w: unknown audit mode %q", ErrInvalidPoll, p.AuditMode)
	case p.StartAt.IsZero() || p.EndAt.IsZero():
		return fmt.Errorf("%w: start_at and end_at are required", ErrInvalidPoll)
	case !p.EndAt.After(p.StartAt):
		return fmt.Errorf("%w: end_at must be after start_at", ErrInvalidPoll)
	}
	return nil
}

// buildOptions turns labels into options positioned 0..n-1.
// Labels must be non-empty and distinct.
func buildOptions(pollID string, labels []string) ([]models.Option, error) {
	seen := make(map[string]bool, len(labels))
	options := make([]models.Option, 0, len(labels))

	for i, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("%w: option %d has an empty label", ErrInvalidPoll, i+1)
		}
		if seen[label] {
			return nil, fmt.Errorf("%w: duplicate option %q", ErrInvalidPoll, label)
		}
		seen[label] = true

		options = append(options, models.Option{
			ID:       uuid.NewString(),
			PollID:   pollID,
			Label:    label,
			Position: i,
		})
	}

	return options, nil
}
