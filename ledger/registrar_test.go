// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/metrics"
	"github.com/danielhkuo/condovote/models"
	"github.com/danielhkuo/condovote/store"
	"github.com/danielhkuo/condovote/testutil"
)

// votingPoll is an open poll with three options and one unit.
type votingPoll struct {
	env     *testutil.Env
	pollID  string
	options []string
	unitID  string
}

func newVotingPoll(t *testing.T, f testutil.PollFixture) votingPoll {
	t.Helper()

	env := testutil.NewEnv(t)
	pollID := testutil.CreateTestPoll(t, env.Store, f)

	return votingPoll{
		env:    env,
		pollID: pollID,
		options: []string{
			testutil.AddTestOption(t, env.Store, pollID, "A"),
			testutil.AddTestOption(t, env.Store, pollID, "B"),
			testutil.AddTestOption(t, env.Store, pollID, "C"),
		},
		unitID: testutil.CreateTestUnit(t, env.Store, "101"),
	}
}

func (vp votingPoll) vote(optionIDs ...string) ledger.VoteRequest {
	return ledger.VoteRequest{PollID: vp.pollID, UnitID: vp.unitID, OptionIDs: optionIDs}
}

func TestCastVote(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{})
	ctx := context.Background()

	ballot, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[1]))
	require.NoError(t, err)

	require.Equal(t, vp.pollID, ballot.PollID)
	require.Equal(t, vp.unitID, ballot.UnitID)
	require.Equal(t, []string{vp.options[1]}, ballot.OptionIDs)
	require.NotNil(t, ballot.OptionID)
	require.Equal(t, vp.options[1], *ballot.OptionID)
	require.True(t, ballot.CastAt.Equal(testutil.Now))

	stored, err := vp.env.Ledger.GetBallot(ctx, vp.pollID, vp.unitID)
	require.NoError(t, err)
	require.Equal(t, ballot.ID, stored.ID)

	require.InDelta(t, 1, promtestutil.ToFloat64(vp.env.Metrics.VotesCast().WithLabelValues(metrics.KindNew)), 0)
	require.Equal(t, "ballot cast", vp.env.Logs.LastEntry().Message)
}

func TestCastVoteRejections(t *testing.T) {
	tests := []struct {
		name    string
		fixture testutil.PollFixture
		req     func(vp votingPoll) ledger.VoteRequest
		wantErr error
	}{
		{
			name: "unknown poll",
			req: func(vp votingPoll) ledger.VoteRequest {
				r := vp.vote(vp.options[0])
				r.PollID = "missing"
				return r
			},
			wantErr: ledger.ErrNotFound,
		},
		{
			name: "unknown unit",
			req: func(vp votingPoll) ledger.VoteRequest {
				r := vp.vote(vp.options[0])
				r.UnitID = "missing"
				return r
			},
			wantErr: ledger.ErrNotFound,
		},
		{
			name:    "draft poll",
			fixture: testutil.PollFixture{Status: models.StatusDraft},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0]) },
			wantErr: ledger.ErrInvalidState,
		},
		{
			name:    "closed poll",
			fixture: testutil.PollFixture{Status: models.StatusClosed},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0]) },
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "before start",
			fixture: testutil.PollFixture{
				StartAt: testutil.Now.Add(time.Hour),
				EndAt:   testutil.Now.Add(2 * time.Hour),
			},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0]) },
			wantErr: ledger.ErrWindowClosed,
		},
		{
			name: "after end",
			fixture: testutil.PollFixture{
				StartAt: testutil.Now.Add(-2 * time.Hour),
				EndAt:   testutil.Now.Add(-time.Hour),
			},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0]) },
			wantErr: ledger.ErrWindowClosed,
		},
		{
			name:    "single choice with two options",
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0], vp.options[1]) },
			wantErr: ledger.ErrInvalidSelection,
		},
		{
			name:    "single choice with none",
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote() },
			wantErr: ledger.ErrInvalidSelection,
		},
		{
			name:    "multi choice with none",
			fixture: testutil.PollFixture{Type: models.TypeMultiChoice},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote() },
			wantErr: ledger.ErrInvalidSelection,
		},
		{
			name:    "multi choice with duplicates",
			fixture: testutil.PollFixture{Type: models.TypeMultiChoice},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0], vp.options[0]) },
			wantErr: ledger.ErrInvalidSelection,
		},
		{
			name:    "option of another poll",
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote("not-an-option") },
			wantErr: ledger.ErrInvalidSelection,
		},
		{
			name:    "tracked without voter",
			fixture: testutil.PollFixture{AuditMode: models.AuditTracked},
			req:     func(vp votingPoll) ledger.VoteRequest { return vp.vote(vp.options[0]) },
			wantErr: ledger.ErrMissingVoter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := newVotingPoll(t, tt.fixture)
			ctx := context.Background()

			_, err := vp.env.Ledger.CastVote(ctx, tt.req(vp))
			require.ErrorIs(t, err, tt.wantErr)

			// nothing reaches the ledger
			n, err := vp.env.Store.CountBallots(ctx, vp.pollID)
			require.NoError(t, err)
			require.Zero(t, n)
		})
	}
}

func TestCastVoteWindowBoundaries(t *testing.T) {
	start := testutil.Now
	end := testutil.Now.Add(time.Hour)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"exactly at start", start, nil},
		{"exactly at end", end, nil},
		{"inside window", start.Add(30 * time.Minute), nil},
		{"one nanosecond before start", start.Add(-time.Nanosecond), ledger.ErrWindowClosed},
		{"one second before start", start.Add(-time.Second), ledger.ErrWindowClosed},
		{"one nanosecond after end", end.Add(time.Nanosecond), ledger.ErrWindowClosed},
		{"one second after end", end.Add(time.Second), ledger.ErrWindowClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := newVotingPoll(t, testutil.PollFixture{StartAt: start, EndAt: end})
			vp.env.Clock.Set(tt.at)

			_, err := vp.env.Ledger.CastVote(context.Background(), vp.vote(vp.options[0]))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.InDelta(t, 1, promtestutil.ToFloat64(
					vp.env.Metrics.VoteRejections().WithLabelValues("window_closed")), 0)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCastVoteMultiChoice(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{Type: models.TypeMultiChoice})

	// selection comes back in option order
	ballot, err := vp.env.Ledger.CastVote(context.Background(), vp.vote(vp.options[2], vp.options[0]))
	require.NoError(t, err)
	require.Equal(t, []string{vp.options[0], vp.options[2]}, ballot.OptionIDs)
	require.Nil(t, ballot.OptionID)
}

// Anonymous polls never store who voted.
func TestAnonymousDropsVoter(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AuditMode: models.AuditAnonymous})
	ctx := context.Background()

	req := vp.vote(vp.options[0])
	req.VoterUserID = "resident-1"

	ballot, err := vp.env.Ledger.CastVote(ctx, req)
	require.NoError(t, err)
	require.Nil(t, ballot.VoterUserID)

	stored, err := vp.env.Store.BallotFor(ctx, vp.pollID, vp.unitID)
	require.NoError(t, err)
	require.Nil(t, stored.VoterUserID)

	result, err := vp.env.Ledger.Tally(ctx, vp.pollID, true)
	require.NoError(t, err)
	require.Nil(t, result.Detail)
	require.Equal(t, 1, result.TotalVotes)
}

func TestTrackedStoresVoter(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AuditMode: models.AuditTracked})
	ctx := context.Background()

	req := vp.vote(vp.options[0])
	req.VoterUserID = "resident-1"

	ballot, err := vp.env.Ledger.CastVote(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, ballot.VoterUserID)
	require.Equal(t, "resident-1", *ballot.VoterUserID)

	stored, err := vp.env.Store.BallotFor(ctx, vp.pollID, vp.unitID)
	require.NoError(t, err)
	require.NotNil(t, stored.VoterUserID)
	require.Equal(t, "resident-1", *stored.VoterUserID)
}

func TestSecondVoteWithoutChangeAllowed(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: false})
	ctx := context.Background()

	first, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[0]))
	require.NoError(t, err)

	_, err = vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[1]))
	require.ErrorIs(t, err, ledger.ErrAlreadyVoted)

	stored, err := vp.env.Ledger.GetBallot(ctx, vp.pollID, vp.unitID)
	require.NoError(t, err)
	require.Equal(t, first.ID, stored.ID)
	require.Equal(t, []string{vp.options[0]}, stored.OptionIDs)
}

func TestRevoteReplacesSelection(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{
		Type:            models.TypeMultiChoice,
		AllowVoteChange: true,
	})
	ctx := context.Background()

	first, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[0], vp.options[1]))
	require.NoError(t, err)

	vp.env.Clock.Add(time.Minute)
	second, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[2]))
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, []string{vp.options[2]}, second.OptionIDs)
	require.Equal(t, 1, second.UpdatedCount)
	require.True(t, second.CastAt.After(first.CastAt))

	result, err := vp.env.Ledger.Tally(ctx, vp.pollID, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalVotes)
	require.Equal(t, []int{0, 0, 1}, votesOf(result))

	require.InDelta(t, 1, promtestutil.ToFloat64(vp.env.Metrics.VotesCast().WithLabelValues(metrics.KindChanged)), 0)
}

func TestRevoteClearsVoterOnAnonymous(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: true})
	ctx := context.Background()

	req := vp.vote(vp.options[0])
	req.VoterUserID = "resident-1"
	_, err := vp.env.Ledger.CastVote(ctx, req)
	require.NoError(t, err)

	req = vp.vote(vp.options[1])
	req.VoterUserID = "resident-2"
	ballot, err := vp.env.Ledger.CastVote(ctx, req)
	require.NoError(t, err)
	require.Nil(t, ballot.VoterUserID)
}

// Draft polls reject votes before anything is written.
func TestDraftPollRejectsVote(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{Status: models.StatusDraft})
	ctx := context.Background()

	_, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[0]))
	require.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = vp.env.Ledger.GetBallot(ctx, vp.pollID, vp.unitID)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

// Simultaneous votes for one unit leave exactly one ballot.
func TestConcurrentVotesSameUnit(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: false})
	ctx := context.Background()

	const workers = 10
	var (
		wg           sync.WaitGroup
		success      atomic.Int32
		alreadyVoted atomic.Int32
		other        atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[i%3]))
			switch {
			case err == nil:
				success.Add(1)
			case ledger.Kind(err) == ledger.ErrAlreadyVoted:
				alreadyVoted.Add(1)
			default:
				other.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, success.Load())
	require.EqualValues(t, workers-1, alreadyVoted.Load())
	require.Zero(t, other.Load())

	result, err := vp.env.Ledger.Tally(ctx, vp.pollID, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalVotes)
}

func TestConcurrentRevotesSameUnit(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: true})
	ctx := context.Background()

	const workers = 10
	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[i%3])); err == nil {
				success.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, workers, success.Load())

	n, err := vp.env.Ledger.CountBallots(ctx, vp.pollID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ballot, err := vp.env.Ledger.GetBallot(ctx, vp.pollID, vp.unitID)
	require.NoError(t, err)
	require.Len(t, ballot.OptionIDs, 1)
	require.Equal(t, workers-1, ballot.UpdatedCount)
}

func TestConcurrentVotesDifferentUnits(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{})
	ctx := context.Background()

	const units = 12
	unitIDs := make([]string, units)
	for i := range unitIDs {
		unitIDs[i] = testutil.CreateTestUnit(t, vp.env.Store, fmt.Sprintf("2%02d", i))
	}

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i, unitID := range unitIDs {
		wg.Add(1)
		go func(i int, unitID string) {
			defer wg.Done()
			_, err := vp.env.Ledger.CastVote(ctx, ledger.VoteRequest{
				PollID:    vp.pollID,
				UnitID:    unitID,
				OptionIDs: []string{vp.options[i%3]},
			})
			if err == nil {
				success.Add(1)
			}
		}(i, unitID)
	}
	wg.Wait()

	require.EqualValues(t, units, success.Load())

	n, err := vp.env.Ledger.CountBallots(ctx, vp.pollID)
	require.NoError(t, err)
	require.Equal(t, units, n)
}

func TestGetBallotNotFound(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{})
	ctx := context.Background()

	_, err := vp.env.Ledger.GetBallot(ctx, vp.pollID, vp.unitID)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = vp.env.Ledger.GetBallot(ctx, "missing", vp.unitID)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = vp.env.Ledger.CountBallots(ctx, "missing")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

// raceLost makes the first ballot insert fail with a uniqueness conflict and
// commits a rival ballot for the same unit before the retry, the way a
// concurrent resident's vote would. It returns a pointer to the number of
// inserts attempted.
func raceLost(t *testing.T, vp votingPoll, rivalOption string) (*int, models.Ballot) {
	t.Helper()

	rival := models.Ballot{
		ID:        uuid.NewString(),
		PollID:    vp.pollID,
		UnitID:    vp.unitID,
		OptionID:  &rivalOption,
		OptionIDs: []string{rivalOption},
		CastAt:    testutil.Now,
	}

	inserts := 0
	vp.env.Ledger.SetBeforeBallotInsert(func(ctx context.Context, q *store.Queries) error {
		inserts++
		if inserts == 1 {
			return store.ErrConflict
		}
		return nil
	})
	vp.env.Ledger.SetBeforeVoteRetry(func(ctx context.Context) {
		require.NoError(t, vp.env.Store.InsertBallot(ctx, rival))
	})

	return &inserts, rival
}

func TestCastVoteRetryFindsRivalBallot(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: false})
	ctx := context.Background()
	inserts, rival := raceLost(t, vp, vp.options[2])

	_, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[0]))
	require.ErrorIs(t, err, ledger.ErrAlreadyVoted)

	// the retry saw the rival ballot and never tried to insert again
	require.Equal(t, 1, *inserts)
	require.InDelta(t, 1, promtestutil.ToFloat64(vp.env.Metrics.ConflictRetries()), 0)
	require.InDelta(t, 1, promtestutil.ToFloat64(
		vp.env.Metrics.VoteRejections().WithLabelValues("already_voted")), 0)

	stored, err := vp.env.Ledger.GetBallot(ctx, vp.pollID, vp.unitID)
	require.NoError(t, err)
	require.Equal(t, rival.ID, stored.ID)
	require.Equal(t, []string{vp.options[2]}, stored.OptionIDs)
}

func TestCastVoteRetryUpdatesRivalBallot(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: true})
	ctx := context.Background()
	inserts, rival := raceLost(t, vp, vp.options[2])

	ballot, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[0]))
	require.NoError(t, err)

	require.Equal(t, 1, *inserts)
	require.Equal(t, rival.ID, ballot.ID)
	require.Equal(t, []string{vp.options[0]}, ballot.OptionIDs)
	require.Equal(t, 1, ballot.UpdatedCount)
	require.InDelta(t, 1, promtestutil.ToFloat64(vp.env.Metrics.ConflictRetries()), 0)
	require.InDelta(t, 1, promtestutil.ToFloat64(
		vp.env.Metrics.VotesCast().WithLabelValues(metrics.KindChanged)), 0)

	n, err := vp.env.Ledger.CountBallots(ctx, vp.pollID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCastVoteRetriesOnlyOnce(t *testing.T) {
	vp := newVotingPoll(t, testutil.PollFixture{AllowVoteChange: true})
	ctx := context.Background()

	inserts := 0
	vp.env.Ledger.SetBeforeBallotInsert(func(ctx context.Context, q *store.Queries) error {
		inserts++
		return store.ErrConflict
	})

	_, err := vp.env.Ledger.CastVote(ctx, vp.vote(vp.options[0]))
	require.ErrorIs(t, err, ledger.ErrAlreadyVoted)

	require.Equal(t, 2, inserts)
	require.InDelta(t, 1, promtestutil.ToFloat64(vp.env.Metrics.ConflictRetries()), 0)

	n, err := vp.env.Ledger.CountBallots(ctx, vp.pollID)
	require.NoError(t, err)
	require.Zero(t, n)
}
