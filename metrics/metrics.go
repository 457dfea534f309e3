// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricVotesCast       = "condovote_votes_cast_total"
	MetricVoteRejections  = "condovote_vote_rejections_total"
	MetricConflictRetries = "condovote_vote_conflict_retries_total"
	MetricPollTransitions = "condovote_poll_transitions_total"
	MetricTallyDuration   = "condovote_tally_duration_seconds"
)

// Vote kinds for MetricVotesCast
const (
	KindNew     = "new"
	KindChanged = "changed"
)

type MetricService struct {
	votesCast       *prometheus.CounterVec
	voteRejections  *prometheus.CounterVec
	conflictRetries prometheus.Counter
	pollTransitions *prometheus.CounterVec
	tallyDuration   prometheus.Histogram
}

// NewMetricService creates the ledger metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetricService(reg prometheus.Registerer) *MetricService {
	ms := &MetricService{
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricVotesCast,
			Help: "Ballots written, by kind (new or changed)",
		}, []string{"kind"}),
		voteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricVoteRejections,
			Help: "Vote attempts rejected, by reason",
		}, []string{"reason"}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricConflictRetries,
			Help: "Vote writes retried after losing a uniqueness race",
		}),
		pollTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPollTransitions,
			Help: "Poll status transitions, by target status",
		}, []string{"to"}),
		tallyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricTallyDuration,
			Help:    "Duration of tally computations",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		ms.votesCast,
		ms.voteRejections,
		ms.conflictRetries,
		ms.pollTransitions,
		ms.tallyDuration,
	)

	return ms
}

func (m *MetricService) IncVotesCast(kind string) {
	m.votesCast.WithLabelValues(kind).Inc()
}

func (m *MetricService) IncVoteRejection(reason string) {
	m.voteRejections.WithLabelValues(reason).Inc()
}

func (m *MetricService) IncConflictRetry() {
	m.conflictRetries.Inc()
}

func (m *MetricService) IncPollTransition(to string) {
	m.pollTransitions.WithLabelValues(to).Inc()
}

func (m *MetricService) ObserveTallyDuration(d time.Duration) {
	m.tallyDuration.Observe(d.Seconds())
}

// VotesCast exposes the counter for assertions.
func (m *MetricService) VotesCast() *prometheus.CounterVec {
	return m.votesCast
}

// VoteRejections exposes the counter for assertions.
func (m *MetricService) VoteRejections() *prometheus.CounterVec {
	return m.voteRejections
}

// PollTransitions exposes the counter for assertions.
func (m *MetricService) PollTransitions() *prometheus.CounterVec {
	return m.pollTransitions
}

// ConflictRetries exposes the counter for assertions.
func (m *MetricService) ConflictRetries() prometheus.Counter {
	return m.conflictRetries
}
