// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/condovote/cliparse"
	"github.com/danielhkuo/condovote/db"
	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/metrics"
	"github.com/danielhkuo/condovote/models"
	"github.com/danielhkuo/condovote/store"
)

// TestStaffKey is the staff key of GetTestConfig.
const TestStaffKey = "test-staff-key"

// Now is the fixed clock used by test ledgers. Default poll windows are
// centred on it.
var Now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB creates a fresh in-memory database with the full schema.
func SetupTestDB(t *testing.T) *store.Store {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(conn, db.TypeSQLite, ""), "failed to create schema")

	return store.New(conn, db.Dialect(db.TypeSQLite))
}

// Env bundles a test ledger with the pieces tests inspect.
type Env struct {
	Store    *store.Store
	Ledger   *ledger.Ledger
	Metrics  *metrics.MetricService
	Registry *prometheus.Registry
	Log      *logrus.Logger
	Logs     *logtest.Hook
	Clock    *Clock
}

// Clock is a settable time source.
type Clock struct {
	now time.Time
}

func (c *Clock) Now() time.Time      { return c.now }
func (c *Clock) Set(t time.Time)     { c.now = t }
func (c *Clock) Add(d time.Duration) { c.now = c.now.Add(d) }

// NewEnv returns a ledger over a fresh database with its clock set to Now.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	st := SetupTestDB(t)
	logger, hook := logtest.NewNullLogger()
	reg := prometheus.NewRegistry()
	ms := metrics.NewMetricService(reg)
	clock := &Clock{now: Now}

	return &Env{
		Store:    st,
		Ledger:   ledger.New(st, logger, ms).WithClock(clock.Now),
		Metrics:  ms,
		Registry: reg,
		Log:      logger,
		Logs:     hook,
		Clock:    clock,
	}
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: db.TypeSQLite,
		StaffKey:     TestStaffKey,
		LogLevel:     "debug",
		GinMode:      "test",
		CORSOrigins:  []string{"*"},
	}
}

// PollFixture describes a poll written straight to the store, bypassing
// lifecycle rules.
type PollFixture struct {
	Type            string
	AuditMode       string
	Status          string
	ShowPartial     bool
	AllowVoteChange bool
	StartAt         time.Time
	EndAt           time.Time
}

// CreateTestPoll creates a poll and returns its ID. Zero fields default to a
// single choice anonymous open poll running from Now-1h to Now+1h.
func CreateTestPoll(t *testing.T, st *store.Store, f PollFixture) string {
	t.Helper()

	if f.Type == "" {
		f.Type = models.TypeSingleChoice
	}
	if f.AuditMode == "" {
		f.AuditMode = models.AuditAnonymous
	}
	if f.Status == "" {
		f.Status = models.StatusOpen
	}
	if f.StartAt.IsZero() {
		f.StartAt = Now.Add(-time.Hour)
	}
	if f.EndAt.IsZero() {
		f.EndAt = Now.Add(time.Hour)
	}

	poll := models.Poll{
		ID:              uuid.NewString(),
		Title:           "Test Poll",
		Description:     "A test poll",
		Type:            f.Type,
		AuditMode:       f.AuditMode,
		ShowPartial:     f.ShowPartial,
		AllowVoteChange: f.AllowVoteChange,
		CreatedBy:       "TestStaff",
		StartAt:         f.StartAt,
		EndAt:           f.EndAt,
		Status:          f.Status,
		CreatedAt:       Now,
	}
	require.NoError(t, st.InsertPoll(context.Background(), poll), "failed to create test poll")

	return poll.ID
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, st *store.Store, pollID, label string) string {
	t.Helper()
	ctx := context.Background()

	position, err := st.CountOptions(ctx, pollID)
	require.NoError(t, err)

	option := models.Option{
		ID:       uuid.NewString(),
		PollID:   pollID,
		Label:    label,
		Position: position,
	}
	require.NoError(t, st.InsertOptions(ctx, []models.Option{option}), "failed to create test option")

	return option.ID
}

// CreateTestUnit creates a unit and returns its ID
func CreateTestUnit(t *testing.T, st *store.Store, number string) string {
	t.Helper()

	unit := models.Unit{ID: uuid.NewString(), Number: number, CreatedAt: Now}
	require.NoError(t, st.InsertUnit(context.Background(), unit), "failed to create test unit")

	return unit.ID
}

// LinkTestMember makes userID a member of unitID
func LinkTestMember(t *testing.T, st *store.Store, unitID, userID string) {
	t.Helper()

	require.NoError(t, st.LinkMember(context.Background(), unitID, userID, Now), "failed to link test member")
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	require.Equal(t, expected, w.Code, "unexpected status, body: %s", w.Body.String())
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), "failed to decode JSON response")
}
