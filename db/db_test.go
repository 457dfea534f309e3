// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := Open(TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := openMemory(t)

	require.NoError(t, Migrate(conn, TypeSQLite, ""))
	require.NoError(t, Migrate(conn, TypeSQLite, ""))

	for _, table := range []string{"poll", "option", "unit", "unit_member", "ballot"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)

	require.Error(t, Migrate(nil, "mysql", ""))
}

func TestDialect(t *testing.T) {
	require.Equal(t, "sqlite3", Dialect(TypeSQLite))
	require.Equal(t, "postgres", Dialect(TypePostgres))
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openMemory(t)
	require.NoError(t, Migrate(conn, TypeSQLite, ""))

	_, err := conn.Exec(`INSERT INTO unit (id, number) VALUES ('u1', '101')`)
	require.NoError(t, err)

	_, err = conn.Exec(`INSERT INTO unit (id, number) VALUES ('u2', '101')`)
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))
	require.True(t, IsUniqueViolation(fmt.Errorf("insert unit: %w", err)))

	_, err = conn.Exec(`INSERT INTO unit (id, number) VALUES ('u1', '102')`)
	require.True(t, IsUniqueViolation(err), "primary key collision")

	// a foreign key failure is a constraint error but not a uniqueness one
	_, err = conn.Exec(`INSERT INTO unit_member (unit_id, user_id) VALUES ('missing', 'alice')`)
	require.Error(t, err)
	require.False(t, IsUniqueViolation(err))

	require.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	require.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	require.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed")))
	require.False(t, IsUniqueViolation(nil))
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad connection", driver.ErrBadConn, true},
		{"wrapped bad connection", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"postgres connection failure", &pq.Error{Code: "08006"}, true},
		{"postgres shutting down", &pq.Error{Code: "57P01"}, true},
		{"postgres unique violation", &pq.Error{Code: "23505"}, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("ping: %w", context.DeadlineExceeded), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}
