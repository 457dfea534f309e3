// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/danielhkuo/condovote/db"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("unique constraint violated")
	ErrUnavailable = errors.New("database unavailable")
)

// Table names
const (
	tablePoll       = "poll"
	tableOption     = "option"
	tableUnit       = "unit"
	tableUnitMember = "unit_member"
	tableBallot     = "ballot"
)

// queryer is satisfied by both *goqu.Database and *goqu.TxDatabase.
type queryer interface {
	From(from ...interface{}) *goqu.SelectDataset
	Insert(table interface{}) *goqu.InsertDataset
	Update(table interface{}) *goqu.UpdateDataset
	Delete(table interface{}) *goqu.DeleteDataset
	Dialect() string
}

// Queries holds every read and write the ledger needs. It runs either
// directly on the pool or inside a transaction opened by Store.WithTx.
type Queries struct {
	q queryer
}

// Store is the poll store, unit registry and ballot ledger.
type Store struct {
	*Queries
	db *goqu.Database
}

// New wraps an open connection. dialect is a goqu dialect name, see db.Dialect.
func New(conn *sql.DB, dialect string) *Store {
	gdb := goqu.New(dialect, conn)
	return &Store{
		Queries: &Queries{q: gdb},
		db:      gdb,
	}
}

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back on any error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}

	return classify(tx.Wrap(func() error {
		return fn(&Queries{q: tx})
	}))
}

// classify maps driver errors onto the store sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUnavailable), errors.Is(err, ErrNotFound):
		return err
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case db.IsUnavailable(err):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
