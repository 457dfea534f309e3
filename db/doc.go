// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and applies the schema.

# Connections

Two database types are supported:

	conn, err := db.Open(db.TypePostgres, "postgres://...")
	conn, err := db.Open(db.TypeSQLite, "file:condovote.db")

SQLite connections are limited to a single open connection, so writers
serialise and ":memory:" databases are shared by every query.

# Migrations

Migrate applies the embedded migrations for the database type:

	if err := db.Migrate(conn, db.TypeSQLite, url); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - already applied versions are skipped.

# Tables

  - poll: Poll metadata, type, audit mode and lifecycle state
  - option: Options per poll, ordered by position
  - unit: Housing units (the ballot identity)
  - unit_member: Links users to the units they vote through
  - ballot: One ballot per unit per poll

# Relationships

	poll 1──* option
	poll 1──* ballot
	unit 1──* ballot
	unit 1──* unit_member

Ballots are never cascaded away: deleting a poll, unit or option that
still has ballots fails.

# Constraints

  - ballot.(poll_id, unit_id) is unique
  - option.(poll_id, position) is unique
  - unit.number is unique

# Errors

IsUniqueViolation and IsUnavailable classify driver errors from both
lib/pq and modernc.org/sqlite.
*/
package db
