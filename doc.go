// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the condovote API server.

condovote runs unit-based votes for a condominium association. Staff create
polls, residents vote on behalf of the housing units they are linked to, and
each unit holds at most one ballot per poll.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=condovote.db STAFF_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --staff-key ...

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - STAFF_KEY (--staff-key): Secret for operator endpoints

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - LOG_LEVEL (--log-level): logrus level (default: info)
  - GIN_MODE (--gin-mode): debug, release or test (default: release)
  - CORS_ORIGINS (--cors-origins): comma separated origins (default: *)

# Architecture

  - ledger: voting rules (lifecycle, eligibility, casting, tally)
  - store: goqu queries over PostgreSQL or SQLite
  - db: connections and embedded migrations
  - handlers, router, middleware: the gin HTTP adapter
  - metrics: Prometheus instruments
  - models: shared data types
  - auth: staff key and user header checks
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
