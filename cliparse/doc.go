// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Flags are declared with pflag and resolved through a private viper
instance, so there is no package-level state.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL URL or SQLite path (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - StaffKey: Shared secret for operator endpoints (required)
  - LogLevel: logrus level (default: info)
  - GinMode: gin mode (default: release)
  - CORSOrigins: Allowed origins (default: *)

# CLI Flags

	-p, --port           Server port
	-d, --database-url   Database URL
	-t, --database-type  Database type
	--staff-key          Staff key
	--log-level          Log level
	--gin-mode           Gin mode
	--cors-origins       Comma separated origins

# Environment Variables

Flags fall back to environment variables:

	PORT          → --port
	DATABASE_URL  → --database-url
	DATABASE_TYPE → --database-type
	STAFF_KEY     → --staff-key
	LOG_LEVEL     → --log-level
	GIN_MODE      → --gin-mode
	CORS_ORIGINS  → --cors-origins

CLI flags take precedence over environment variables. main loads a .env
file with godotenv before calling ParseFlags, so .env values behave like
environment variables.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL is missing
  - STAFF_KEY is missing
  - the database type, port or log level is invalid
*/
package cliparse
