// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys, shared by flags and environment variables
const (
	KeyPort         = "port"
	KeyDatabaseURL  = "database-url"
	KeyDatabaseType = "database-type"
	KeyStaffKey     = "staff-key"
	KeyLogLevel     = "log-level"
	KeyGinMode      = "gin-mode"
	KeyCORSOrigins  = "cors-origins"
)

const DefaultPort = 3318

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	StaffKey     string
	LogLevel     string
	GinMode      string
	CORSOrigins  []string
}

// ParseFlags reads configuration from args and the environment.
// Flags set on the command line win over environment variables, which win
// over defaults.
func ParseFlags(args []string) (Config, error) {
	fs := pflag.NewFlagSet("condovote", pflag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntP(KeyPort, "p", DefaultPort, "Server port")
	fs.StringP(KeyDatabaseURL, "d", "", "Database URL")
	fs.StringP(KeyDatabaseType, "t", "sqlite", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.String(KeyStaffKey, "", "Staff key for operator endpoints (prefer env)")

	fs.String(KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	fs.String(KeyGinMode, "release", "Gin mode (debug, release, test)")
	fs.String(KeyCORSOrigins, "*", "Comma separated list of allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	// Fall back to environment variables
	envs := map[string]string{
		KeyPort:         "PORT",
		KeyDatabaseURL:  "DATABASE_URL",
		KeyDatabaseType: "DATABASE_TYPE",
		KeyStaffKey:     "STAFF_KEY",
		KeyLogLevel:     "LOG_LEVEL",
		KeyGinMode:      "GIN_MODE",
		KeyCORSOrigins:  "CORS_ORIGINS",
	}
	for key, env := range envs {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := Config{
		DatabaseURL:  v.GetString(KeyDatabaseURL),
		DatabaseType: v.GetString(KeyDatabaseType),
		StaffKey:     v.GetString(KeyStaffKey),
		LogLevel:     v.GetString(KeyLogLevel),
		GinMode:      v.GetString(KeyGinMode),
		CORSOrigins:  splitList(v.GetString(KeyCORSOrigins)),
	}

	port, err := parsePort(v.GetString(KeyPort))
	if err != nil {
		return Config{}, err
	}
	cfg.Port = port

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	switch cfg.DatabaseType {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.StaffKey == "" {
		return Config{}, errors.New("STAFF_KEY required")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	return cfg, nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	return port, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
