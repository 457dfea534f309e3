// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus instruments updated by the ledger.
// They are exposed over HTTP at /metrics by the router.
package metrics
