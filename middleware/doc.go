// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides gin middleware and response helpers.

# Logging

WithLogging logs one line per request after the handler chain ran:

	r.Use(middleware.WithLogging(log))

Fields: method, path, status, duration_ms, remote, plus any errors attached
with c.Error.

# Access

RequireStaff guards operator routes with the X-Staff-Key header.
RequireUser guards resident routes with the X-User-ID header and stores the
user under ContextUserID; read it back with UserID(c).

# Responses

JSONResponse and ErrorResponse write JSON bodies. ErrorResponse aborts the
chain and uses models.ErrorResponse:

	{"error": "Not Found", "message": "not found: poll abc"}

LedgerError maps ledger error kinds onto status codes:

	ErrNotFound                        404
	ErrInvalidState, ErrAlreadyVoted   409
	ErrUnitExists, ErrStorageConflict  409
	ErrWindowClosed                    403
	ErrInvalidSelection, ErrInvalidPoll,
	ErrInvalidInput, ErrMissingVoter   400
	ErrServiceUnavailable              503
	anything else                      500

Messages of 5xx responses are logged and left out of the body.

# CORS

CORS wraps gin-contrib/cors. The staff and user headers are added to the
allowed request headers.
*/
package middleware
