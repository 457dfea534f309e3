// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth checks the two identities the HTTP layer deals with.

# Staff Key

Operator endpoints (creating polls, opening and closing them, managing
units, reading per-unit detail) require the X-Staff-Key header to match the
configured STAFF_KEY:

	err := auth.ValidateStaffKey(r.Header.Get(auth.HeaderStaffKey), cfg.StaffKey)

Both values are hashed with SHA-256 and compared with hmac.Equal, so timing
does not leak the key or its length. An empty configured key rejects
everything.

# User Identity

Residents are identified by the X-User-ID header set by the upstream
session layer. This service does not authenticate users itself; it only
normalises the header:

	userID, err := auth.UserID(r.Header.Get(auth.HeaderUserID))

Which units a user may vote for is decided by the ledger from the unit
membership table, not here.
*/
package auth
