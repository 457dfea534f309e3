// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the condovote API.

# Route Registration

NewRouter creates a gin engine with recovery, request logging and CORS:

	r := router.NewRouter(l, cfg, log, prometheus.DefaultGatherer)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Poll management (staff, requires X-Staff-Key):

	POST  /polls              - Create draft poll with options
	PATCH /polls/:id          - Edit a draft
	POST  /polls/:id/options  - Add option to a draft
	POST  /polls/:id/status   - Open or close

Polls (public):

	GET /polls              - List, optionally ?status=
	GET /polls/:id          - Poll and options
	GET /polls/:id/results  - Tally when visible; ?detail=true needs staff
	GET /polls/:id/ballot-count
	GET /polls/:id/preview

Voting (requires X-User-ID linked to the unit):

	POST /polls/:id/votes
	GET  /polls/:id/units/:unit_id/ballot
	GET  /me/units          - Caller's units, ?poll_id= adds has_voted

Units (staff):

	POST   /units
	POST   /units/:id/members
	DELETE /units/:id/members/:user_id

Methods not registered on a known path answer 405.
*/
package router
