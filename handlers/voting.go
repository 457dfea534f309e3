// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/middleware"
	"github.com/danielhkuo/condovote/models"
)

type VotingHandler struct {
	ledger *ledger.Ledger
	log    logrus.FieldLogger
}

func NewVotingHandler(l *ledger.Ledger, log logrus.FieldLogger) *VotingHandler {
	return &VotingHandler{ledger: l, log: log}
}

// CastVote handles POST /polls/:id/votes
func (h *VotingHandler) CastVote(c *gin.Context) {
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UnitID == "" {
		middleware.ErrorResponse(c, http.StatusBadRequest, "unit_id is required")
		return
	}

	userID := middleware.UserID(c)
	if !h.requireMember(c, req.UnitID, userID) {
		return
	}

	ballot, err := h.ledger.CastVote(c.Request.Context(), ledger.VoteRequest{
		PollID:      c.Param("id"),
		UnitID:      req.UnitID,
		OptionIDs:   req.OptionIDs,
		VoterUserID: userID,
	})
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	message := "Vote recorded"
	if ballot.UpdatedCount > 0 {
		message = "Vote updated"
	}

	middleware.JSONResponse(c, http.StatusOK, models.CastVoteResponse{
		Ballot:  *ballot,
		Message: message,
	})
}

// GetUnitBallot handles GET /polls/:id/units/:unit_id/ballot
func (h *VotingHandler) GetUnitBallot(c *gin.Context) {
	unitID := c.Param("unit_id")
	if !h.requireMember(c, unitID, middleware.UserID(c)) {
		return
	}

	ballot, err := h.ledger.GetBallot(c.Request.Context(), c.Param("id"), unitID)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, ballot)
}

// requireMember writes a 403 and returns false unless userID is linked to
// unitID.
func (h *VotingHandler) requireMember(c *gin.Context, unitID, userID string) bool {
	ok, err := h.ledger.IsEligible(c.Request.Context(), unitID, userID)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return false
	}
	if !ok {
		middleware.ErrorResponse(c, http.StatusForbidden, "Not a member of this unit")
		return false
	}
	return true
}
