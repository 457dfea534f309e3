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

type UnitHandler struct {
	ledger *ledger.Ledger
	log    logrus.FieldLogger
}

func NewUnitHandler(l *ledger.Ledger, log logrus.FieldLogger) *UnitHandler {
	return &UnitHandler{ledger: l, log: log}
}

// CreateUnit handles POST /units
func (h *UnitHandler) CreateUnit(c *gin.Context) {
	var req models.CreateUnitRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	unit, err := h.ledger.CreateUnit(c.Request.Context(), req.Number)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusCreated, unit)
}

// LinkMember handles POST /units/:id/members
func (h *UnitHandler) LinkMember(c *gin.Context) {
	var req models.LinkMemberRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.ledger.LinkUser(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnlinkMember handles DELETE /units/:id/members/:user_id
func (h *UnitHandler) UnlinkMember(c *gin.Context) {
	if err := h.ledger.UnlinkUser(c.Request.Context(), c.Param("id"), c.Param("user_id")); err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MyUnits handles GET /me/units
// With ?poll_id= each unit carries whether it already voted in that poll.
func (h *UnitHandler) MyUnits(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	if pollID := c.Query("poll_id"); pollID != "" {
		statuses, err := h.ledger.UnitStatuses(ctx, pollID, userID)
		if err != nil {
			middleware.LedgerError(c, h.log, err)
			return
		}
		middleware.JSONResponse(c, http.StatusOK, models.EligibleUnitsResponse{Units: statuses})
		return
	}

	units, err := h.ledger.ResolveEligibleUnits(ctx, userID)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	statuses := make([]models.UnitStatus, 0, len(units))
	for _, u := range units {
		statuses = append(statuses, models.UnitStatus{Unit: u})
	}
	middleware.JSONResponse(c, http.StatusOK, models.EligibleUnitsResponse{Units: statuses})
}
