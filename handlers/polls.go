// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/auth"
	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/middleware"
	"github.com/danielhkuo/condovote/models"
)

// staffName is recorded as created_by when the staff caller does not name
// themselves with X-User-ID.
const staffName = "staff"

// creator returns the operator behind a staff request.
func creator(c *gin.Context) string {
	if id, err := auth.UserID(c.GetHeader(auth.HeaderUserID)); err == nil {
		return id
	}
	return staffName
}

type PollHandler struct {
	ledger *ledger.Ledger
	log    logrus.FieldLogger
}

func NewPollHandler(l *ledger.Ledger, log logrus.FieldLogger) *PollHandler {
	return &PollHandler{ledger: l, log: log}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	poll, err := h.ledger.CreatePoll(c.Request.Context(), creator(c), req)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusCreated, poll)
}

// ListPolls handles GET /polls
func (h *PollHandler) ListPolls(c *gin.Context) {
	polls, err := h.ledger.ListPolls(c.Request.Context(), c.Query("status"))
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, models.ListPollsResponse{Polls: polls})
}

// GetPoll handles GET /polls/:id
func (h *PollHandler) GetPoll(c *gin.Context) {
	poll, err := h.ledger.GetPollWithOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, poll)
}

// UpdateDraft handles PATCH /polls/:id
func (h *PollHandler) UpdateDraft(c *gin.Context) {
	var req models.UpdateDraftRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	poll, err := h.ledger.UpdateDraft(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, poll)
}

// AddOption handles POST /polls/:id/options
func (h *PollHandler) AddOption(c *gin.Context) {
	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	option, err := h.ledger.AddOption(c.Request.Context(), c.Param("id"), req.Label)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusCreated, models.AddOptionResponse{OptionID: option.ID})
}

// TransitionPoll handles POST /polls/:id/status
func (h *PollHandler) TransitionPoll(c *gin.Context) {
	var req models.TransitionRequest
	if err := middleware.ParseJSONBody(c, &req); err != nil {
		middleware.ErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Status == "" {
		middleware.ErrorResponse(c, http.StatusBadRequest, "status is required")
		return
	}

	poll, err := h.ledger.TransitionPoll(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, poll)
}
