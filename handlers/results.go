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

type ResultsHandler struct {
	ledger   *ledger.Ledger
	log      logrus.FieldLogger
	staffKey string
}

func NewResultsHandler(l *ledger.Ledger, log logrus.FieldLogger, staffKey string) *ResultsHandler {
	return &ResultsHandler{ledger: l, log: log, staffKey: staffKey}
}

// GetResults handles GET /polls/:id/results
//
// Closed polls always show their final tally. Open polls show a partial
// tally only when show_partial is set and the voting window is running.
// ?detail=true adds per-unit lines for tracked polls and needs the staff key.
func (h *ResultsHandler) GetResults(c *gin.Context) {
	ctx := c.Request.Context()
	pollID := c.Param("id")

	detail := c.Query("detail") == "true"
	if detail && !middleware.IsStaff(c, h.staffKey) {
		middleware.ErrorResponse(c, http.StatusUnauthorized, "Detail requires the staff key")
		return
	}

	poll, err := h.ledger.GetPoll(ctx, pollID)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	if !h.visible(*poll) {
		middleware.ErrorResponse(c, http.StatusForbidden, "Results are hidden until poll is closed")
		return
	}

	result, err := h.ledger.Tally(ctx, pollID, detail)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, result)
}

// visible reports whether poll's tally may be shown to anyone.
func (h *ResultsHandler) visible(poll models.Poll) bool {
	switch poll.Status {
	case models.StatusClosed:
		return true
	case models.StatusOpen:
		return poll.ShowPartial && poll.InWindow(h.ledger.Now())
	}
	return false
}

// GetBallotCount handles GET /polls/:id/ballot-count
// Participation is visible even while results are hidden.
func (h *ResultsHandler) GetBallotCount(c *gin.Context) {
	count, err := h.ledger.CountBallots(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, models.BallotCountResponse{BallotCount: count})
}

// GetPreview handles GET /polls/:id/preview
// Returns compact poll data for chat bot menus.
func (h *ResultsHandler) GetPreview(c *gin.Context) {
	ctx := c.Request.Context()
	pollID := c.Param("id")

	poll, err := h.ledger.GetPollWithOptions(ctx, pollID)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	count, err := h.ledger.CountBallots(ctx, pollID)
	if err != nil {
		middleware.LedgerError(c, h.log, err)
		return
	}

	middleware.JSONResponse(c, http.StatusOK, models.PollPreviewResponse{
		Title:       poll.Poll.Title,
		Status:      poll.Poll.Status,
		EndAt:       poll.Poll.EndAt,
		OptionCount: len(poll.Options),
		BallotCount: count,
	})
}
