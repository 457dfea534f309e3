// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/cliparse"
	"github.com/danielhkuo/condovote/handlers"
	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/middleware"
)

func NewRouter(l *ledger.Ledger, cfg cliparse.Config, log logrus.FieldLogger, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.WithLogging(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(l, log)
	votingHandler := handlers.NewVotingHandler(l, log)
	resultsHandler := handlers.NewResultsHandler(l, log, cfg.StaffKey)
	unitHandler := handlers.NewUnitHandler(l, log)

	staff := middleware.RequireStaff(cfg.StaffKey)
	user := middleware.RequireUser()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Poll management
	r.POST("/polls", staff, pollHandler.CreatePoll)
	r.GET("/polls", pollHandler.ListPolls)
	r.GET("/polls/:id", pollHandler.GetPoll)
	r.PATCH("/polls/:id", staff, pollHandler.UpdateDraft)
	r.POST("/polls/:id/options", staff, pollHandler.AddOption)
	r.POST("/polls/:id/status", staff, pollHandler.TransitionPoll)

	// Voting, on behalf of a unit the caller is linked to
	r.POST("/polls/:id/votes", user, votingHandler.CastVote)
	r.GET("/polls/:id/units/:unit_id/ballot", user, votingHandler.GetUnitBallot)

	// Results
	r.GET("/polls/:id/results", resultsHandler.GetResults)
	r.GET("/polls/:id/ballot-count", resultsHandler.GetBallotCount)
	r.GET("/polls/:id/preview", resultsHandler.GetPreview)

	// Units and membership
	r.POST("/units", staff, unitHandler.CreateUnit)
	r.POST("/units/:id/members", staff, unitHandler.LinkMember)
	r.DELETE("/units/:id/members/:user_id", staff, unitHandler.UnlinkMember)
	r.GET("/me/units", user, unitHandler.MyUnits)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "condovote API v1")
	})

	return r
}
