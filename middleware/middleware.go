// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/auth"
	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/models"
)

// ContextUserID is the gin context key RequireUser stores the caller under.
const ContextUserID = "user_id"

// WithLogging logs every request once it completes.
func WithLogging(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		entry.Info("request completed")
	}
}

// CORS allows cross-origin requests from the given origins. A "*" entry
// allows every origin, without credentials.
func CORS(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AddAllowHeaders(auth.HeaderStaffKey, auth.HeaderUserID)

	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}

	return cors.New(corsConfig)
}

// JSONResponse writes a JSON response
func JSONResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// ErrorResponse writes a JSON error response and stops the handler chain.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(c *gin.Context, v interface{}) error {
	return c.ShouldBindJSON(v)
}

// StatusFor maps a ledger error kind to an HTTP status code.
func StatusFor(err error) int {
	switch ledger.Kind(err) {
	case ledger.ErrNotFound:
		return http.StatusNotFound
	case ledger.ErrInvalidState, ledger.ErrAlreadyVoted, ledger.ErrUnitExists, ledger.ErrStorageConflict:
		return http.StatusConflict
	case ledger.ErrWindowClosed:
		return http.StatusForbidden
	case ledger.ErrInvalidSelection, ledger.ErrInvalidPoll, ledger.ErrInvalidInput, ledger.ErrMissingVoter:
		return http.StatusBadRequest
	case ledger.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// LedgerError writes the response for an error returned by the ledger.
// Internal details are logged, not returned.
func LedgerError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := StatusFor(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		ErrorResponse(c, status, "")
		return
	}

	ErrorResponse(c, status, err.Error())
}

// RequireStaff rejects requests without a valid X-Staff-Key header.
func RequireStaff(staffKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.ValidateStaffKey(c.GetHeader(auth.HeaderStaffKey), staffKey); err != nil {
			ErrorResponse(c, http.StatusUnauthorized, "Invalid or missing staff key")
			return
		}
		c.Next()
	}
}

// IsStaff reports whether the request carries a valid staff key without
// rejecting it.
func IsStaff(c *gin.Context, staffKey string) bool {
	return auth.ValidateStaffKey(c.GetHeader(auth.HeaderStaffKey), staffKey) == nil
}

// RequireUser rejects requests without an X-User-ID header and stores the
// user ID in the context.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.UserID(c.GetHeader(auth.HeaderUserID))
		if err != nil {
			ErrorResponse(c, http.StatusUnauthorized, "Missing X-User-ID header")
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the user stored by RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
