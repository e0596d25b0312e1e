// file: internal/server/error_handler.go
// version: 2.0.0
// guid: 5d6e7f8a-9b0c-1d2e-3f4a-5b6c7d8e9f0a
// last-edited: 2026-10-19

package server

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/hardcover-provider/internal/credentials"
	"github.com/jdfalk/hardcover-provider/internal/metadata"
	"github.com/jdfalk/hardcover-provider/internal/ratelimit"
	"github.com/jdfalk/hardcover-provider/internal/server/middleware"
)

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
}

// RespondWithValidationError sends a 400 error for validation failures
func RespondWithValidationError(c *gin.Context, err error) {
	var verr ValidationError
	if errors.As(err, &verr) {
		RespondWithError(c, http.StatusBadRequest, "validation error: "+verr.Field+" ("+verr.Message+")", verr.Code)
		return
	}
	RespondWithError(c, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
}

// RespondWithUnauthorized sends a 401 Unauthorized error response
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, message, "UNAUTHORIZED")
}

// RespondWithSearchError maps a search pipeline failure onto its HTTP status.
func RespondWithSearchError(c *gin.Context, err error) {
	var exceeded *ratelimit.ExceededError
	switch {
	case errors.As(err, &exceeded):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(exceeded)))
		RespondWithError(c, http.StatusTooManyRequests, exceeded.Error(), "RATE_LIMITED")
	case errors.Is(err, metadata.ErrNoResults):
		RespondWithError(c, http.StatusNotFound, "No books found", "NOT_FOUND")
	case errors.Is(err, credentials.ErrExhausted):
		RespondWithError(c, http.StatusServiceUnavailable, "No upstream credential available. Please try again later.", "CREDENTIALS_EXHAUSTED")
	default:
		RespondWithError(c, http.StatusBadGateway, "Error calling external API", "UPSTREAM_ERROR")
	}
}

func retryAfterSeconds(e *ratelimit.ExceededError) int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	method := c.Request.Method
	path := c.Request.URL.Path
	clientIP := c.ClientIP()

	logLevel := "WARN"
	if statusCode >= 500 {
		logLevel = "ERROR"
	}

	log.Printf("[%s] %s %s %d - %s (from %s) [request-id: %s]", logLevel, method, path, statusCode, message, clientIP, middleware.RequestIDFrom(c))
}
