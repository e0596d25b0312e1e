// file: internal/server/logger.go
// version: 2.0.0
// guid: 1d2e3f4a-5b6c-7d8e-9f0a-1b2c3d4e5f6a

package server

import (
	"log"
	"time"
)

// RequestLogger provides request-level logging for search calls
type RequestLogger struct {
	requestID string
	identity  string
	userAgent string
	method    string
	path      string
	startTime time.Time
}

// NewRequestLogger creates a new request logger
func NewRequestLogger(requestID, identity, userAgent, method, path string) *RequestLogger {
	if userAgent == "" {
		userAgent = "Unknown"
	}
	return &RequestLogger{
		requestID: requestID,
		identity:  identity,
		userAgent: userAgent,
		method:    method,
		path:      path,
		startTime: time.Now(),
	}
}

// LogSearch logs the received search with its terms
func (rl *RequestLogger) LogSearch(query, author string) {
	log.Printf("[INFO] Request from IP: %s, Agent: %s, Search: query=%s, author=%s [request-id: %s]",
		rl.identity, rl.userAgent, query, author, rl.requestID)
}

// LogResponse logs the response sent
func (rl *RequestLogger) LogResponse(statusCode int, outcome string, responseSize int) {
	duration := time.Since(rl.startTime)
	log.Printf("[INFO] %s %s -> %d %s (%d bytes) in %v [request-id: %s]",
		rl.method, rl.path, statusCode, outcome, responseSize, duration, rl.requestID)
}

// LogValidationError logs a validation error with context
func LogValidationError(handler string, field string, reason string, requestID string) {
	log.Printf("[WARN] %s field %q: %s [request-id: %s]",
		handler, field, reason, requestID)
}
