// file: internal/server/search_handler.go
// version: 1.1.0
// guid: 2b4d6f8a-0c2e-4b4d-8f6a-0c2e4b6d8f0a

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/hardcover-provider/internal/metadata"
	"github.com/jdfalk/hardcover-provider/internal/server/middleware"
)

// searchBooks serves all three search routes; missing path segments are empty.
func (s *Server) searchBooks(c *gin.Context) {
	q := metadata.Query{
		Text:   c.Query("query"),
		Author: c.Query("author"),
		Lang:   c.Param("lang"),
		Type:   c.Param("type"),
	}
	requestID := middleware.RequestIDFrom(c)
	identity := s.callerIdentity(c)

	rl := NewRequestLogger(requestID, identity, c.GetHeader("User-Agent"), c.Request.Method, c.Request.URL.Path)

	if err := ValidateSearch(q); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			LogValidationError("search", verr.Field, verr.Message, requestID)
		}
		RespondWithValidationError(c, err)
		return
	}
	rl.LogSearch(q.Text, q.Author)

	result, err := s.deps.Searcher.Search(c.Request.Context(), identity, q)
	if err != nil {
		RespondWithSearchError(c, err)
		rl.LogResponse(c.Writer.Status(), "error", 0)
		return
	}

	c.Header("X-Cache", strings.ToUpper(string(result.Outcome)))
	c.Data(http.StatusOK, "application/json; charset=utf-8", result.Body)
	rl.LogResponse(http.StatusOK, string(result.Outcome), len(result.Body))
}

// callerIdentity keys the rate limiter. Behind a trusted proxy it is the nearest
// untrusted X-Forwarded-For hop, otherwise the peer address.
func (s *Server) callerIdentity(c *gin.Context) string {
	return c.ClientIP()
}
