// file: internal/server/middleware/auth.go
// version: 2.0.0
// guid: 83c42ecb-1df2-4baf-9890-3f91ab4db6fe

package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the caller's provider key, as sent by audiobook servers.
const APIKeyHeader = "Authorization"

// APIKeyFromRequest extracts the key, accepting an optional Bearer prefix.
func APIKeyFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	value := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if strings.HasPrefix(strings.ToLower(value), "bearer ") {
		value = strings.TrimSpace(value[len("Bearer "):])
	}
	return value
}

// APIKeyVerifier checks caller keys against bcrypt hashes. With no hashes configured any
// non-empty key is accepted.
type APIKeyVerifier struct {
	hashes [][]byte

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewAPIKeyVerifier creates a verifier for the given bcrypt hashes. Blank entries are ignored.
func NewAPIKeyVerifier(hashes []string) *APIKeyVerifier {
	v := &APIKeyVerifier{verified: make(map[[sha256.Size]byte]struct{})}
	for _, h := range hashes {
		if h = strings.TrimSpace(h); h != "" {
			v.hashes = append(v.hashes, []byte(h))
		}
	}
	return v
}

// Open reports whether every non-empty key is accepted.
func (v *APIKeyVerifier) Open() bool { return len(v.hashes) == 0 }

// Verify reports whether key is acceptable. Successful keys are remembered by digest so
// bcrypt runs once per distinct key.
func (v *APIKeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	if v.Open() {
		return true
	}

	digest := sha256.Sum256([]byte(key))
	v.mu.RLock()
	_, ok := v.verified[digest]
	v.mu.RUnlock()
	if ok {
		return true
	}

	for _, h := range v.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			v.mu.Lock()
			v.verified[digest] = struct{}{}
			v.mu.Unlock()
			return true
		}
	}
	return false
}

// RequireAPIKey rejects requests without an acceptable key.
func RequireAPIKey(v *APIKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Verify(APIKeyFromRequest(c.Request)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "Unauthorized: Missing or invalid Api Key",
				"code":   "UNAUTHORIZED",
				"status": http.StatusUnauthorized,
			})
			return
		}
		c.Next()
	}
}
