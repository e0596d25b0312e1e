// file: internal/server/server_test.go
// version: 2.1.0
// guid: b2c3d4e5-f6a7-8901-bcde-234567890abc

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/hardcover-provider/internal/cache"
	"github.com/jdfalk/hardcover-provider/internal/credentials"
	"github.com/jdfalk/hardcover-provider/internal/metadata"
	"github.com/jdfalk/hardcover-provider/internal/ratelimit"
	"github.com/jdfalk/hardcover-provider/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeSearcher struct {
	mu       sync.Mutex
	calls    int
	identity string
	query    metadata.Query
	result   search.Result
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, identity string, q metadata.Query) (search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.identity = identity
	f.query = q
	return f.result, f.err
}

type staticStats struct{}

func (staticStats) Stats() (cache.Stats, error) {
	return cache.Stats{HotEntries: 2, HotBytes: 100, ColdEntries: 5, ColdBytes: 900}, nil
}

type staticLen int

func (s staticLen) Len() int        { return int(s) }
func (s staticLen) Identities() int { return int(s) }

func setupTestServer(t *testing.T, opts Options) (*Server, *fakeSearcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := &fakeSearcher{result: search.Result{
		Body:    []byte(`{"matches":[{"title":"Dune"}]}`),
		Outcome: search.OutcomeMiss,
	}}
	srv := NewServer(Dependencies{
		Searcher: fake,
		Cache:    staticStats{},
		Pool:     staticLen(3),
		Limiter:  staticLen(4),
	}, opts)
	return srv, fake
}

func doRequest(srv *Server, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:41234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

var authed = map[string]string{"Authorization": "any-key"}

func TestHealthCheck(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	w := doRequest(srv, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["credentials"])
	assert.Equal(t, float64(4), body["rate_limited_identities"])
	assert.Equal(t, float64(5), body["cache"].(map[string]any)["cold_entries"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	w := doRequest(srv, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSearch_RequiresAPIKey(t *testing.T) {
	srv, fake := setupTestServer(t, Options{})

	w := doRequest(srv, "/search?query=Dune", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, fake.calls)
}

func TestSearch_Routes(t *testing.T) {
	tests := []struct {
		path string
		want metadata.Query
	}{
		{"/search?query=Dune&author=Herbert", metadata.Query{Text: "Dune", Author: "Herbert"}},
		{"/en/search?query=Dune", metadata.Query{Text: "Dune", Lang: "en"}},
		{"/abook/search?query=Dune", metadata.Query{Text: "Dune", Lang: "abook"}},
		{"/de/abook/search?query=Dune", metadata.Query{Text: "Dune", Lang: "de", Type: "abook"}},
		{"/en/book/search?query=D%C3%BCne", metadata.Query{Text: "Düne", Lang: "en", Type: "book"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			srv, fake := setupTestServer(t, Options{})

			w := doRequest(srv, tt.path, authed)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, `{"matches":[{"title":"Dune"}]}`, w.Body.String())
			assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, tt.want, fake.query)
		})
	}
}

func TestSearch_ValidationErrors(t *testing.T) {
	paths := []string{
		"/search",
		"/search?query=ab",
		"/search?query=%20%20ab%20",
		"/eng/search?query=Dune",
		"/e1/search?query=Dune",
		"/en/video/search?query=Dune",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			srv, fake := setupTestServer(t, Options{})

			w := doRequest(srv, path, authed)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, fake.calls)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.NotEmpty(t, resp.Code)
		})
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rate limited", &ratelimit.ExceededError{Limit: 15, Window: time.Minute, RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"no books", metadata.ErrNoResults, http.StatusNotFound, "NOT_FOUND"},
		{"exhausted", credentials.ErrExhausted, http.StatusServiceUnavailable, "CREDENTIALS_EXHAUSTED"},
		{"upstream", fmt.Errorf("%w: status 500", metadata.ErrUpstream), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"unknown", errors.New("boom"), http.StatusBadGateway, "UPSTREAM_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fake := setupTestServer(t, Options{})
			fake.err = tt.err

			w := doRequest(srv, "/search?query=Dune", authed)
			assert.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.status, resp.Status)
		})
	}
}

func TestSearch_RetryAfterHeader(t *testing.T) {
	srv, fake := setupTestServer(t, Options{})
	fake.err = &ratelimit.ExceededError{Limit: 15, Window: time.Minute, RetryAfter: 1500 * time.Millisecond}

	w := doRequest(srv, "/search?query=Dune", authed)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "15 requests per minute")
}

func TestSearch_CallerIdentity(t *testing.T) {
	proxy := []string{"192.0.2.0/24"}

	t.Run("nearest untrusted hop behind trusted proxy", func(t *testing.T) {
		srv, fake := setupTestServer(t, Options{TrustedProxies: []string{"192.0.2.0/24", "10.0.0.0/8"}})
		doRequest(srv, "/search?query=Dune", map[string]string{
			"Authorization":   "k",
			"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
		})
		assert.Equal(t, "203.0.113.7", fake.identity)
	})

	t.Run("forged leading hops do not change identity", func(t *testing.T) {
		srv, fake := setupTestServer(t, Options{TrustedProxies: proxy})
		seen := map[string]struct{}{}
		for i := 0; i < 5; i++ {
			doRequest(srv, "/search?query=Dune", map[string]string{
				"Authorization":   "k",
				"X-Forwarded-For": fmt.Sprintf("198.51.100.%d, 203.0.113.7", i+1),
			})
			seen[fake.identity] = struct{}{}
		}
		assert.Equal(t, map[string]struct{}{"203.0.113.7": {}}, seen)
	})

	t.Run("header ignored from untrusted peer", func(t *testing.T) {
		srv, fake := setupTestServer(t, Options{})
		doRequest(srv, "/search?query=Dune", map[string]string{
			"Authorization":   "k",
			"X-Forwarded-For": "203.0.113.7",
		})
		assert.Equal(t, "192.0.2.10", fake.identity)
	})

	t.Run("no forwarded header", func(t *testing.T) {
		srv, fake := setupTestServer(t, Options{TrustedProxies: proxy})
		doRequest(srv, "/search?query=Dune", authed)
		assert.Equal(t, "192.0.2.10", fake.identity)
	})

	t.Run("invalid proxy list trusts nobody", func(t *testing.T) {
		srv, fake := setupTestServer(t, Options{TrustedProxies: []string{"not-an-address"}})
		doRequest(srv, "/search?query=Dune", map[string]string{
			"Authorization":   "k",
			"X-Forwarded-For": "203.0.113.7",
		})
		assert.Equal(t, "192.0.2.10", fake.identity)
	})
}

func TestSearch_HashedAPIKeys(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	srv, _ := setupTestServer(t, Options{APIKeyHashes: []string{string(hash)}})

	assert.Equal(t, http.StatusUnauthorized, doRequest(srv, "/search?query=Dune", authed).Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, "/search?query=Dune", map[string]string{"Authorization": "secret"}).Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, "/search?query=Dune", map[string]string{"Authorization": "Bearer secret"}).Code)
}

func TestSearch_RequestIDPassthrough(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	w := doRequest(srv, "/search?query=Dune", map[string]string{"Authorization": "k", "X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
