// file: internal/ratelimit/limiter.go
// version: 1.1.0
// guid: 1331705a-85cb-4158-92f5-5ce203d8a0e7

package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
	"github.com/jdfalk/hardcover-provider/internal/metrics"
)

const (
	DefaultLimit  = 15
	DefaultWindow = 60 * time.Second
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Window     time.Duration
	Remaining  int
	RetryAfter time.Duration
}

// ExceededError reports a rejected check with retry guidance.
type ExceededError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded (%d requests per %s). Please try again later.", e.Limit, describeWindow(e.Window))
}

// Err converts a rejection into an *ExceededError; admitted decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ExceededError{Limit: d.Limit, Window: d.Window, RetryAfter: d.RetryAfter}
}

func describeWindow(w time.Duration) string {
	if w == time.Minute {
		return "minute"
	}
	return w.String()
}

// SlidingWindowLimiter admits at most limit checks per identity in any trailing window.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clock   clock.Clock
	windows map[string][]time.Time
}

// NewSlidingWindowLimiter creates a limiter. Non-positive values fall back to the defaults.
func NewSlidingWindowLimiter(limit int, window time.Duration, clk clock.Clock) *SlidingWindowLimiter {
	if limit < 1 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SlidingWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clk,
		windows: make(map[string][]time.Time),
	}
}

// Limit returns the admissions allowed per window.
func (l *SlidingWindowLimiter) Limit() int { return l.limit }

// Window returns the trailing window length.
func (l *SlidingWindowLimiter) Window() time.Duration { return l.window }

// Check prunes the identity's stale timestamps and admits if capacity remains.
// A rejected check is not recorded.
func (l *SlidingWindowLimiter) Check(identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Read under the lock so appends stay in clock order.
	now := l.clock.Now()
	stamps := l.windows[identity]
	if n := len(stamps); n > 0 && now.Before(stamps[n-1]) {
		now = stamps[n-1]
	}
	stamps = prune(stamps, now.Add(-l.window))
	d := Decision{Limit: l.limit, Window: l.window}

	if len(stamps) >= l.limit {
		l.windows[identity] = stamps
		d.RetryAfter = stamps[0].Add(l.window).Sub(now)
		metrics.IncRateLimitCheck("reject")
		return d
	}

	stamps = append(stamps, now)
	l.windows[identity] = stamps
	d.Allowed = true
	d.Remaining = l.limit - len(stamps)
	metrics.IncRateLimitCheck("admit")
	metrics.SetRateLimitIdentities(len(l.windows))
	return d
}

// Reclaim drops identities whose entire window is stale and returns how many were dropped.
// It shares the check lock, so an identity that just gained a timestamp is never removed.
func (l *SlidingWindowLimiter) Reclaim() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-l.window)

	removed := 0
	for identity, stamps := range l.windows {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.windows, identity)
			removed++
		}
	}
	metrics.SetRateLimitIdentities(len(l.windows))
	return removed
}

// Identities reports how many identities are tracked.
func (l *SlidingWindowLimiter) Identities() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// prune drops timestamps at or before cutoff. Timestamps are ascending.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
