// file: internal/clock/clock.go
// version: 1.1.0
// guid: 0f4c2a9e-6b1d-4e83-9a57-3c8d1e2f4b60

package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the wall-clock source used by the cache, limiter and credential pool.
// Any clockwork.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

var system = clockwork.NewRealClock()

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return system.Now() }

// Manual is a settable clock for tests and replay tooling, backed by a clockwork
// fake clock so timers created from it fire as it moves.
type Manual struct {
	clockwork.Clock

	mu      sync.Mutex
	advance func(time.Duration)
}

// NewManual returns a manual clock starting at t.
func NewManual(t time.Time) *Manual {
	fake := clockwork.NewFakeClockAt(t)
	return &Manual{Clock: fake, advance: fake.Advance}
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.advance(d)
	m.mu.Unlock()
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.advance(t.Sub(m.Clock.Now()))
	m.mu.Unlock()
}
