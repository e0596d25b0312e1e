// file: internal/credentials/pool_test.go
// version: 1.1.0
// guid: 6c9e2a4d-8f1b-4c3e-a5d7-9b1d3f5a7c9e

package credentials

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that records every save.
type memStore struct {
	mu      sync.Mutex
	creds   []Credential
	saves   int
	failErr error
}

func (s *memStore) Load() ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Credential(nil), s.creds...), nil
}

func (s *memStore) Save(creds []Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.saves++
	s.creds = append([]Credential(nil), creds...)
	return nil
}

// countingMinter hands out sequential tokens, optionally failing or blocking.
type countingMinter struct {
	calls   atomic.Int32
	fail    atomic.Bool
	release chan struct{}
}

func (m *countingMinter) Mint(ctx context.Context) (string, error) {
	n := m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	if m.fail.Load() {
		return "", errors.New("upstream down")
	}
	return "token-" + string(rune('a'+n-1)), nil
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestPool(minter Minter, store Store) (*Pool, *clock.Manual) {
	clk := clock.NewManual(epoch)
	return NewPool(minter, store, Options{Clock: clk}), clk
}

func TestPool_CapLimitsUsesWithinWindow(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(&countingMinter{}, &memStore{})
	pool.creds = []*Credential{
		{Key: "first", Cap: 2, ExpiresAt: epoch.Add(time.Hour), ResetAt: epoch.Add(time.Minute)},
		{Key: "second", Cap: 2, ExpiresAt: epoch.Add(time.Hour), ResetAt: epoch.Add(time.Minute)},
	}

	for i := 0; i < 2; i++ {
		c, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "first", c.Key)
	}
	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", c.Key)
}

func TestPool_ExhaustedWhenAllCapped(t *testing.T) {
	t.Parallel()

	minter := &countingMinter{}
	pool, _ := newTestPool(minter, &memStore{})
	pool.creds = []*Credential{
		{Key: "only", Cap: 2, ExpiresAt: epoch.Add(time.Hour), ResetAt: epoch.Add(time.Minute)},
	}

	for i := 0; i < 2; i++ {
		_, err := pool.Acquire(context.Background())
		require.NoError(t, err)
	}
	_, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Zero(t, minter.calls.Load(), "a capped credential must not trigger a mint")
	assert.Equal(t, 1, pool.Len())
}

func TestPool_ResetAfterWindow(t *testing.T) {
	t.Parallel()

	pool, clk := newTestPool(&countingMinter{}, &memStore{})
	pool.creds = []*Credential{
		{Key: "only", Cap: 1, ExpiresAt: epoch.Add(time.Hour), ResetAt: epoch.Add(time.Minute)},
	}

	_, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	_, err = pool.Acquire(context.Background())
	require.ErrorIs(t, err, ErrExhausted)

	clk.Advance(time.Minute)
	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Uses)
	assert.Equal(t, clk.Now().Add(DefaultResetWindow), c.ResetAt)
}

func TestPool_NeverReturnsExpired(t *testing.T) {
	t.Parallel()

	minter := &countingMinter{}
	pool, clk := newTestPool(minter, &memStore{})
	pool.creds = []*Credential{
		{Key: "old", Cap: 10, ExpiresAt: epoch.Add(time.Minute), ResetAt: epoch.Add(time.Minute)},
	}

	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old", c.Key)

	clk.Advance(time.Minute)
	c, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-a", c.Key, "expired credential is replaced by a fresh mint")
	assert.EqualValues(t, 1, minter.calls.Load())

	for _, snap := range pool.Snapshot() {
		assert.NotEqual(t, "old", snap.Key)
	}
}

func TestPool_MintedCredentialDefaults(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	pool, clk := newTestPool(&countingMinter{}, store)

	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultCap, c.Cap)
	assert.Equal(t, 1, c.Uses)
	assert.Equal(t, clk.Now().Add(DefaultValidity), c.ExpiresAt)

	require.Len(t, store.creds, 1)
	assert.Equal(t, c.Key, store.creds[0].Key)
}

func TestPool_MintFailureLeavesPoolUnchanged(t *testing.T) {
	t.Parallel()

	minter := &countingMinter{}
	minter.fail.Store(true)
	store := &memStore{}
	pool, _ := newTestPool(minter, store)

	_, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Zero(t, pool.Len())
	assert.Zero(t, store.saves)

	// The next request tries again.
	minter.fail.Store(false)
	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Key)
	assert.EqualValues(t, 2, minter.calls.Load())
}

func TestPool_PersistFailureKeepsCredentialLive(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(&countingMinter{}, &memStore{failErr: errors.New("disk full")})

	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-a", c.Key)
	assert.Equal(t, 1, pool.Len())
}

func TestPool_BootstrapMintsOnlyWhenEmpty(t *testing.T) {
	t.Parallel()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()
		minter := &countingMinter{}
		pool, _ := newTestPool(minter, &memStore{})
		require.NoError(t, pool.Bootstrap(context.Background()))
		assert.EqualValues(t, 1, minter.calls.Load())
		assert.Equal(t, 1, pool.Len())
	})

	t.Run("live credential on disk", func(t *testing.T) {
		t.Parallel()
		minter := &countingMinter{}
		store := &memStore{creds: []Credential{{Key: "disk", Cap: 80, ExpiresAt: epoch.Add(24 * time.Hour)}}}
		pool, _ := newTestPool(minter, store)
		require.NoError(t, pool.Bootstrap(context.Background()))
		assert.Zero(t, minter.calls.Load())

		c, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "disk", c.Key)
		assert.Equal(t, 1, c.Uses)
	})

	t.Run("only expired on disk", func(t *testing.T) {
		t.Parallel()
		minter := &countingMinter{}
		store := &memStore{creds: []Credential{{Key: "stale", Cap: 80, ExpiresAt: epoch.Add(-time.Hour)}}}
		pool, _ := newTestPool(minter, store)
		require.NoError(t, pool.Bootstrap(context.Background()))
		assert.EqualValues(t, 1, minter.calls.Load())

		snap := pool.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, "token-a", snap[0].Key)
		require.Len(t, store.creds, 1, "expired record is dropped from the file")
	})

	t.Run("mint failure", func(t *testing.T) {
		t.Parallel()
		minter := &countingMinter{}
		minter.fail.Store(true)
		pool, _ := newTestPool(minter, &memStore{})
		err := pool.Bootstrap(context.Background())
		assert.ErrorIs(t, err, ErrMintFailed)
		assert.Zero(t, pool.Len())
	})
}

func TestPool_ConcurrentAcquireSharesOneMint(t *testing.T) {
	t.Parallel()

	minter := &countingMinter{release: make(chan struct{})}
	pool, _ := newTestPool(minter, &memStore{})

	const workers = 8
	var wg sync.WaitGroup
	keys := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := pool.Acquire(context.Background())
			keys[i], errs[i] = c.Key, err
		}(i)
	}

	require.Eventually(t, func() bool { return minter.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(minter.release)
	wg.Wait()

	assert.EqualValues(t, 1, minter.calls.Load())
	assert.Equal(t, 1, pool.Len())
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "token-a", keys[i])
	}
}

func TestPool_MintAlwaysAdds(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(&countingMinter{}, &memStore{})
	require.NoError(t, pool.Bootstrap(context.Background()))

	c, err := pool.Mint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-b", c.Key)
	assert.Equal(t, 2, pool.Len())
}

func TestPool_AddRejectsInvalid(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(&countingMinter{}, &memStore{})
	err := pool.Add(Credential{Key: "a,b", Cap: 1, ExpiresAt: epoch})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Zero(t, pool.Len())
}

func TestPool_CopyIsDetached(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(&countingMinter{}, &memStore{})
	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	c.Uses = 999
	assert.Equal(t, 1, pool.Snapshot()[0].Uses)
}

func TestPool_ConcurrentAcquireRespectsCap(t *testing.T) {
	t.Parallel()

	minter := &countingMinter{}
	pool, _ := newTestPool(minter, &memStore{})
	pool.creds = []*Credential{
		{Key: "first", Cap: 3, ExpiresAt: epoch.Add(time.Hour), ResetAt: epoch.Add(time.Minute)},
		{Key: "second", Cap: 3, ExpiresAt: epoch.Add(time.Hour), ResetAt: epoch.Add(time.Minute)},
	}

	const workers = 50
	var wg sync.WaitGroup
	var granted, exhausted atomic.Int32
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := pool.Acquire(context.Background())
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, ErrExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 6, granted.Load())
	assert.EqualValues(t, workers-6, exhausted.Load())
	assert.Zero(t, minter.calls.Load())
	for _, c := range pool.Snapshot() {
		assert.LessOrEqual(t, c.Uses, c.Cap, c.Key)
		assert.Equal(t, 3, c.Uses, c.Key)
	}
}
