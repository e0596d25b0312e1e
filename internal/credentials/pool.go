// file: internal/credentials/pool.go
// version: 1.1.0
// guid: 8e1a4c7f-0b3d-4a9e-8c2f-6b8d0f2a4c7e

package credentials

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
	"github.com/jdfalk/hardcover-provider/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Options tunes a Pool. Zero values fall back to the package defaults.
type Options struct {
	Cap         int
	Validity    time.Duration
	ResetWindow time.Duration
	MintTimeout time.Duration
	Clock       clock.Clock
}

func (o Options) withDefaults() Options {
	if o.Cap < 1 {
		o.Cap = DefaultCap
	}
	if o.Validity <= 0 {
		o.Validity = DefaultValidity
	}
	if o.ResetWindow <= 0 {
		o.ResetWindow = DefaultResetWindow
	}
	if o.MintTimeout <= 0 {
		o.MintTimeout = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	return o
}

// Pool rotates upstream credentials. Selection walks the pool in insertion order and
// hands out the first credential whose quota window has rolled over or still has room.
type Pool struct {
	mu     sync.Mutex
	creds  []*Credential
	minter Minter
	store  Store
	opts   Options
	mints  singleflight.Group
}

// NewPool creates an empty pool. Call Bootstrap before serving traffic.
func NewPool(minter Minter, store Store, opts Options) *Pool {
	return &Pool{
		minter: minter,
		store:  store,
		opts:   opts.withDefaults(),
	}
}

// Bootstrap loads persisted credentials and mints one if none are usable.
// Loaded credentials start with a fresh quota window.
func (p *Pool) Bootstrap(ctx context.Context) error {
	loaded, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	now := p.opts.Clock.Now()
	p.mu.Lock()
	p.creds = p.creds[:0]
	for _, c := range loaded {
		cred := Credential{Key: c.Key, Cap: c.Cap, ExpiresAt: c.ExpiresAt}
		p.creds = append(p.creds, &cred)
	}
	p.pruneExpired(now)
	live := len(p.creds)
	p.mu.Unlock()

	metrics.SetCredentialsLive(live)
	log.Printf("[INFO] Loaded %d usable credentials (%d on disk)", live, len(loaded))
	if live > 0 {
		return nil
	}

	log.Printf("[WARN] No usable credentials found. Minting a new one.")
	return p.Replenish(ctx)
}

// Acquire returns a credential with quota left, minting one first if the pool is empty.
// ErrExhausted means nothing is usable right now; it is final for the calling request.
func (p *Pool) Acquire(ctx context.Context) (Credential, error) {
	cred, ok, size := p.take()
	if !ok && size == 0 {
		if err := p.Replenish(ctx); err != nil {
			log.Printf("[WARN] Credential pool empty and replenish failed: %v", err)
		}
		cred, ok, _ = p.take()
	}
	if !ok {
		metrics.IncCredentialAcquire("exhausted")
		return Credential{}, ErrExhausted
	}
	metrics.IncCredentialAcquire("ok")
	return cred, nil
}

// take selects and charges a credential. It also reports the pool size after pruning.
func (p *Pool) take() (Credential, bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.opts.Clock.Now()
	p.pruneExpired(now)
	for _, c := range p.creds {
		if !now.Before(c.ResetAt) {
			c.Uses = 1
			c.ResetAt = now.Add(p.opts.ResetWindow)
			return *c, true, len(p.creds)
		}
		if c.Uses < c.Cap {
			c.Uses++
			return *c, true, len(p.creds)
		}
	}
	return Credential{}, false, len(p.creds)
}

// pruneExpired drops credentials past their expiry. Caller holds p.mu.
func (p *Pool) pruneExpired(now time.Time) {
	kept := p.creds[:0]
	for _, c := range p.creds {
		if !c.Expired(now) {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(p.creds); i++ {
		p.creds[i] = nil
	}
	if dropped := len(p.creds) - len(kept); dropped > 0 {
		log.Printf("[INFO] Dropped %d expired credentials", dropped)
	}
	p.creds = kept
}

// Replenish mints a credential when the pool is empty after pruning. Concurrent callers
// share one mint. A pool holding only capped credentials is left alone.
func (p *Pool) Replenish(ctx context.Context) error {
	_, err, _ := p.mints.Do("mint", func() (any, error) {
		p.mu.Lock()
		p.pruneExpired(p.opts.Clock.Now())
		size := len(p.creds)
		p.mu.Unlock()
		if size > 0 {
			return nil, nil
		}
		return nil, p.mint(ctx)
	})
	return err
}

// Mint unconditionally mints and adds one credential.
func (p *Pool) Mint(ctx context.Context) (Credential, error) {
	var cred Credential
	err := p.mintInto(ctx, &cred)
	return cred, err
}

func (p *Pool) mint(ctx context.Context) error {
	return p.mintInto(ctx, nil)
}

func (p *Pool) mintInto(ctx context.Context, out *Credential) error {
	// The shared mint must not die with whichever request happened to start it.
	mintCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.MintTimeout)
	defer cancel()

	start := time.Now()
	key, err := p.minter.Mint(mintCtx)
	metrics.ObserveUpstream("mint", time.Since(start))
	if err != nil {
		metrics.IncCredentialMint("failed")
		metrics.IncUpstreamError("mint")
		log.Printf("[ERROR] Failed to mint credential: %v", err)
		return fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	metrics.IncCredentialMint("ok")

	now := p.opts.Clock.Now()
	cred := Credential{
		Key:       key,
		Cap:       p.opts.Cap,
		ExpiresAt: now.Add(p.opts.Validity),
		ResetAt:   now.Add(p.opts.ResetWindow),
	}
	if err := p.Add(cred); err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			metrics.IncCredentialMint("invalid")
			return fmt.Errorf("%w: %v", ErrMintFailed, err)
		}
		// Persist failure: the credential is still live in memory.
		log.Printf("[WARN] Minted credential %s is not persisted: %v", cred.Masked(), err)
	}
	log.Printf("[INFO] Minted credential %s (expires %s)", cred.Masked(), cred.ExpiresAt.Format(time.RFC3339))
	if out != nil {
		*out = cred
	}
	return nil
}

// Add appends a credential and persists the pool.
func (p *Pool) Add(c Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cred := c
	p.creds = append(p.creds, &cred)
	metrics.SetCredentialsLive(len(p.creds))

	// Saved under the lock so concurrent additions cannot persist out of order.
	if err := p.store.Save(p.snapshotLocked()); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Snapshot returns copies of the credentials currently in the pool.
func (p *Pool) Snapshot() []Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pool) snapshotLocked() []Credential {
	out := make([]Credential, 0, len(p.creds))
	for _, c := range p.creds {
		out = append(out, *c)
	}
	return out
}

// Len reports the number of credentials held, expired ones included until the next prune.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}
