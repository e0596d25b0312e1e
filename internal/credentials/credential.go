// file: internal/credentials/credential.go
// version: 1.0.0
// guid: 2f6a9c1d-4b8e-4d3a-a7c5-0e2b4d6f8a1c

package credentials

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrExhausted         = errors.New("no usable credential available")
	ErrMintFailed        = errors.New("credential minting failed")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrTokenNotFound     = errors.New("token not found in page")
)

const (
	DefaultCap         = 80
	DefaultValidity    = 28 * 24 * time.Hour
	DefaultResetWindow = 60 * time.Second
)

// Credential is one upstream access token with an expiry and a rolling usage quota.
// Uses and ResetAt are live counters and are never persisted.
type Credential struct {
	Key       string
	Uses      int
	Cap       int
	ExpiresAt time.Time
	ResetAt   time.Time
}

// Validate checks the fields that must hold for a credential to enter the pool.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidCredential)
	}
	if strings.ContainsAny(c.Key, ",\r\n") {
		return fmt.Errorf("%w: key contains a separator", ErrInvalidCredential)
	}
	if c.Cap < 1 {
		return fmt.Errorf("%w: cap must be positive", ErrInvalidCredential)
	}
	if c.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiry is required", ErrInvalidCredential)
	}
	return nil
}

// Expired reports whether the credential is permanently unusable at now.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Masked returns the key with everything but the last four characters hidden.
func (c Credential) Masked() string {
	if len(c.Key) <= 4 {
		return strings.Repeat("*", len(c.Key))
	}
	return strings.Repeat("*", 8) + c.Key[len(c.Key)-4:]
}
