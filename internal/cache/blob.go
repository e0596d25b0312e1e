// file: internal/cache/blob.go
// version: 1.1.0
// guid: 9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d

package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// BlobInfo describes one stored blob.
type BlobInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// BlobStore is the durable namespace behind the cold tier: one blob per key,
// enumerable with a modification time, deletable by key.
type BlobStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	List() ([]BlobInfo, error)
	Close() error
}

// Supported cold tier backends.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
	BackendSQLite = "sqlite"
)

// OpenBlobStore opens the named backend rooted at path.
func OpenBlobStore(backend, path string, enableSQLite bool, clk clock.Clock) (BlobStore, error) {
	if clk == nil {
		clk = clock.Real{}
	}
	switch backend {
	case BackendFile, "":
		return NewFileBlobStore(path, clk)
	case BackendPebble:
		return OpenPebbleBlobStore(path, clk)
	case BackendSQLite, "sqlite3":
		if !enableSQLite {
			return nil, fmt.Errorf("SQLite3 cache backend is not enabled. Enable it with --enable-sqlite3-i-know-the-risks or set 'enable_sqlite3_i_know_the_risks: true' in your config file")
		}
		return OpenSQLiteBlobStore(filepath.Join(path, "cache.db"), clk)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s (supported: file, pebble, sqlite)", backend)
	}
}

// validKey accepts the characters DeriveKey and filesystem names can share safely.
func validKey(key string) bool {
	if key == "" || len(key) > 200 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
