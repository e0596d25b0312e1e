// file: internal/cache/cold.go
// version: 1.0.0
// guid: 8f0a2c4e-6a7b-4c9d-b1e3-5f7a9c1e3b5d

package cache

import (
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/jdfalk/hardcover-provider/internal/metrics"
)

// DefaultFileLimit bounds the durable tier.
const DefaultFileLimit int64 = 1024 * 1024 * 1024

// Promoter receives cold tier hits so later reads are served from memory.
type Promoter interface {
	Put(key string, data []byte)
}

// ColdStore is the size-bounded durable tier. Storage failures never escape it:
// a failed read is a miss and a failed write is dropped with a warning.
type ColdStore struct {
	mu       sync.Mutex // serializes write + limit enforcement
	blobs    BlobStore
	limit    int64
	promoter Promoter
}

// NewColdStore wraps blobs with a limit in bytes.
func NewColdStore(blobs BlobStore, limit int64) *ColdStore {
	if limit < 0 {
		limit = 0
	}
	return &ColdStore{blobs: blobs, limit: limit}
}

// Get reads key from durable storage. A hit is promoted; the stored copy stays in place.
func (c *ColdStore) Get(key string) ([]byte, bool) {
	data, err := c.blobs.Get(key)
	if errors.Is(err, ErrBlobNotFound) {
		return nil, false
	}
	if err != nil {
		log.Printf("[WARN] Cold cache read failed for %s: %v", key, err)
		metrics.IncColdStoreError("get")
		return nil, false
	}
	if c.promoter != nil {
		c.promoter.Put(key, data)
	}
	return data, true
}

// Put writes key and enforces the size limit.
func (c *ColdStore) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.blobs.Put(key, data); err != nil {
		log.Printf("[WARN] Cold cache write failed for %s, dropping entry: %v", key, err)
		metrics.IncColdStoreError("put")
		return
	}
	c.enforceLimit()
}

// enforceLimit deletes oldest-modified blobs until the total fits. Caller holds c.mu.
func (c *ColdStore) enforceLimit() {
	infos, err := c.blobs.List()
	if err != nil {
		log.Printf("[WARN] Cold cache listing failed: %v", err)
		metrics.IncColdStoreError("list")
		return
	}

	var total int64
	for _, info := range infos {
		total += info.Size
	}
	metrics.SetColdBytes(total)
	if total <= c.limit {
		return
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].ModTime.Before(infos[j].ModTime)
		}
		return infos[i].Key < infos[j].Key
	})

	for len(infos) > 0 && total > c.limit {
		oldest := infos[0]
		infos = infos[1:]
		if err := c.blobs.Delete(oldest.Key); err != nil && !errors.Is(err, ErrBlobNotFound) {
			log.Printf("[WARN] Cold cache eviction of %s failed: %v", oldest.Key, err)
			metrics.IncColdStoreError("delete")
			continue
		}
		total -= oldest.Size
		metrics.IncCacheEviction()
	}
	metrics.SetColdBytes(total)
}

// Usage lists the tier and reports entry count and total bytes.
func (c *ColdStore) Usage() (int, int64, error) {
	infos, err := c.blobs.List()
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, info := range infos {
		total += info.Size
	}
	return len(infos), total, nil
}
