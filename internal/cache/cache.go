// file: internal/cache/cache.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

package cache

import (
	"github.com/jdfalk/hardcover-provider/internal/metrics"
)

// TieredCache serves search payloads from a memory LRU backed by a durable tier.
// Fresh results are always written to memory; the durable tier is filled only by demotion.
// Entries never expire and there is no invalidation: size pressure on the durable tier is
// the only way out.
type TieredCache struct {
	hot  *HotStore
	cold *ColdStore
}

// Stats summarizes both tiers.
type Stats struct {
	HotEntries  int   `json:"hot_entries"`
	HotBytes    int64 `json:"hot_bytes"`
	ColdEntries int   `json:"cold_entries"`
	ColdBytes   int64 `json:"cold_bytes"`
}

// New builds a tiered cache with the given limits over blobs.
func New(memoryLimit int64, blobs BlobStore, fileLimit int64) *TieredCache {
	cold := NewColdStore(blobs, fileLimit)
	hot := NewHotStore(memoryLimit, cold)
	cold.promoter = hot
	return &TieredCache{hot: hot, cold: cold}
}

// Lookup checks memory, then the durable tier (promoting on hit).
func (t *TieredCache) Lookup(key string) ([]byte, bool) {
	if data, ok := t.hot.Get(key); ok {
		metrics.IncCacheLookup("hot", "hit")
		return data, true
	}
	if data, ok := t.cold.Get(key); ok {
		metrics.IncCacheLookup("cold", "hit")
		return data, true
	}
	metrics.IncCacheLookup("all", "miss")
	return nil, false
}

// Store writes a freshly computed payload into the memory tier.
func (t *TieredCache) Store(key string, data []byte) {
	t.hot.Put(key, data)
}

// Hot exposes the memory tier.
func (t *TieredCache) Hot() *HotStore { return t.hot }

// Cold exposes the durable tier.
func (t *TieredCache) Cold() *ColdStore { return t.cold }

// Stats reports entry counts and sizes of both tiers.
func (t *TieredCache) Stats() (Stats, error) {
	entries, bytes, err := t.cold.Usage()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		HotEntries:  t.hot.Len(),
		HotBytes:    t.hot.Size(),
		ColdEntries: entries,
		ColdBytes:   bytes,
	}, nil
}

// Close releases the durable backend.
func (t *TieredCache) Close() error {
	return t.cold.blobs.Close()
}
