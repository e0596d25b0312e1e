// file: internal/cache/hot.go
// version: 1.0.0
// guid: 7c2d5e8f-1a3b-4c6d-9e0f-2a4b6c8d0e1f

package cache

import (
	"container/list"
	"sync"

	"github.com/jdfalk/hardcover-provider/internal/metrics"
)

// DefaultMemoryLimit bounds the memory tier.
const DefaultMemoryLimit int64 = 10 * 1024 * 1024

// Demoter receives entries evicted from the memory tier.
type Demoter interface {
	Put(key string, data []byte)
}

type hotEntry struct {
	key  string
	data []byte
}

// HotStore is a size-bounded LRU held in memory. It never drops an entry outright:
// overflow hands the least recently used entry to the demoter.
type HotStore struct {
	mu      sync.Mutex
	limit   int64
	size    int64
	order   *list.List // front is most recently used
	items   map[string]*list.Element
	demoter Demoter
}

// NewHotStore creates a memory tier bounded to limit bytes.
func NewHotStore(limit int64, demoter Demoter) *HotStore {
	if limit < 0 {
		limit = 0
	}
	return &HotStore{
		limit:   limit,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		demoter: demoter,
	}
}

// Get returns the payload for key and marks it most recently used.
// The returned slice must not be modified.
func (h *HotStore) Get(key string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	el, ok := h.items[key]
	if !ok {
		return nil, false
	}
	h.order.MoveToFront(el)
	return el.Value.(*hotEntry).data, true
}

// Put inserts or replaces key, marks it most recently used and enforces the size limit.
func (h *HotStore) Put(key string, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)

	h.mu.Lock()
	if el, ok := h.items[key]; ok {
		e := el.Value.(*hotEntry)
		h.size += int64(len(buf)) - int64(len(e.data))
		e.data = buf
		h.order.MoveToFront(el)
	} else {
		h.items[key] = h.order.PushFront(&hotEntry{key: key, data: buf})
		h.size += int64(len(buf))
	}
	evicted := h.enforceLimit()
	size, entries := h.size, len(h.items)
	h.mu.Unlock()

	metrics.SetHotBytes(size)
	metrics.SetHotEntries(entries)

	// Demotion does I/O against the cold tier, so it runs without the hot lock held.
	for _, e := range evicted {
		metrics.IncCacheDemotion()
		if h.demoter != nil {
			h.demoter.Put(e.key, e.data)
		}
	}
}

// enforceLimit pops least recently used entries until the store fits. Caller holds h.mu.
func (h *HotStore) enforceLimit() []*hotEntry {
	var evicted []*hotEntry
	for h.size > h.limit && h.order.Len() > 0 {
		el := h.order.Back()
		e := el.Value.(*hotEntry)
		h.order.Remove(el)
		delete(h.items, e.key)
		h.size -= int64(len(e.data))
		evicted = append(evicted, e)
	}
	return evicted
}

// Len reports the number of resident entries.
func (h *HotStore) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Size reports the resident payload bytes.
func (h *HotStore) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Keys lists resident keys, most recently used first.
func (h *HotStore) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.items))
	for el := h.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*hotEntry).key)
	}
	return keys
}
