// file: internal/cache/helpers_test.go
// version: 1.0.0
// guid: c3e5a7b9-1d2f-4e6a-8c0b-2d4f6a8c0e2b

package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
)

// memBlobs is an in-memory BlobStore with controllable modification times and failures.
type memBlobs struct {
	mu       sync.Mutex
	clock    *clock.Manual
	data     map[string][]byte
	mod      map[string]time.Time
	gets     map[string]int
	failGet  bool
	failPut  bool
	failList bool
}

func newMemBlobs(clk *clock.Manual) *memBlobs {
	return &memBlobs{
		clock: clk,
		data:  make(map[string][]byte),
		mod:   make(map[string]time.Time),
		gets:  make(map[string]int),
	}
}

var errInjected = errors.New("injected failure")

func (m *memBlobs) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets[key]++
	if m.failGet {
		return nil, errInjected
	}
	d, ok := m.data[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), d...), nil
}

func (m *memBlobs) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errInjected
	}
	m.data[key] = append([]byte(nil), data...)
	m.mod[key] = m.clock.Now()
	m.clock.Advance(time.Second)
	return nil
}

func (m *memBlobs) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return ErrBlobNotFound
	}
	delete(m.data, key)
	delete(m.mod, key)
	return nil
}

func (m *memBlobs) List() ([]BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errInjected
	}
	infos := make([]BlobInfo, 0, len(m.data))
	for k, d := range m.data {
		infos = append(infos, BlobInfo{Key: k, Size: int64(len(d)), ModTime: m.mod[k]})
	}
	return infos, nil
}

func (m *memBlobs) Close() error { return nil }

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memBlobs) getCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[key]
}

// recordingDemoter captures demoted keys in order.
type recordingDemoter struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingDemoter) Put(key string, _ []byte) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func testClock() *clock.Manual {
	return clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
}
