// file: internal/cache/blob_pebble.go
// version: 1.0.0
// guid: 4c6e8a0b-2d3f-4b5c-8e7a-9b1d3f5a7c9e

package cache

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/hardcover-provider/internal/clock"
)

// Key prefixes
const (
	prefixBlob      = "blob:"
	prefixBlobUpper = "blob;"
	blobHeaderSize  = 8
)

// PebbleBlobStore keeps cold tier blobs in a PebbleDB keyspace. Each value carries an
// 8-byte big-endian modification time (unix nanos) ahead of the payload.
type PebbleBlobStore struct {
	db    *pebble.DB
	clock clock.Clock
}

// OpenPebbleBlobStore opens or creates a PebbleDB instance at path.
func OpenPebbleBlobStore(path string, clk clock.Clock) (*PebbleBlobStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	log.Printf("[INFO] Cache PebbleDB opened at %s (format version: %s)", path, db.FormatMajorVersion())
	return &PebbleBlobStore{db: db, clock: clk}, nil
}

func (s *PebbleBlobStore) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	val, closer, err := s.db.Get([]byte(prefixBlob + key))
	if err == pebble.ErrNotFound {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if len(val) < blobHeaderSize {
		return nil, fmt.Errorf("corrupt cache blob %s: %d bytes", key, len(val))
	}
	data := make([]byte, len(val)-blobHeaderSize)
	copy(data, val[blobHeaderSize:])
	return data, nil
}

// Put skips fsync; the cold tier is recomputable.
func (s *PebbleBlobStore) Put(key string, data []byte) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	buf := make([]byte, blobHeaderSize+len(data))
	binary.BigEndian.PutUint64(buf, uint64(s.clock.Now().UnixNano()))
	copy(buf[blobHeaderSize:], data)
	return s.db.Set([]byte(prefixBlob+key), buf, pebble.NoSync)
}

func (s *PebbleBlobStore) Delete(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	return s.db.Delete([]byte(prefixBlob+key), pebble.NoSync)
}

func (s *PebbleBlobStore) List() ([]BlobInfo, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixBlob),
		UpperBound: []byte(prefixBlobUpper),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var infos []BlobInfo
	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) < blobHeaderSize {
			continue
		}
		infos = append(infos, BlobInfo{
			Key:     string(iter.Key()[len(prefixBlob):]),
			Size:    int64(len(val) - blobHeaderSize),
			ModTime: time.Unix(0, int64(binary.BigEndian.Uint64(val[:blobHeaderSize]))),
		})
	}
	return infos, iter.Error()
}

func (s *PebbleBlobStore) Close() error {
	return s.db.Close()
}
