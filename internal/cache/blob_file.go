// file: internal/cache/blob_file.go
// version: 1.1.0
// guid: 2b4d6f8a-0c1e-4a3b-9d5f-7e9a1b3c5d7f

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdfalk/hardcover-provider/internal/clock"
)

const blobExtension = ".json"

// FileBlobStore keeps one file per key in a directory. File modification times
// are stamped from the store's clock.
type FileBlobStore struct {
	dir   string
	clock clock.Clock
}

// NewFileBlobStore creates dir if needed and returns a store rooted there.
func NewFileBlobStore(dir string, clk clock.Clock) (*FileBlobStore, error) {
	if clk == nil {
		clk = clock.Real{}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileBlobStore{dir: dir, clock: clk}, nil
}

func (s *FileBlobStore) path(key string) string {
	return filepath.Join(s.dir, key+blobExtension)
}

func (s *FileBlobStore) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

// Put writes through a temp file and rename so readers never see a partial blob.
func (s *FileBlobStore) Put(key string, data []byte) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	now := s.clock.Now()
	if err := os.Chtimes(tmpName, now, now); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileBlobStore) Delete(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrBlobNotFound
	}
	return err
}

func (s *FileBlobStore) List() ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	infos := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, blobExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		infos = append(infos, BlobInfo{
			Key:     strings.TrimSuffix(name, blobExtension),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return infos, nil
}

func (s *FileBlobStore) Close() error { return nil }
