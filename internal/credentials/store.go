// file: internal/credentials/store.go
// version: 1.0.0
// guid: 5d8b1e3f-7a2c-4f6e-b9d1-3a5c7e9b1d3f

package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store persists the durable part of each credential: key, cap and expiry.
type Store interface {
	Load() ([]Credential, error)
	Save(creds []Credential) error
}

// FileStore keeps credentials as newline-delimited `key,uses,expires,cap` records.
// uses is always written as 0 and ignored on load.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads all well-formed records. A missing file is an empty pool.
func (s *FileStore) Load() ([]Credential, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer f.Close()

	var creds []Credential
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		cred, err := parseRecord(text)
		if err != nil {
			log.Printf("[WARN] Skipping credential record on line %d of %s: %v", line, s.path, err)
			continue
		}
		creds = append(creds, cred)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	return creds, nil
}

func parseRecord(text string) (Credential, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 4 {
		return Credential{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	expires, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return Credential{}, fmt.Errorf("invalid expiry: %w", err)
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return Credential{}, fmt.Errorf("invalid cap: %w", err)
	}
	cred := Credential{
		Key:       strings.TrimSpace(parts[0]),
		Cap:       capacity,
		ExpiresAt: time.Unix(expires, 0),
	}
	return cred, cred.Validate()
}

// Save rewrites the whole file atomically.
func (s *FileStore) Save(creds []Credential) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, c := range creds {
		fmt.Fprintf(w, "%s,0,%d,%d\n", c.Key, c.ExpiresAt.Unix(), c.Cap)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
