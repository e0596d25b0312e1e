// file: internal/cache/blob_sqlite.go
// version: 1.1.0
// guid: 6e8a0c2d-4f5b-4d7e-a09c-1d3f5b7d9e0a

package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBlobStore keeps cold tier blobs in a single SQLite table.
type SQLiteBlobStore struct {
	db    *sql.DB
	clock clock.Clock
}

// OpenSQLiteBlobStore opens or creates the database file at path.
func OpenSQLiteBlobStore(path string, clk clock.Clock) (*SQLiteBlobStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening cache database: %w", err)
	}
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS cache_blobs (
            key TEXT PRIMARY KEY,
            data BLOB NOT NULL,
            size INTEGER NOT NULL,
            modified_at INTEGER NOT NULL
        )
    `)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating cache table: %w", err)
	}
	return &SQLiteBlobStore{db: db, clock: clk}, nil
}

func (s *SQLiteBlobStore) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	var data []byte
	err := s.db.QueryRow("SELECT data FROM cache_blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

func (s *SQLiteBlobStore) Put(key string, data []byte) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	_, err := s.db.Exec(`
        INSERT INTO cache_blobs (key, data, size, modified_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET data = excluded.data, size = excluded.size, modified_at = excluded.modified_at
    `, key, data, len(data), s.clock.Now().UnixNano())
	return err
}

func (s *SQLiteBlobStore) Delete(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	res, err := s.db.Exec("DELETE FROM cache_blobs WHERE key = ?", key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBlobNotFound
	}
	return nil
}

func (s *SQLiteBlobStore) List() ([]BlobInfo, error) {
	rows, err := s.db.Query("SELECT key, size, modified_at FROM cache_blobs ORDER BY modified_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []BlobInfo
	for rows.Next() {
		var info BlobInfo
		var modified int64
		if err := rows.Scan(&info.Key, &info.Size, &modified); err != nil {
			return nil, err
		}
		info.ModTime = time.Unix(0, modified)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteBlobStore) Close() error {
	return s.db.Close()
}
