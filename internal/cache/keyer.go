// file: internal/cache/keyer.go
// version: 1.0.0
// guid: 3e9b7d21-8c4a-4f1e-a6d2-5b0c9e8f7a13

package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DeriveKey turns the identifying fields of a search request into a cache key.
//
// Each field is length-prefixed before hashing, so no choice of field contents can make two
// different requests share a key the way delimiter-joined strings can. The result is a
// 64-character lowercase hex string, stable across restarts.
func DeriveKey(query, author, langCode, contentType string) string {
	h := sha256.New()
	var n [8]byte
	for _, field := range [...]string{query, author, langCode, contentType} {
		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
