// file: internal/metadata/query.go
// version: 1.0.0
// guid: 4b6d8f0a-2c4e-4a6b-8d0f-1a3c5e7b9d2f

package metadata

import "strings"

// Content types accepted in the route. An empty type means any format.
const (
	TypeBook      = "book"
	TypeAudiobook = "abook"
)

// Hardcover reading_format ids.
const (
	formatRead     = 1
	formatListened = 2
	formatBoth     = 3
	formatEbook    = 4
)

// Query is one normalized search request.
type Query struct {
	Text   string
	Author string
	// Lang is a two-letter language code, a content type, or empty.
	Lang string
	Type string
}

// LanguageCode returns the edition language filter, if Lang names one.
func (q Query) LanguageCode() string {
	if len(q.Lang) == 2 {
		return strings.ToLower(q.Lang)
	}
	return ""
}

// ContentType resolves the requested format. The language segment may carry the type on the
// two-segment route.
func (q Query) ContentType() string {
	switch {
	case q.Lang == TypeBook || q.Type == TypeBook:
		return TypeBook
	case q.Lang == TypeAudiobook || q.Type == TypeAudiobook:
		return TypeAudiobook
	}
	return ""
}

// Formats returns the reading_format ids for the content type.
func (q Query) Formats() []int {
	switch q.ContentType() {
	case TypeBook:
		return []int{formatRead, formatEbook}
	case TypeAudiobook:
		return []int{formatListened, formatBoth}
	}
	return []int{formatRead, formatListened, formatBoth, formatEbook}
}
