// file: internal/metadata/metadata.go
// version: 2.0.0
// guid: 9d0e1f2a-3b4c-5d6e-7f8a-9b0c1d2e3f4a

package metadata

import "errors"

var (
	// ErrNoResults means the provider found no book matching the query.
	ErrNoResults = errors.New("no books found")
	// ErrUpstream wraps any failed or unparseable provider call.
	ErrUpstream = errors.New("upstream provider error")
)

// SeriesMetadata places a book inside a series.
type SeriesMetadata struct {
	Series   string `json:"series"`
	Sequence string `json:"sequence,omitempty"`
}

// BookMetadata is one match in the custom metadata provider format.
type BookMetadata struct {
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle,omitempty"`
	Author        string           `json:"author,omitempty"`
	Narrator      string           `json:"narrator,omitempty"`
	Publisher     string           `json:"publisher,omitempty"`
	PublishedYear string           `json:"publishedYear,omitempty"`
	Description   string           `json:"description,omitempty"`
	Cover         string           `json:"cover,omitempty"`
	ISBN          string           `json:"isbn,omitempty"`
	ASIN          string           `json:"asin,omitempty"`
	Genres        []string         `json:"genres,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Series        []SeriesMetadata `json:"series,omitempty"`
	Language      string           `json:"language,omitempty"`
	Duration      int              `json:"duration,omitempty"` // minutes
}

// SearchResponse is the body returned by every search route.
type SearchResponse struct {
	Matches []BookMetadata `json:"matches"`
}

// NewSearchResponse wraps matches, never producing a null list.
func NewSearchResponse(matches []BookMetadata) SearchResponse {
	if matches == nil {
		matches = []BookMetadata{}
	}
	return SearchResponse{Matches: matches}
}
