// file: internal/server/validators.go
// version: 2.0.0
// guid: 9b0c1d2e-3f4a-5b6c-7d8e-9f0a1b2c3d4e

package server

import (
	"fmt"
	"strings"

	"github.com/jdfalk/hardcover-provider/internal/metadata"
)

// MinQueryLength is the shortest search text accepted.
const MinQueryLength = 3

// ValidationError represents a validation error with code
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateLanguage accepts an empty value, a content type, or a two-letter language code.
func ValidateLanguage(lang string) error {
	if lang == "" || lang == metadata.TypeBook || lang == metadata.TypeAudiobook {
		return nil
	}
	if len(lang) != 2 || !isLetters(lang) {
		return ValidationError{
			Field:   "lang",
			Message: "must be a 2-letter language code or one of book, abook",
			Code:    "INVALID_LANGUAGE",
		}
	}
	return nil
}

// ValidateContentType accepts an empty value, book or abook.
func ValidateContentType(contentType string) error {
	switch contentType {
	case "", metadata.TypeBook, metadata.TypeAudiobook:
		return nil
	}
	return ValidationError{
		Field:   "type",
		Message: "must be one of book, abook",
		Code:    "INVALID_CONTENT_TYPE",
	}
}

// ValidateSearchText requires at least MinQueryLength characters.
func ValidateSearchText(query string) error {
	if len([]rune(strings.TrimSpace(query))) < MinQueryLength {
		return ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("must be at least %d characters long", MinQueryLength),
			Code:    "QUERY_TOO_SHORT",
		}
	}
	return nil
}

// ValidateSearch checks every part of a search request, language first.
func ValidateSearch(q metadata.Query) error {
	if err := ValidateLanguage(q.Lang); err != nil {
		return err
	}
	if err := ValidateContentType(q.Type); err != nil {
		return err
	}
	return ValidateSearchText(q.Text)
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
