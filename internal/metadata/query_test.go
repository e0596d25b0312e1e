// file: internal/metadata/query_test.go
// version: 1.0.0
// guid: 8e0a2c4f-6b8d-4e0a-a2c4-6f8b0d2e4a6c

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Formats(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		formats []int
		lang    string
	}{
		{"any", Query{}, []int{1, 2, 3, 4}, ""},
		{"book type", Query{Lang: "en", Type: TypeBook}, []int{1, 4}, "en"},
		{"abook type", Query{Type: TypeAudiobook}, []int{2, 3}, ""},
		{"book in lang slot", Query{Lang: TypeBook}, []int{1, 4}, ""},
		{"abook in lang slot", Query{Lang: TypeAudiobook}, []int{2, 3}, ""},
		{"upper lang", Query{Lang: "FR"}, []int{1, 2, 3, 4}, "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.formats, tt.q.Formats())
			assert.Equal(t, tt.lang, tt.q.LanguageCode())
		})
	}
}
