// file: internal/metadata/source.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6

package metadata

import "context"

// Source is a metadata provider that authenticates each call with a caller-supplied token.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query, token string) ([]BookMetadata, error)
}
