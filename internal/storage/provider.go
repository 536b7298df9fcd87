// Package storage supplies bytes for opaque media references and
// delivers finished archives.
package storage

import "context"

// Provider resolves opaque storage keys to media bytes and accepts
// finished archives. Implementations must be safe for concurrent
// Resolve calls.
type Provider interface {
	Resolve(ctx context.Context, key string) ([]byte, error)
	WriteArchive(data []byte, filename string) (string, error)
}
