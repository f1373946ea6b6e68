// Package settings is the key/value store for runtime configuration and
// OAuth credentials. Values are JSON documents.
package settings

import (
	"context"
	"encoding/json"
)

// Store persists JSON values by key. Get returns a nil value and nil error
// when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
}

// Taker is implemented by stores that can read and delete a key atomically.
type Taker interface {
	Take(ctx context.Context, key string) (json.RawMessage, error)
}
