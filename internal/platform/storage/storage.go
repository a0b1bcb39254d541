// Package storage provides content-addressable byte storage for generated
// case documents. Keys are caller-chosen, path-like strings; the SHA-256
// digest returned by Put is for integrity and audit, not for addressing.
// Drivers are swappable behind the Driver interface; a durable object-store
// driver is a planned alternative to the local filesystem one.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidKey is returned for empty keys or keys escaping the root.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Stored describes a successfully persisted object.
type Stored struct {
	Key    string `json:"key"`
	SHA256 string `json:"sha256"`
}

// Driver is the storage capability contract. No caller may depend on
// driver-specific behavior beyond it.
type Driver interface {
	Put(ctx context.Context, key string, data []byte) (Stored, error)
	Get(ctx context.Context, key string) ([]byte, error)
}
