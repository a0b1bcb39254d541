package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalDriver stores objects as files under a root directory, mirroring the
// key's path components.
type LocalDriver struct {
	root string
}

func NewLocalDriver(root string) *LocalDriver {
	return &LocalDriver{root: root}
}

// resolve maps a key to a filesystem path under the root, rejecting keys
// that would escape it.
func (d *LocalDriver) resolve(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", ErrInvalidKey
	}
	return filepath.Join(d.root, clean), nil
}

func (d *LocalDriver) Put(_ context.Context, key string, data []byte) (Stored, error) {
	path, err := d.resolve(key)
	if err != nil {
		return Stored{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Stored{}, fmt.Errorf("create storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write object %s: %w", key, err)
	}

	sum := sha256.Sum256(data)
	return Stored{Key: key, SHA256: hex.EncodeToString(sum[:])}, nil
}

func (d *LocalDriver) Get(_ context.Context, key string) ([]byte, error) {
	path, err := d.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}
