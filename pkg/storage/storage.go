// Package storage publishes run outputs to a local directory or Azure Blob
// Storage behind one interface.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JaimeStill/landflux/pkg/lifecycle"
)

// System manages object storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that prepares the root directory or container.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to the object at the given key with the specified content type.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the object at the given key. The caller must close the reader.
	// Returns ErrNotFound if the object does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at the given key. Returns ErrNotFound if the object does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
	// Location returns a human-readable location for key, for logs.
	Location(key string) string
}

// New creates the storage system selected by cfg.Provider.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderLocal:
		return newLocal(cfg, logger), nil
	case ProviderAzure:
		return newAzure(cfg, logger)
	}
	return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	if strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}
