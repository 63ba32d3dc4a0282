// Package artifact provides durable, keyed storage for generated dictionary
// artifacts. Semantics intentionally mirror a minimal subset of an object
// store: a flat key space with prefix listing, so a cloud adapter can be
// nearly 1:1 while the filesystem driver stays trivial. Unlike an immutable
// object store, Put overwrites: regenerating a dictionary version replaces
// artifact content under the same key.
package artifact

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete artifact storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory (default)
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Info describes a stored artifact.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ErrNotFound indicates a requested artifact key is missing.
var ErrNotFound = errors.New("artifact not found")

// Store is the interface artifact storage backends implement.
type Store interface {
	// Put stores content at key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	// Get retrieves content and metadata. Returns ErrNotFound if missing.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only. Returns ErrNotFound if missing.
	Head(ctx context.Context, key string) (Info, error)
	// List returns artifacts whose key has the prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver identifies the backend.
	Driver() Driver
}

// ReadAll fetches the full content of an artifact.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	_, rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
