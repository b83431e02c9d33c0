// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package blob defines the object store capability consumed by the
// catalog engine, with S3-compatible and in-memory implementations.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a key has no object behind it.
var ErrNotFound = errors.New("object not found")

// PutResult carries the addresses of a stored object.
type PutResult struct {
	// PublicURL serves the object inline.
	PublicURL string
	// DownloadURL serves the object as an attachment.
	DownloadURL string
}

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the object store capability. Implementations must support
// streaming reads; Get returns a reader the caller owns and closes.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*PutResult, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
