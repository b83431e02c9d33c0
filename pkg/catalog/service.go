// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements the catalog synchronization engine: upload
// orchestration, archive streaming, cascade deletion, catalog querying,
// and the reconciliation sweep between the catalog store and the object
// store.
//
// The engine is request-scoped and stateless. The catalog store is the
// source of truth for references, the object store for bytes; there is
// no transaction spanning the two. Mutations load the whole reciter
// document, rewrite it in memory, and persist it back as a single
// write. Concurrent writers to the same document race last-writer-wins.
package catalog

import (
	"errors"
	"fmt"

	"github.com/tartil-io/tartil/pkg/blob"
	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

// Config holds engine configuration.
type Config struct {
	// CanonicalRecitationSlug resolves the virtual completeness
	// categories and gates top-reciter promotion.
	CanonicalRecitationSlug string

	// PlaceholderPhotoURL is assigned to reciters registered without a
	// photo. The cascade delete never removes the shared placeholder.
	PlaceholderPhotoURL string

	// ArchivePrefix is the object-store prefix consolidated archives
	// are uploaded under.
	ArchivePrefix string
}

// DefaultConfig returns engine defaults.
func DefaultConfig() Config {
	return Config{
		CanonicalRecitationSlug: types.CanonicalRecitationSlug,
		ArchivePrefix:           "archives",
	}
}

// Service is the catalog synchronization engine.
type Service struct {
	db    db.Store
	blobs blob.Store
	cache *ReciterCache // optional, nil disables caching
	cfg   Config
}

// Option configures a Service.
type Option func(*Service)

// WithCache attaches a read cache for reciter detail lookups.
func WithCache(c *ReciterCache) Option {
	return func(s *Service) { s.cache = c }
}

// NewService creates the engine.
func NewService(store db.Store, blobs blob.Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog store required")
	}
	if blobs == nil {
		return nil, errors.New("object store required")
	}
	if cfg.CanonicalRecitationSlug == "" {
		cfg.CanonicalRecitationSlug = types.CanonicalRecitationSlug
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "archives"
	}

	s := &Service{db: store, blobs: blobs, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// audioPrefix is the object-store prefix holding one assignment's audio.
func audioPrefix(reciterSlug, recitationSlug string) string {
	return reciterSlug + "/" + recitationSlug + "/"
}

// archiveKey is the object-store key of an assignment's consolidated
// archive.
func (s *Service) archiveKey(reciterSlug, recitationSlug string) string {
	return fmt.Sprintf("%s/%s/%s.zip", s.cfg.ArchivePrefix, reciterSlug, recitationSlug)
}
