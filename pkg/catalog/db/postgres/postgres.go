// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package postgres provides a PostgreSQL implementation of db.Store.
// Catalog documents are stored whole as JSONB, with the unique identity
// fields (slug, number) lifted into columns so the database enforces
// them. Filters compile to SQL over the JSONB document, so count and
// list always evaluate the same predicate.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/tartil-io/tartil/pkg/catalog/db"
)

// Store implements db.Store backed by PostgreSQL.
type Store struct {
	sqldb  *sql.DB
	config db.Config
}

// New opens a connection pool and returns a PostgreSQL-backed store.
func New(cfg db.Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN required")
	}

	sqldb, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}

	return &Store{sqldb: sqldb, config: cfg}, nil
}

// Migrate creates the catalog tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reciters (
			id UUID PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			number BIGINT UNIQUE NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS recitations (
			id UUID PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chapters (
			id UUID PRIMARY KEY,
			number INT UNIQUE NOT NULL,
			doc JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reciters_arabic_name ON reciters ((doc->>'arabicName'))`,
		`CREATE INDEX IF NOT EXISTS idx_reciters_recitations ON reciters USING GIN ((doc->'recitations'))`,
	}

	for _, stmt := range statements {
		if _, err := s.sqldb.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB, used by health checks.
func (s *Store) DB() *sql.DB {
	return s.sqldb
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.sqldb.Close()
}
