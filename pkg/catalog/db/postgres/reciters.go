// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

func scanReciterDoc(row interface{ Scan(...any) error }) (*types.Reciter, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrReciterNotFound
		}
		return nil, fmt.Errorf("scan reciter: %w", err)
	}
	var r types.Reciter
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode reciter doc: %w", err)
	}
	return &r, nil
}

func (s *Store) PutReciter(ctx context.Context, r *types.Reciter) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reciter doc: %w", err)
	}

	_, err = s.sqldb.ExecContext(ctx, `
		INSERT INTO reciters (id, slug, number, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET slug = EXCLUDED.slug,
		    number = EXCLUDED.number,
		    doc = EXCLUDED.doc,
		    updated_at = EXCLUDED.updated_at
	`, r.ID, r.Slug, r.Number, doc, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put reciter %s: %w", r.Slug, err)
	}
	return nil
}

func (s *Store) GetReciterBySlug(ctx context.Context, slug string) (*types.Reciter, error) {
	row := s.sqldb.QueryRowContext(ctx, `SELECT doc FROM reciters WHERE slug = $1`, slug)
	return scanReciterDoc(row)
}

func (s *Store) GetReciterByNumber(ctx context.Context, number int) (*types.Reciter, error) {
	row := s.sqldb.QueryRowContext(ctx, `SELECT doc FROM reciters WHERE number = $1`, number)
	return scanReciterDoc(row)
}

func (s *Store) DeleteReciter(ctx context.Context, id uuid.UUID) error {
	res, err := s.sqldb.ExecContext(ctx, `DELETE FROM reciters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reciter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return db.ErrReciterNotFound
	}
	return nil
}

func (s *Store) FindReciters(ctx context.Context, f *db.Filter, opts db.ListOptions) ([]*types.Reciter, error) {
	projection := "r.doc"
	if !opts.IncludeRecitations {
		projection = "r.doc - 'recitations'"
	}

	where, args := whereClause(f)
	q := fmt.Sprintf("SELECT %s FROM reciters r", projection)
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY " + orderClause(opts.Sort)
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.sqldb.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find reciters: %w", err)
	}
	defer rows.Close()

	var out []*types.Reciter
	for rows.Next() {
		r, err := scanReciterDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CountReciters(ctx context.Context, f *db.Filter) (int, error) {
	where, args := whereClause(f)
	q := "SELECT COUNT(*) FROM reciters r"
	if where != "" {
		q += " WHERE " + where
	}

	var count int
	if err := s.sqldb.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reciters: %w", err)
	}
	return count, nil
}

func (s *Store) MaxReciterNumber(ctx context.Context) (int, error) {
	var max int
	err := s.sqldb.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) FROM reciters`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max reciter number: %w", err)
	}
	return max, nil
}

func (s *Store) IterateReciters(ctx context.Context, fn func(*types.Reciter) error) error {
	rows, err := s.sqldb.QueryContext(ctx, `SELECT doc FROM reciters ORDER BY number`)
	if err != nil {
		return fmt.Errorf("iterate reciters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanReciterDoc(rows)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) RecitersWithMissingArchives(ctx context.Context) ([]*types.Reciter, error) {
	rows, err := s.sqldb.QueryContext(ctx, `
		SELECT r.doc - 'recitations'
		FROM reciters r
		WHERE jsonb_array_length(coalesce(r.doc->'recitations', '[]'::jsonb)) > 0
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(r.doc->'recitations') a
			WHERE coalesce(a->>'archiveUrl', '') = ''
		  )
		ORDER BY r.doc->>'arabicName'
	`)
	if err != nil {
		return nil, fmt.Errorf("reciters with missing archives: %w", err)
	}
	defer rows.Close()

	var out []*types.Reciter
	for rows.Next() {
		r, err := scanReciterDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MissingArchivesForReciter(ctx context.Context, slug string) ([]db.MissingArchive, error) {
	var exists bool
	err := s.sqldb.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reciters WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check reciter: %w", err)
	}
	if !exists {
		return nil, db.ErrReciterNotFound
	}

	rows, err := s.sqldb.QueryContext(ctx, `
		SELECT c.id, c.slug, c.doc->>'arabicName', c.doc->>'englishName'
		FROM reciters r
		CROSS JOIN LATERAL jsonb_array_elements(coalesce(r.doc->'recitations', '[]'::jsonb)) a
		JOIN recitations c ON c.id = (a->>'recitationId')::uuid
		WHERE r.slug = $1 AND coalesce(a->>'archiveUrl', '') = ''
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("missing archives for %s: %w", slug, err)
	}
	defer rows.Close()

	var out []db.MissingArchive
	for rows.Next() {
		var m db.MissingArchive
		if err := rows.Scan(&m.RecitationID, &m.Slug, &m.ArabicName, &m.EnglishName); err != nil {
			return nil, fmt.Errorf("scan missing archive: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
