// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

func (s *Store) PutRecitation(ctx context.Context, rec *types.Recitation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recitation doc: %w", err)
	}
	_, err = s.sqldb.ExecContext(ctx, `
		INSERT INTO recitations (id, slug, doc) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, doc = EXCLUDED.doc
	`, rec.ID, rec.Slug, doc)
	if err != nil {
		return fmt.Errorf("put recitation %s: %w", rec.Slug, err)
	}
	return nil
}

func scanRecitationDoc(row interface{ Scan(...any) error }) (*types.Recitation, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrRecitationNotFound
		}
		return nil, fmt.Errorf("scan recitation: %w", err)
	}
	var rec types.Recitation
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode recitation doc: %w", err)
	}
	return &rec, nil
}

func (s *Store) GetRecitationBySlug(ctx context.Context, slug string) (*types.Recitation, error) {
	row := s.sqldb.QueryRowContext(ctx, `SELECT doc FROM recitations WHERE slug = $1`, slug)
	return scanRecitationDoc(row)
}

func (s *Store) GetRecitationByID(ctx context.Context, id uuid.UUID) (*types.Recitation, error) {
	row := s.sqldb.QueryRowContext(ctx, `SELECT doc FROM recitations WHERE id = $1`, id)
	return scanRecitationDoc(row)
}

func (s *Store) ListRecitations(ctx context.Context) ([]*types.Recitation, error) {
	rows, err := s.sqldb.QueryContext(ctx, `SELECT doc FROM recitations ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list recitations: %w", err)
	}
	defer rows.Close()

	var out []*types.Recitation
	for rows.Next() {
		rec, err := scanRecitationDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) PutChapter(ctx context.Context, ch *types.Chapter) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	doc, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode chapter doc: %w", err)
	}
	_, err = s.sqldb.ExecContext(ctx, `
		INSERT INTO chapters (id, number, doc) VALUES ($1, $2, $3)
		ON CONFLICT (number) DO UPDATE SET doc = EXCLUDED.doc
	`, ch.ID, ch.Number, doc)
	if err != nil {
		return fmt.Errorf("put chapter %d: %w", ch.Number, err)
	}
	return nil
}

func (s *Store) GetChapterByNumber(ctx context.Context, number int) (*types.Chapter, error) {
	var doc []byte
	err := s.sqldb.QueryRowContext(ctx, `SELECT doc FROM chapters WHERE number = $1`, number).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrChapterNotFound
		}
		return nil, fmt.Errorf("get chapter %d: %w", number, err)
	}
	var ch types.Chapter
	if err := json.Unmarshal(doc, &ch); err != nil {
		return nil, fmt.Errorf("decode chapter doc: %w", err)
	}
	return &ch, nil
}

func (s *Store) ListChapters(ctx context.Context) ([]*types.Chapter, error) {
	rows, err := s.sqldb.QueryContext(ctx, `SELECT doc FROM chapters ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []*types.Chapter
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		var ch types.Chapter
		if err := json.Unmarshal(doc, &ch); err != nil {
			return nil, fmt.Errorf("decode chapter doc: %w", err)
		}
		out = append(out, &ch)
	}
	return out, rows.Err()
}
