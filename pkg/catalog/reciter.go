// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gosimple/slug"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/logger"
	"github.com/tartil-io/tartil/pkg/types"
)

// PhotoUpload carries an optional reciter photo.
type PhotoUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// CreateReciterInput is the registration payload.
type CreateReciterInput struct {
	ArabicName  string
	EnglishName string

	// Number is optional; zero auto-assigns max+1.
	Number int

	Photo *PhotoUpload
}

// validateNumber rejects non-positive or already-taken reciter numbers.
func (s *Service) validateNumber(ctx context.Context, number int) error {
	if number <= 0 {
		return NewInvalidInputError("reciter number must be positive, got %d", number)
	}
	_, err := s.db.GetReciterByNumber(ctx, number)
	if err == nil {
		return NewAlreadyExistsError("number %d is already associated with another reciter", number)
	}
	if !errors.Is(err, db.ErrReciterNotFound) {
		return NewInternalError("check reciter number", err)
	}
	return nil
}

// nextNumber returns max+1 across all reciters, starting at 1.
func (s *Service) nextNumber(ctx context.Context) (int, error) {
	max, err := s.db.MaxReciterNumber(ctx)
	if err != nil {
		return 0, NewInternalError("generate reciter number", err)
	}
	return max + 1, nil
}

// uploadPhoto stores a reciter photo under the image prefix and returns
// its public URL.
func (s *Service) uploadPhoto(ctx context.Context, reciterSlug string, photo *PhotoUpload) (string, error) {
	ext := path.Ext(photo.Filename)
	key := "imgs/" + reciterSlug + ext
	res, err := s.blobs.Put(ctx, key, photo.Reader, photo.ContentType)
	if err != nil {
		return "", NewStorageWriteError("save photo to object store", err)
	}
	return res.PublicURL, nil
}

// CreateReciter registers a new reciter. The slug is derived from the
// English name and must be unique; the number is validated or
// auto-assigned. A missing or failed photo upload falls back to the
// shared placeholder.
func (s *Service) CreateReciter(ctx context.Context, in CreateReciterInput) (*types.Reciter, error) {
	if strings.TrimSpace(in.ArabicName) == "" || strings.TrimSpace(in.EnglishName) == "" {
		return nil, NewInvalidInputError("arabicName and englishName are required")
	}

	number := in.Number
	if number != 0 {
		if err := s.validateNumber(ctx, number); err != nil {
			return nil, err
		}
	} else {
		var err error
		number, err = s.nextNumber(ctx)
		if err != nil {
			return nil, err
		}
	}

	reciterSlug := slug.Make(in.EnglishName)
	if _, err := s.db.GetReciterBySlug(ctx, reciterSlug); err == nil {
		return nil, NewAlreadyExistsError("reciter %q already exists", in.EnglishName)
	} else if !errors.Is(err, db.ErrReciterNotFound) {
		return nil, NewInternalError("check reciter slug", err)
	}

	reciter := &types.Reciter{
		Slug:        reciterSlug,
		Number:      number,
		ArabicName:  strings.TrimSpace(in.ArabicName),
		EnglishName: strings.TrimSpace(in.EnglishName),
		PhotoURL:    s.cfg.PlaceholderPhotoURL,
		Recitations: []types.RecitationAssignment{},
	}

	if in.Photo != nil {
		url, err := s.uploadPhoto(ctx, reciterSlug, in.Photo)
		if err != nil {
			// Keep the placeholder and report the failed upload after
			// the reciter itself is saved.
			logger.Ctx(ctx).Warn().Err(err).Str("reciter", reciterSlug).Msg("photo upload failed, using placeholder")
		} else {
			reciter.PhotoURL = url
		}
	}

	if err := s.db.PutReciter(ctx, reciter); err != nil {
		return nil, NewInternalError("save reciter", err)
	}
	return reciter, nil
}

// UpdateReciterInput carries the mutable reciter fields. Nil pointers
// leave the field unchanged.
type UpdateReciterInput struct {
	ArabicName   *string
	EnglishName  *string
	Number       *int
	IsTopReciter *bool
	Photo        *PhotoUpload
}

// UpdateReciter applies a partial update. Promoting to top reciter
// requires the reciter to hold the canonical recitation.
func (s *Service) UpdateReciter(ctx context.Context, reciterSlug string, in UpdateReciterInput) (*types.Reciter, error) {
	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}

	if in.Photo != nil {
		url, err := s.uploadPhoto(ctx, reciter.Slug, in.Photo)
		if err != nil {
			return nil, err
		}
		reciter.PhotoURL = url
	}

	if in.ArabicName != nil && *in.ArabicName != "" {
		reciter.ArabicName = strings.TrimSpace(*in.ArabicName)
	}
	if in.EnglishName != nil && *in.EnglishName != "" {
		reciter.EnglishName = strings.TrimSpace(*in.EnglishName)
	}
	if in.Number != nil && *in.Number != reciter.Number {
		if err := s.validateNumber(ctx, *in.Number); err != nil {
			return nil, err
		}
		reciter.Number = *in.Number
	}

	if in.IsTopReciter != nil && *in.IsTopReciter && !reciter.IsTopReciter {
		canonical, err := s.db.GetRecitationBySlug(ctx, s.cfg.CanonicalRecitationSlug)
		if err != nil {
			return nil, NewInternalError("resolve canonical recitation", err)
		}
		if !reciter.HasRecitation(canonical.ID) {
			return nil, NewInvalidInputError(
				"reciter must hold the recitation %q to be a top reciter", s.cfg.CanonicalRecitationSlug)
		}
		reciter.IsTopReciter = true
	} else if in.IsTopReciter != nil && !*in.IsTopReciter {
		reciter.IsTopReciter = false
	}

	if err := s.db.PutReciter(ctx, reciter); err != nil {
		return nil, NewInternalError("save reciter", err)
	}
	s.invalidate(ctx, reciter.Slug)
	return reciter, nil
}

// getReciter loads a reciter by slug, mapping store errors to the
// domain taxonomy.
func (s *Service) getReciter(ctx context.Context, reciterSlug string) (*types.Reciter, error) {
	reciter, err := s.db.GetReciterBySlug(ctx, reciterSlug)
	if err != nil {
		if errors.Is(err, db.ErrReciterNotFound) {
			return nil, NewNotFoundError("reciter %q not found", reciterSlug)
		}
		return nil, NewInternalError("load reciter", err)
	}
	return reciter, nil
}

// getRecitation loads a recitation by slug, mapping store errors.
func (s *Service) getRecitation(ctx context.Context, recitationSlug string) (*types.Recitation, error) {
	rec, err := s.db.GetRecitationBySlug(ctx, recitationSlug)
	if err != nil {
		if errors.Is(err, db.ErrRecitationNotFound) {
			return nil, NewNotFoundError("recitation %q not found", recitationSlug)
		}
		return nil, NewInternalError("load recitation", err)
	}
	return rec, nil
}

// GetReciterInfo returns the identity projection of a reciter, without
// the assignment array.
func (s *Service) GetReciterInfo(ctx context.Context, reciterSlug string) (*types.Reciter, error) {
	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}
	reciter.Recitations = nil
	return reciter, nil
}
