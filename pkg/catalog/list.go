// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/catalog/query"
	"github.com/tartil-io/tartil/pkg/logger"
	"github.com/tartil-io/tartil/pkg/types"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListRecitersInput carries the raw listing parameters as they arrive
// from the transport layer. Parsing and allow-listing happen in the
// query package.
type ListRecitersInput struct {
	Page     int
	PageSize int

	// Sort is a comma-separated field list, "-" prefix for descending.
	Sort string

	// Search matches both display names, case-insensitively.
	Search string

	// Recitation filters by held recitation slug. The virtual slugs
	// select canonical-recitation completeness categories.
	Recitation string

	// TopReciter is tri-state: "true", "false", or anything for no filter.
	TopReciter string
}

// ListRecitersResult is one page of reciters plus pagination totals.
type ListRecitersResult struct {
	Reciters   []*types.Reciter `json:"reciters"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// recitationFilterID resolves the recitation id a slug filters by. The
// virtual completeness slugs resolve to the canonical recitation. A slug
// that resolves to nothing yields uuid.Nil, which composes into no
// fragment at all: an unresolvable filter widens to the full listing
// rather than failing the request.
func (s *Service) recitationFilterID(ctx context.Context, recitationSlug string) (uuid.UUID, error) {
	lookup := recitationSlug
	switch recitationSlug {
	case "":
		return uuid.Nil, nil
	case types.CompletedRecitationsSlug, types.VariousRecitationsSlug:
		lookup = s.cfg.CanonicalRecitationSlug
	}

	rec, err := s.db.GetRecitationBySlug(ctx, lookup)
	if err != nil {
		if errors.Is(err, db.ErrRecitationNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, NewInternalError("resolve recitation filter", err)
	}
	return rec.ID, nil
}

// ListReciters runs the composed catalog query and returns one page.
// Count and page run against the same filter, so the totals always
// describe the filtered set.
func (s *Service) ListReciters(ctx context.Context, in ListRecitersInput) (*ListRecitersResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	recitationID, err := s.recitationFilterID(ctx, in.Recitation)
	if err != nil {
		return nil, err
	}

	filter := query.Compose(
		query.SearchFilter(in.Search),
		query.RecitationFilter(in.Recitation, recitationID),
		query.TopReciterFilter(in.TopReciter),
	)

	total, err := s.db.CountReciters(ctx, filter)
	if err != nil {
		return nil, NewInternalError("count reciters", err)
	}

	reciters, err := s.db.FindReciters(ctx, filter, db.ListOptions{
		Sort:   query.SortSpec(in.Sort),
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, NewInternalError("list reciters", err)
	}

	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}

	return &ListRecitersResult{
		Reciters:   reciters,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

// ChapterAudio is one audio file joined to its chapter record.
type ChapterAudio struct {
	Chapter     *types.Chapter `json:"chapter"`
	URL         string         `json:"url"`
	DownloadURL string         `json:"downloadUrl"`
}

// RecitationDetails is one assignment joined to its recitation record.
type RecitationDetails struct {
	Recitation     *types.Recitation `json:"recitation"`
	AudioFiles     []ChapterAudio    `json:"audioFiles"`
	IsCompleted    bool              `json:"isCompleted"`
	TotalDownloads int64             `json:"totalDownloads"`
	ArchiveURL     string            `json:"archiveUrl,omitempty"`
}

// ReciterDetails is the fully populated reciter view. The embedded
// document's assignment array is shadowed by the joined one.
type ReciterDetails struct {
	*types.Reciter
	Recitations []RecitationDetails `json:"recitations"`
}

// DetailsOptions controls a details lookup.
type DetailsOptions struct {
	// IncreaseViews bumps the viewer counter as part of the read.
	IncreaseViews bool
}

// GetReciterDetails returns a reciter with its assignments joined to
// recitation and chapter records. Verses are dropped from the joined
// chapters. Reads go through the cache unless the viewer counter is
// being bumped, which must see the stored document.
func (s *Service) GetReciterDetails(ctx context.Context, reciterSlug string, opts DetailsOptions) (*ReciterDetails, error) {
	var reciter *types.Reciter
	if s.cache != nil && !opts.IncreaseViews {
		reciter = s.cache.Get(ctx, reciterSlug)
	}

	cached := reciter != nil
	if !cached {
		var err error
		reciter, err = s.getReciter(ctx, reciterSlug)
		if err != nil {
			return nil, err
		}
	}

	if opts.IncreaseViews {
		reciter.TotalViewers++
		if err := s.db.PutReciter(ctx, reciter); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("reciter", reciterSlug).Msg("viewer counter update failed")
		}
		s.invalidate(ctx, reciterSlug)
	} else if s.cache != nil && !cached {
		s.cache.Set(ctx, reciter)
	}

	details, err := s.populate(ctx, reciter)
	if err != nil {
		return nil, err
	}
	return details, nil
}

// populate joins a reciter document to the recitation and chapter
// catalogs.
func (s *Service) populate(ctx context.Context, reciter *types.Reciter) (*ReciterDetails, error) {
	chapters, err := s.db.ListChapters(ctx)
	if err != nil {
		return nil, NewInternalError("load chapter catalog", err)
	}
	byNumber := make(map[int]*types.Chapter, len(chapters))
	for _, ch := range chapters {
		c := *ch
		c.Verses = nil
		byNumber[c.Number] = &c
	}

	details := &ReciterDetails{
		Reciter:     reciter,
		Recitations: make([]RecitationDetails, 0, len(reciter.Recitations)),
	}
	for i := range reciter.Recitations {
		a := &reciter.Recitations[i]

		rec, err := s.db.GetRecitationByID(ctx, a.RecitationID)
		if err != nil {
			if errors.Is(err, db.ErrRecitationNotFound) {
				// A dangling reference; skip it rather than fail the read.
				logger.Ctx(ctx).Warn().
					Str("reciter", reciter.Slug).
					Str("recitation_id", a.RecitationID.String()).
					Msg("assignment references unknown recitation")
				continue
			}
			return nil, NewInternalError("load recitation", err)
		}

		rd := RecitationDetails{
			Recitation:     rec,
			AudioFiles:     make([]ChapterAudio, 0, len(a.AudioFiles)),
			IsCompleted:    a.IsCompleted,
			TotalDownloads: a.TotalDownloads,
			ArchiveURL:     a.ArchiveURL,
		}
		for _, f := range a.AudioFiles {
			rd.AudioFiles = append(rd.AudioFiles, ChapterAudio{
				Chapter:     byNumber[f.ChapterNumber],
				URL:         f.ObjectURL,
				DownloadURL: f.DownloadURL,
			})
		}
		details.Recitations = append(details.Recitations, rd)
	}
	return details, nil
}

// ListRecitations returns the recitation catalog.
func (s *Service) ListRecitations(ctx context.Context) ([]*types.Recitation, error) {
	recs, err := s.db.ListRecitations(ctx)
	if err != nil {
		return nil, NewInternalError("list recitations", err)
	}
	return recs, nil
}

// ListChapters returns the chapter catalog without verses.
func (s *Service) ListChapters(ctx context.Context) ([]*types.Chapter, error) {
	chapters, err := s.db.ListChapters(ctx)
	if err != nil {
		return nil, NewInternalError("list chapters", err)
	}
	out := make([]*types.Chapter, len(chapters))
	for i, ch := range chapters {
		c := *ch
		c.Verses = nil
		out[i] = &c
	}
	return out, nil
}
