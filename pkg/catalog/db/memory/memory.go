// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory implementation of db.Store for
// testing. Data lives in maps guarded by one RWMutex; documents are
// copied on the way in and out so tests cannot alias store state.
package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

// Store is an in-memory catalog store for testing.
type Store struct {
	mu sync.RWMutex

	reciters    map[uuid.UUID]*types.Reciter
	recitations map[uuid.UUID]*types.Recitation
	chapters    map[int]*types.Chapter
}

// New creates a new in-memory catalog store.
func New() *Store {
	return &Store{
		reciters:    make(map[uuid.UUID]*types.Reciter),
		recitations: make(map[uuid.UUID]*types.Recitation),
		chapters:    make(map[int]*types.Chapter),
	}
}

func copyReciter(r *types.Reciter, includeRecitations bool) *types.Reciter {
	cp := *r
	if !includeRecitations {
		cp.Recitations = nil
		return &cp
	}
	cp.Recitations = make([]types.RecitationAssignment, len(r.Recitations))
	for i, a := range r.Recitations {
		ac := a
		ac.AudioFiles = append([]types.AudioFileEntry(nil), a.AudioFiles...)
		cp.Recitations[i] = ac
	}
	return &cp
}

func (s *Store) PutReciter(ctx context.Context, r *types.Reciter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = time.Now().UTC()

	s.reciters[r.ID] = copyReciter(r, true)
	return nil
}

func (s *Store) GetReciterBySlug(ctx context.Context, slug string) (*types.Reciter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reciters {
		if r.Slug == slug {
			return copyReciter(r, true), nil
		}
	}
	return nil, db.ErrReciterNotFound
}

func (s *Store) GetReciterByNumber(ctx context.Context, number int) (*types.Reciter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reciters {
		if r.Number == number {
			return copyReciter(r, true), nil
		}
	}
	return nil, db.ErrReciterNotFound
}

func (s *Store) DeleteReciter(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reciters[id]; !ok {
		return db.ErrReciterNotFound
	}
	delete(s.reciters, id)
	return nil
}

func matchFilter(r *types.Reciter, f *db.Filter) bool {
	if f == nil {
		return true
	}
	if f.IsTopReciter != nil && r.IsTopReciter != *f.IsTopReciter {
		return false
	}
	if f.Search != nil && !matchSearch(r, f.Search) {
		return false
	}
	if f.Assignment != nil && !matchAssignment(r, f.Assignment) {
		return false
	}
	return true
}

func matchSearch(r *types.Reciter, c *db.SearchCriteria) bool {
	if c.English != "" {
		if re, err := regexp.Compile("(?i)" + c.English); err == nil && re.MatchString(r.EnglishName) {
			return true
		}
	}
	if c.Arabic != "" {
		if re, err := regexp.Compile("(?i)" + c.Arabic); err == nil && re.MatchString(r.ArabicName) {
			return true
		}
	}
	return false
}

func matchAssignment(r *types.Reciter, c *db.AssignmentCriteria) bool {
	a := r.Assignment(c.RecitationID)
	if a == nil {
		return false
	}
	switch c.Completeness {
	case db.CompletenessComplete:
		return len(a.AudioFiles) == types.TotalChapters
	case db.CompletenessVarious:
		return len(a.AudioFiles) != types.TotalChapters
	default:
		return true
	}
}

func sortValue(r *types.Reciter, field string) (string, int64, bool) {
	switch field {
	case "arabicName":
		return r.ArabicName, 0, true
	case "totalViewers":
		return "", r.TotalViewers, false
	case "number":
		return "", int64(r.Number), false
	case "totalRecitations":
		return "", int64(r.TotalRecitations), false
	default:
		return "", 0, false
	}
}

func sortReciters(rs []*types.Reciter, fields []db.SortField) {
	if len(fields) == 0 {
		// Stable default so pagination is deterministic.
		sort.Slice(rs, func(i, j int) bool { return rs[i].Number < rs[j].Number })
		return
	}
	sort.SliceStable(rs, func(i, j int) bool {
		for _, f := range fields {
			si, ni, isStr := sortValue(rs[i], f.Field)
			sj, nj, _ := sortValue(rs[j], f.Field)
			var cmp int
			if isStr {
				cmp = strings.Compare(si, sj)
			} else {
				switch {
				case ni < nj:
					cmp = -1
				case ni > nj:
					cmp = 1
				}
			}
			if cmp == 0 {
				continue
			}
			if f.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func (s *Store) FindReciters(ctx context.Context, f *db.Filter, opts db.ListOptions) ([]*types.Reciter, error) {
	s.mu.RLock()
	matched := make([]*types.Reciter, 0, len(s.reciters))
	for _, r := range s.reciters {
		if matchFilter(r, f) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sortReciters(matched, opts.Sort)

	if opts.Offset > len(matched) {
		matched = nil
	} else {
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	out := make([]*types.Reciter, len(matched))
	for i, r := range matched {
		out[i] = copyReciter(r, opts.IncludeRecitations)
	}
	return out, nil
}

func (s *Store) CountReciters(ctx context.Context, f *db.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.reciters {
		if matchFilter(r, f) {
			count++
		}
	}
	return count, nil
}

func (s *Store) MaxReciterNumber(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, r := range s.reciters {
		if r.Number > max {
			max = r.Number
		}
	}
	return max, nil
}

func (s *Store) IterateReciters(ctx context.Context, fn func(*types.Reciter) error) error {
	s.mu.RLock()
	all := make([]*types.Reciter, 0, len(s.reciters))
	for _, r := range s.reciters {
		all = append(all, copyReciter(r, true))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	for _, r := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) PutRecitation(ctx context.Context, rec *types.Recitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	s.recitations[rec.ID] = &cp
	return nil
}

func (s *Store) GetRecitationBySlug(ctx context.Context, slug string) (*types.Recitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.recitations {
		if rec.Slug == slug {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, db.ErrRecitationNotFound
}

func (s *Store) GetRecitationByID(ctx context.Context, id uuid.UUID) (*types.Recitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recitations[id]
	if !ok {
		return nil, db.ErrRecitationNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) ListRecitations(ctx context.Context) ([]*types.Recitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Recitation, 0, len(s.recitations))
	for _, rec := range s.recitations {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *Store) PutChapter(ctx context.Context, ch *types.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	cp := *ch
	s.chapters[ch.Number] = &cp
	return nil
}

func (s *Store) GetChapterByNumber(ctx context.Context, number int) (*types.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chapters[number]
	if !ok {
		return nil, db.ErrChapterNotFound
	}
	cp := *ch
	return &cp, nil
}

func (s *Store) ListChapters(ctx context.Context) ([]*types.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Chapter, 0, len(s.chapters))
	for _, ch := range s.chapters {
		cp := *ch
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) RecitersWithMissingArchives(ctx context.Context) ([]*types.Reciter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Reciter
	for _, r := range s.reciters {
		if len(r.Recitations) == 0 {
			continue
		}
		for _, a := range r.Recitations {
			if a.ArchiveURL == "" {
				out = append(out, copyReciter(r, false))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArabicName < out[j].ArabicName })
	return out, nil
}

func (s *Store) MissingArchivesForReciter(ctx context.Context, slug string) ([]db.MissingArchive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reciter *types.Reciter
	for _, r := range s.reciters {
		if r.Slug == slug {
			reciter = r
			break
		}
	}
	if reciter == nil {
		return nil, db.ErrReciterNotFound
	}

	var out []db.MissingArchive
	for _, a := range reciter.Recitations {
		if a.ArchiveURL != "" {
			continue
		}
		rec, ok := s.recitations[a.RecitationID]
		if !ok {
			continue
		}
		out = append(out, db.MissingArchive{
			RecitationID: rec.ID,
			Slug:         rec.Slug,
			ArabicName:   rec.ArabicName,
			EnglishName:  rec.EnglishName,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
