// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/tartil-io/tartil/pkg/logger"
)

// deleteFanOut bounds how many object deletions run at once during a
// cascade.
const deleteFanOut = 8

// DeleteResult reports a cascade deletion. Warnings list objects that
// could not be removed; the cascade continues past them and the catalog
// write still happens, leaving the reconciliation sweep to mop up.
type DeleteResult struct {
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// deleteObjects removes the given keys concurrently and returns a
// warning per failed deletion.
func (s *Service) deleteObjects(ctx context.Context, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		warnings []string
	)
	sem := make(chan struct{}, deleteFanOut)

	for _, key := range keys {
		wg.Add(1)
		sem <- struct{}{}
		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.blobs.Delete(ctx, key); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cascade object deletion failed")
				deleteWarningsTotal.Inc()
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("delete %s: %v", key, err))
				mu.Unlock()
			}
		}(key)
	}
	wg.Wait()
	return warnings
}

// listKeys returns the keys currently stored under a prefix.
func (s *Service) listKeys(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	return keys, nil
}

// photoKeys finds the stored photo objects for a reciter. The photo key
// is imgs/{slug}.{ext} with the extension chosen at upload time, so the
// prefix listing is filtered back to an exact stem match.
func (s *Service) photoKeys(ctx context.Context, reciterSlug string) ([]string, error) {
	objects, err := s.blobs.List(ctx, "imgs/"+reciterSlug)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, obj := range objects {
		stem, _, _ := strings.Cut(path.Base(obj.Key), ".")
		if stem == reciterSlug {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

// DeleteReciter removes a reciter: photo (unless it is the shared
// placeholder), every audio object under the reciter prefix, every
// consolidated archive, then the document. Object deletions are
// best-effort; failures are reported as warnings.
func (s *Service) DeleteReciter(ctx context.Context, reciterSlug string) (*DeleteResult, error) {
	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}

	var keys []string

	if reciter.PhotoURL != "" && reciter.PhotoURL != s.cfg.PlaceholderPhotoURL {
		photoKeys, err := s.photoKeys(ctx, reciterSlug)
		if err != nil {
			return nil, NewInternalError("list reciter photo", err)
		}
		keys = append(keys, photoKeys...)
	}

	audioKeys, err := s.listKeys(ctx, reciterSlug+"/")
	if err != nil {
		return nil, NewInternalError("list reciter objects", err)
	}
	keys = append(keys, audioKeys...)

	for _, a := range reciter.Recitations {
		recitation, err := s.db.GetRecitationByID(ctx, a.RecitationID)
		if err != nil {
			// A dangling assignment has no archive key to derive; the
			// sweep reports these separately.
			continue
		}
		keys = append(keys, s.archiveKey(reciterSlug, recitation.Slug))
	}

	warnings := s.deleteObjects(ctx, keys)

	if err := s.db.DeleteReciter(ctx, reciter.ID); err != nil {
		return nil, NewInternalError("delete reciter document", err)
	}
	s.invalidate(ctx, reciterSlug)
	deletesTotal.WithLabelValues("reciter").Inc()

	return &DeleteResult{
		Message:  fmt.Sprintf("reciter %q removed", reciterSlug),
		Warnings: warnings,
	}, nil
}

// DeleteRecitation removes one assignment: its audio objects, its
// consolidated archive, then the assignment entry. The reciter must
// actually hold the assignment. Removing the canonical recitation also
// revokes top-reciter status, since the promotion requirement no longer
// holds.
func (s *Service) DeleteRecitation(ctx context.Context, reciterSlug, recitationSlug string) (*DeleteResult, error) {
	recitation, err := s.getRecitation(ctx, recitationSlug)
	if err != nil {
		return nil, err
	}
	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}
	if !reciter.HasRecitation(recitation.ID) {
		return nil, NewNotFoundError("resource /%s/%s not found", reciterSlug, recitationSlug)
	}

	keys, err := s.listKeys(ctx, audioPrefix(reciterSlug, recitationSlug))
	if err != nil {
		return nil, NewInternalError("list recitation objects", err)
	}
	keys = append(keys, s.archiveKey(reciterSlug, recitationSlug))

	warnings := s.deleteObjects(ctx, keys)

	reciter.RemoveAssignment(recitation.ID)
	if reciter.IsTopReciter && recitation.Slug == s.cfg.CanonicalRecitationSlug {
		reciter.IsTopReciter = false
	}
	if err := s.db.PutReciter(ctx, reciter); err != nil {
		return nil, NewInternalError("save reciter after recitation delete", err)
	}
	s.invalidate(ctx, reciterSlug)
	deletesTotal.WithLabelValues("recitation").Inc()

	return &DeleteResult{
		Message:  fmt.Sprintf("recitation %q removed from reciter %q", recitationSlug, reciterSlug),
		Warnings: warnings,
	}, nil
}

// DeleteChapter removes a single chapter entry from an assignment,
// deleting its object(s) and recomputing completeness. Both the
// recitation and the chapter must exist on the reciter.
func (s *Service) DeleteChapter(ctx context.Context, reciterSlug, recitationSlug string, chapterNumber int) (*DeleteResult, error) {
	recitation, err := s.getRecitation(ctx, recitationSlug)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetChapterByNumber(ctx, chapterNumber); err != nil {
		return nil, NewNotFoundError("chapter %d not found", chapterNumber)
	}

	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}
	assignment := reciter.Assignment(recitation.ID)
	if assignment == nil || !assignment.HasChapter(chapterNumber) {
		return nil, NewNotFoundError("resource /%s/%s/%d not found", reciterSlug, recitationSlug, chapterNumber)
	}

	// Chapter objects are keyed {number}.{ext}; filter the prefix
	// listing so chapter 1 does not also match 10..19 and 100..114.
	prefix := audioPrefix(reciterSlug, recitationSlug)
	objects, err := s.blobs.List(ctx, fmt.Sprintf("%s%d", prefix, chapterNumber))
	if err != nil {
		return nil, NewInternalError("list chapter objects", err)
	}
	var keys []string
	for _, obj := range objects {
		if n, err := parseChapterNumber(obj.Key); err == nil && n == chapterNumber {
			keys = append(keys, obj.Key)
		}
	}

	warnings := s.deleteObjects(ctx, keys)

	assignment.RemoveChapter(chapterNumber)
	if err := s.db.PutReciter(ctx, reciter); err != nil {
		return nil, NewInternalError("save reciter after chapter delete", err)
	}
	s.invalidate(ctx, reciterSlug)
	deletesTotal.WithLabelValues("chapter").Inc()

	return &DeleteResult{
		Message:  fmt.Sprintf("chapter %d removed from /%s/%s", chapterNumber, reciterSlug, recitationSlug),
		Warnings: warnings,
	}, nil
}
