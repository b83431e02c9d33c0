// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/logger"
	"github.com/tartil-io/tartil/pkg/types"
)

// AudioUpload is one incoming audio object. The filename's leading
// numeric token selects the chapter.
type AudioUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// UploadedFile reports one successfully stored audio file.
type UploadedFile struct {
	Filename      string `json:"filename"`
	ChapterNumber int    `json:"chapterNumber"`
	ObjectURL     string `json:"url"`
}

// FailedFile reports one batch item that could not be stored.
type FailedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadReport is the per-item result of a batch upload. A batch never
// fails as a whole once the reciter and recitation resolve; failures
// are isolated per item and earlier successes are kept.
type UploadReport struct {
	Uploaded []UploadedFile `json:"uploaded"`
	Skipped  []string       `json:"skipped"`
	Failed   []FailedFile   `json:"failed"`

	IsCompleted   bool `json:"isCompleted"`
	NewAssignment bool `json:"newAssignment"`
}

// parseChapterNumber extracts the leading numeric token of a filename,
// e.g. "002.mp3" -> 2.
func parseChapterNumber(filename string) (int, error) {
	base := path.Base(filename)
	token, _, _ := strings.Cut(base, ".")
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("filename %q does not start with a chapter number", filename)
	}
	return n, nil
}

// audioKey is the normalized object key for one chapter recording.
func audioKey(reciterSlug, recitationSlug string, chapterNumber int, filename string) string {
	return fmt.Sprintf("%s/%s/%d%s", reciterSlug, recitationSlug, chapterNumber, path.Ext(filename))
}

// UploadAudioBatch stores a batch of audio files for one
// reciter/recitation pair, creating the assignment on first upload.
// Chapters already present are skipped, which makes re-running the same
// batch idempotent. The reciter document is written once, after the
// whole batch has been processed.
func (s *Service) UploadAudioBatch(ctx context.Context, reciterSlug, recitationSlug string, files []AudioUpload) (*UploadReport, error) {
	if len(files) == 0 {
		return nil, NewInvalidInputError("no audio files supplied")
	}

	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}
	recitation, err := s.getRecitation(ctx, recitationSlug)
	if err != nil {
		return nil, err
	}

	assignment := reciter.Assignment(recitation.ID)
	isNew := assignment == nil
	if isNew {
		assignment = &types.RecitationAssignment{
			RecitationID: recitation.ID,
			AudioFiles:   []types.AudioFileEntry{},
		}
	}

	report := &UploadReport{NewAssignment: isNew}
	log := logger.Ctx(ctx)

	for _, f := range files {
		number, err := parseChapterNumber(f.Filename)
		if err != nil {
			report.Failed = append(report.Failed, FailedFile{Filename: f.Filename, Reason: err.Error()})
			continue
		}
		if !types.ValidChapterNumber(number) {
			report.Failed = append(report.Failed, FailedFile{
				Filename: f.Filename,
				Reason:   fmt.Sprintf("chapter number %d out of range [1,%d]", number, types.TotalChapters),
			})
			continue
		}

		// Skip-if-present keeps re-uploads idempotent.
		if assignment.HasChapter(number) {
			report.Skipped = append(report.Skipped, f.Filename)
			uploadsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		chapter, err := s.db.GetChapterByNumber(ctx, number)
		if err != nil {
			reason := fmt.Sprintf("resolve chapter %d: %v", number, err)
			if errors.Is(err, db.ErrChapterNotFound) {
				reason = fmt.Sprintf("chapter %d not in catalog", number)
			}
			report.Failed = append(report.Failed, FailedFile{Filename: f.Filename, Reason: reason})
			continue
		}

		key := audioKey(reciterSlug, recitationSlug, number, f.Filename)
		res, err := s.blobs.Put(ctx, key, f.Reader, f.ContentType)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("audio upload failed")
			report.Failed = append(report.Failed, FailedFile{
				Filename: f.Filename,
				Reason:   fmt.Sprintf("object store write: %v", err),
			})
			uploadsTotal.WithLabelValues("failed").Inc()
			continue
		}

		assignment.AudioFiles = append(assignment.AudioFiles, types.AudioFileEntry{
			ChapterID:     chapter.ID,
			ChapterNumber: number,
			ObjectURL:     res.PublicURL,
			DownloadURL:   res.DownloadURL,
		})
		report.Uploaded = append(report.Uploaded, UploadedFile{
			Filename:      f.Filename,
			ChapterNumber: number,
			ObjectURL:     res.PublicURL,
		})
		uploadsTotal.WithLabelValues("uploaded").Inc()
	}

	assignment.Recompute()
	report.IsCompleted = assignment.IsCompleted

	// Persist only when the batch changed the document; a batch of
	// skips and failures must not touch the stored assignment.
	if len(report.Uploaded) > 0 {
		if isNew {
			reciter.AddAssignment(*assignment)
		} else {
			*reciter.Assignment(recitation.ID) = *assignment
		}
		if err := s.db.PutReciter(ctx, reciter); err != nil {
			return nil, NewInternalError("save reciter after upload", err)
		}
		s.invalidate(ctx, reciter.Slug)
	}

	log.Info().
		Str("reciter", reciterSlug).
		Str("recitation", recitationSlug).
		Int("uploaded", len(report.Uploaded)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Bool("completed", report.IsCompleted).
		Msg("audio batch processed")

	return report, nil
}
