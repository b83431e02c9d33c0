// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package types defines the catalog domain model. The Reciter document
// is the unit of ownership: every mutation loads the whole document,
// rewrites the nested assignment structure in memory, and persists it
// back as one write so the derived fields stay centralized.
package types

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TotalChapters is the fixed number of chapters audio files are keyed by.
const TotalChapters = 114

// Reciter is a performer owning zero or more recitation assignments.
type Reciter struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Number      int       `json:"number"`
	ArabicName  string    `json:"arabicName"`
	EnglishName string    `json:"englishName"`
	PhotoURL    string    `json:"photoUrl,omitempty"`

	IsTopReciter     bool  `json:"isTopReciter"`
	TotalViewers     int64 `json:"totalViewers"`
	TotalRecitations int   `json:"totalRecitations"`

	Recitations []RecitationAssignment `json:"recitations"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecitationAssignment links one reciter to one recitation and holds the
// audio files uploaded for that pair. It has no identity of its own
// beyond RecitationID, which is unique within the owning reciter.
type RecitationAssignment struct {
	RecitationID   uuid.UUID        `json:"recitationId"`
	AudioFiles     []AudioFileEntry `json:"audioFiles"`
	IsCompleted    bool             `json:"isCompleted"`
	TotalDownloads int64            `json:"totalDownloads"`

	// ArchiveURL is set once a consolidated archive has been uploaded.
	// Its absence is queryable data, used by the missing-archive reports.
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

// AudioFileEntry is one uploaded chapter recording.
type AudioFileEntry struct {
	ChapterID     uuid.UUID `json:"chapterId"`
	ChapterNumber int       `json:"chapterNumber"`
	ObjectURL     string    `json:"url"`
	DownloadURL   string    `json:"downloadUrl"`
}

// Assignment returns a pointer to the assignment for the given
// recitation, or nil when the reciter does not hold it.
func (r *Reciter) Assignment(recitationID uuid.UUID) *RecitationAssignment {
	for i := range r.Recitations {
		if r.Recitations[i].RecitationID == recitationID {
			return &r.Recitations[i]
		}
	}
	return nil
}

// HasRecitation reports whether the reciter holds an assignment for the
// given recitation.
func (r *Reciter) HasRecitation(recitationID uuid.UUID) bool {
	return r.Assignment(recitationID) != nil
}

// AddAssignment appends a new assignment and bumps TotalRecitations.
// Adding a duplicate RecitationID is a programming error; callers must
// check HasRecitation first.
func (r *Reciter) AddAssignment(a RecitationAssignment) {
	r.Recitations = append(r.Recitations, a)
	r.TotalRecitations = len(r.Recitations)
}

// RemoveAssignment drops the assignment for the given recitation and
// recomputes TotalRecitations, floored at zero. Returns false when the
// reciter does not hold it.
func (r *Reciter) RemoveAssignment(recitationID uuid.UUID) bool {
	for i := range r.Recitations {
		if r.Recitations[i].RecitationID == recitationID {
			r.Recitations = append(r.Recitations[:i], r.Recitations[i+1:]...)
			r.TotalRecitations = len(r.Recitations)
			return true
		}
	}
	return false
}

// HasChapter reports whether the assignment already holds an entry for
// the given chapter number.
func (a *RecitationAssignment) HasChapter(number int) bool {
	for i := range a.AudioFiles {
		if a.AudioFiles[i].ChapterNumber == number {
			return true
		}
	}
	return false
}

// RemoveChapter filters out the entry for the given chapter number and
// recomputes the derived fields. Returns false when no entry matched.
func (a *RecitationAssignment) RemoveChapter(number int) bool {
	for i := range a.AudioFiles {
		if a.AudioFiles[i].ChapterNumber == number {
			a.AudioFiles = append(a.AudioFiles[:i], a.AudioFiles[i+1:]...)
			a.Recompute()
			return true
		}
	}
	return false
}

// Recompute sorts the audio files by ascending chapter number and
// rederives IsCompleted. Every mutation path must call it; IsCompleted
// is never settable directly.
func (a *RecitationAssignment) Recompute() {
	sort.Slice(a.AudioFiles, func(i, j int) bool {
		return a.AudioFiles[i].ChapterNumber < a.AudioFiles[j].ChapterNumber
	})
	a.IsCompleted = len(a.AudioFiles) == TotalChapters
}

// ValidChapterNumber reports whether n is inside the fixed chapter range.
func ValidChapterNumber(n int) bool {
	return n >= 1 && n <= TotalChapters
}
