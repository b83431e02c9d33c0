// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentLookup(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	r := &Reciter{}
	assert.Nil(t, r.Assignment(id))
	assert.False(t, r.HasRecitation(id))

	r.AddAssignment(RecitationAssignment{RecitationID: id})
	require.NotNil(t, r.Assignment(id))
	assert.True(t, r.HasRecitation(id))
	assert.Equal(t, 1, r.TotalRecitations)

	// The returned pointer aliases the slice element.
	r.Assignment(id).TotalDownloads = 7
	assert.Equal(t, int64(7), r.Recitations[0].TotalDownloads)
}

func TestRemoveAssignment(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	r := &Reciter{}
	r.AddAssignment(RecitationAssignment{RecitationID: a})
	r.AddAssignment(RecitationAssignment{RecitationID: b})
	require.Equal(t, 2, r.TotalRecitations)

	assert.True(t, r.RemoveAssignment(a))
	assert.Equal(t, 1, r.TotalRecitations)
	assert.False(t, r.HasRecitation(a))

	assert.False(t, r.RemoveAssignment(a))
	assert.Equal(t, 1, r.TotalRecitations)

	assert.True(t, r.RemoveAssignment(b))
	assert.Zero(t, r.TotalRecitations)
}

func TestRecompute(t *testing.T) {
	t.Parallel()

	a := &RecitationAssignment{}
	for n := TotalChapters; n >= 1; n-- {
		a.AudioFiles = append(a.AudioFiles, AudioFileEntry{ChapterNumber: n})
	}
	a.Recompute()

	assert.True(t, a.IsCompleted)
	for i, f := range a.AudioFiles {
		assert.Equal(t, i+1, f.ChapterNumber)
	}

	require.True(t, a.RemoveChapter(50))
	assert.False(t, a.IsCompleted)
	assert.False(t, a.HasChapter(50))
	assert.Len(t, a.AudioFiles, TotalChapters-1)

	assert.False(t, a.RemoveChapter(50))
}

func TestValidChapterNumber(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidChapterNumber(1))
	assert.True(t, ValidChapterNumber(TotalChapters))
	assert.False(t, ValidChapterNumber(0))
	assert.False(t, ValidChapterNumber(TotalChapters+1))
	assert.False(t, ValidChapterNumber(-5))
}
