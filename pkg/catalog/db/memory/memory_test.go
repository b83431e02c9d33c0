// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

func seedStore(t *testing.T) (*Store, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	s := New()

	rec := &types.Recitation{Slug: "hafs-an-asim", EnglishName: "Hafs an Asim"}
	require.NoError(t, s.PutRecitation(ctx, rec))

	complete := make([]types.AudioFileEntry, types.TotalChapters)
	for i := range complete {
		complete[i] = types.AudioFileEntry{ChapterNumber: i + 1}
	}

	reciters := []*types.Reciter{
		{
			Slug: "abdul-basit", Number: 1, EnglishName: "Abdul Basit", ArabicName: "عبد الباسط",
			IsTopReciter: true, TotalViewers: 50,
			Recitations: []types.RecitationAssignment{
				{RecitationID: rec.ID, AudioFiles: complete, IsCompleted: true},
			},
			TotalRecitations: 1,
		},
		{
			Slug: "mahmoud-ali", Number: 2, EnglishName: "Mahmoud Ali", ArabicName: "محمود علي",
			TotalViewers: 200,
			Recitations: []types.RecitationAssignment{
				{RecitationID: rec.ID, AudioFiles: complete[:3], ArchiveURL: "https://cdn/archive.zip"},
			},
			TotalRecitations: 1,
		},
		{
			Slug: "saad-ghamdi", Number: 3, EnglishName: "Saad Ghamdi", ArabicName: "سعد الغامدي",
			TotalViewers: 120,
		},
	}
	for _, r := range reciters {
		require.NoError(t, s.PutReciter(context.Background(), r))
	}
	return s, rec.ID
}

func TestFindRecitersFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, recID := seedStore(t)

	tests := []struct {
		name   string
		filter *db.Filter
		want   []string
	}{
		{name: "nil filter", filter: nil, want: []string{"abdul-basit", "mahmoud-ali", "saad-ghamdi"}},
		{
			name:   "search english",
			filter: &db.Filter{Search: &db.SearchCriteria{English: "mahmoud"}},
			want:   []string{"mahmoud-ali"},
		},
		{
			name:   "search arabic",
			filter: &db.Filter{Search: &db.SearchCriteria{Arabic: "[اأإآ]لغ[اأإآ]مدي"}},
			want:   []string{"saad-ghamdi"},
		},
		{
			name:   "assignment any",
			filter: &db.Filter{Assignment: &db.AssignmentCriteria{RecitationID: recID}},
			want:   []string{"abdul-basit", "mahmoud-ali"},
		},
		{
			name:   "assignment complete",
			filter: &db.Filter{Assignment: &db.AssignmentCriteria{RecitationID: recID, Completeness: db.CompletenessComplete}},
			want:   []string{"abdul-basit"},
		},
		{
			name:   "assignment various",
			filter: &db.Filter{Assignment: &db.AssignmentCriteria{RecitationID: recID, Completeness: db.CompletenessVarious}},
			want:   []string{"mahmoud-ali"},
		},
		{
			name:   "top reciters only",
			filter: &db.Filter{IsTopReciter: boolPtr(true)},
			want:   []string{"abdul-basit"},
		},
		{
			name: "combined",
			filter: &db.Filter{
				Search:     &db.SearchCriteria{English: "a"},
				Assignment: &db.AssignmentCriteria{RecitationID: recID},
			},
			want: []string{"abdul-basit", "mahmoud-ali"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.FindReciters(ctx, tt.filter, db.ListOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, slugs(got))

			count, err := s.CountReciters(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), count)
		})
	}
}

func TestFindRecitersSortAndPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := seedStore(t)

	got, err := s.FindReciters(ctx, nil, db.ListOptions{
		Sort: []db.SortField{{Field: "totalViewers", Desc: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mahmoud-ali", "saad-ghamdi", "abdul-basit"}, slugs(got))

	got, err = s.FindReciters(ctx, nil, db.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"mahmoud-ali"}, slugs(got))

	got, err = s.FindReciters(ctx, nil, db.ListOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindRecitersProjection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := seedStore(t)

	got, err := s.FindReciters(ctx, nil, db.ListOptions{})
	require.NoError(t, err)
	for _, r := range got {
		assert.Nil(t, r.Recitations)
		assert.NotZero(t, r.TotalRecitations, "derived counters survive the projection for %s", r.Slug)
	}

	got, err = s.FindReciters(ctx, nil, db.ListOptions{IncludeRecitations: true})
	require.NoError(t, err)
	assert.NotEmpty(t, got[0].Recitations)
}

func TestCopySemantics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, recID := seedStore(t)

	r, err := s.GetReciterBySlug(ctx, "abdul-basit")
	require.NoError(t, err)

	// Mutating the returned document must not leak into the store.
	r.EnglishName = "changed"
	r.Assignment(recID).AudioFiles[0].ChapterNumber = 999

	again, err := s.GetReciterBySlug(ctx, "abdul-basit")
	require.NoError(t, err)
	assert.Equal(t, "Abdul Basit", again.EnglishName)
	assert.Equal(t, 1, again.Assignment(recID).AudioFiles[0].ChapterNumber)
}

func TestMissingArchiveReports(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := seedStore(t)

	// abdul-basit lacks an archive URL, mahmoud-ali has one, saad-ghamdi
	// has no assignments at all.
	reciters, err := s.RecitersWithMissingArchives(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"abdul-basit"}, slugs(reciters))

	missing, err := s.MissingArchivesForReciter(ctx, "abdul-basit")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "hafs-an-asim", missing[0].Slug)

	missing, err = s.MissingArchivesForReciter(ctx, "mahmoud-ali")
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = s.MissingArchivesForReciter(ctx, "nobody")
	require.ErrorIs(t, err, db.ErrReciterNotFound)
}

func TestMaxReciterNumber(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := New()
	max, err := s.MaxReciterNumber(ctx)
	require.NoError(t, err)
	assert.Zero(t, max)

	s, _ = seedStore(t)
	max, err = s.MaxReciterNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, max)
}

func slugs(rs []*types.Reciter) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Slug
	}
	return out
}

func boolPtr(v bool) *bool { return &v }
