// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartil-io/tartil/pkg/types"
)

func TestListReciters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := func(t *testing.T) *testEnv {
		env := newTestEnv(t)
		env.seedReciter(t, "Abdul Basit", "عبد الباسط")
		env.seedReciter(t, "Mahmoud Ali", "محمود علي")
		env.seedReciter(t, "Saad Ghamdi", "سعد الغامدي")
		env.uploadChapters(t, "abdul-basit", env.hafs.Slug, chapterRange(1, types.TotalChapters)...)
		env.uploadChapters(t, "mahmoud-ali", env.hafs.Slug, 1, 2)
		return env
	}

	t.Run("defaults paginate the whole set", func(t *testing.T) {
		t.Parallel()
		env := seed(t)

		res, err := env.svc.ListReciters(ctx, ListRecitersInput{})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, defaultPageSize, res.PageSize)
		assert.Equal(t, 1, res.TotalPages)
		assert.Len(t, res.Reciters, 3)

		// List views never carry the assignment array.
		for _, r := range res.Reciters {
			assert.Nil(t, r.Recitations)
		}
	})

	t.Run("page windows and totals agree", func(t *testing.T) {
		t.Parallel()
		env := seed(t)

		res, err := env.svc.ListReciters(ctx, ListRecitersInput{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 2, res.TotalPages)
		assert.Len(t, res.Reciters, 1)
	})

	t.Run("search matches either name", func(t *testing.T) {
		t.Parallel()
		env := seed(t)

		res, err := env.svc.ListReciters(ctx, ListRecitersInput{Search: "mahmoud"})
		require.NoError(t, err)
		require.Len(t, res.Reciters, 1)
		assert.Equal(t, "mahmoud-ali", res.Reciters[0].Slug)

		// Alef variants fold to the same class.
		res, err = env.svc.ListReciters(ctx, ListRecitersInput{Search: "ألغامدي"})
		require.NoError(t, err)
		require.Len(t, res.Reciters, 1)
		assert.Equal(t, "saad-ghamdi", res.Reciters[0].Slug)
	})

	t.Run("virtual slugs select completeness", func(t *testing.T) {
		t.Parallel()
		env := seed(t)

		res, err := env.svc.ListReciters(ctx, ListRecitersInput{Recitation: types.CompletedRecitationsSlug})
		require.NoError(t, err)
		require.Len(t, res.Reciters, 1)
		assert.Equal(t, "abdul-basit", res.Reciters[0].Slug)

		res, err = env.svc.ListReciters(ctx, ListRecitersInput{Recitation: types.VariousRecitationsSlug})
		require.NoError(t, err)
		require.Len(t, res.Reciters, 1)
		assert.Equal(t, "mahmoud-ali", res.Reciters[0].Slug)
	})

	t.Run("unknown recitation slug widens to the full listing", func(t *testing.T) {
		t.Parallel()
		env := seed(t)

		res, err := env.svc.ListReciters(ctx, ListRecitersInput{Recitation: "no-such-recitation"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Len(t, res.Reciters, 3)
	})

	t.Run("sort by recitation count descending", func(t *testing.T) {
		t.Parallel()
		env := seed(t)

		res, err := env.svc.ListReciters(ctx, ListRecitersInput{Sort: "-totalRecitations,number"})
		require.NoError(t, err)
		require.Len(t, res.Reciters, 3)
		assert.Equal(t, "abdul-basit", res.Reciters[0].Slug)
		assert.Equal(t, "saad-ghamdi", res.Reciters[2].Slug)
	})
}

func TestGetReciterDetails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown reciter", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, err := env.svc.GetReciterDetails(ctx, "nobody", DetailsOptions{})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("joins recitations and chapters", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")
		env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1, 2)

		details, err := env.svc.GetReciterDetails(ctx, "sample-reader", DetailsOptions{})
		require.NoError(t, err)
		require.Len(t, details.Recitations, 1)

		rd := details.Recitations[0]
		assert.Equal(t, env.hafs.Slug, rd.Recitation.Slug)
		require.Len(t, rd.AudioFiles, 2)
		require.NotNil(t, rd.AudioFiles[0].Chapter)
		assert.Equal(t, 1, rd.AudioFiles[0].Chapter.Number)
		assert.Nil(t, rd.AudioFiles[0].Chapter.Verses)
	})

	t.Run("increase views persists the counter", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")

		_, err := env.svc.GetReciterDetails(ctx, "sample-reader", DetailsOptions{IncreaseViews: true})
		require.NoError(t, err)
		_, err = env.svc.GetReciterDetails(ctx, "sample-reader", DetailsOptions{IncreaseViews: true})
		require.NoError(t, err)

		reciter, err := env.store.GetReciterBySlug(ctx, "sample-reader")
		require.NoError(t, err)
		assert.Equal(t, int64(2), reciter.TotalViewers)
	})
}

func TestReports(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	env := newTestEnv(t)
	env.seedReciter(t, "Abdul Basit", "عبد الباسط")
	env.seedReciter(t, "Mahmoud Ali", "محمود علي")
	env.uploadChapters(t, "abdul-basit", env.hafs.Slug, 1)
	env.uploadChapters(t, "abdul-basit", env.warsh.Slug, 1)
	env.uploadChapters(t, "mahmoud-ali", env.hafs.Slug, 1)
	require.NoError(t, env.svc.UploadArchive(ctx, "mahmoud-ali", env.hafs.Slug, strings.NewReader("zip")))

	reciters, err := env.svc.IncompleteArchives(ctx)
	require.NoError(t, err)
	require.Len(t, reciters, 1)
	assert.Equal(t, "abdul-basit", reciters[0].Slug)

	missing, err := env.svc.MissingArchivesForReciter(ctx, "abdul-basit")
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	missing, err = env.svc.MissingArchivesForReciter(ctx, "mahmoud-ali")
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = env.svc.MissingArchivesForReciter(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
