// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartil-io/tartil/pkg/types"
)

func newTestCache(t *testing.T) (*ReciterCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewReciterCache(client, time.Minute), mr
}

func TestReciterCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	assert.Nil(t, cache.Get(ctx, "sample-reader"))

	reciter := &types.Reciter{Slug: "sample-reader", EnglishName: "Sample Reader", Number: 3}
	cache.Set(ctx, reciter)

	got := cache.Get(ctx, "sample-reader")
	require.NotNil(t, got)
	assert.Equal(t, "Sample Reader", got.EnglishName)
	assert.Equal(t, 3, got.Number)

	cache.Invalidate(ctx, "sample-reader")
	assert.Nil(t, cache.Get(ctx, "sample-reader"))
}

func TestReciterCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	cache.Set(ctx, &types.Reciter{Slug: "sample-reader"})
	require.NotNil(t, cache.Get(ctx, "sample-reader"))

	mr.FastForward(2 * time.Minute)
	assert.Nil(t, cache.Get(ctx, "sample-reader"))
}

func TestReciterCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	require.NoError(t, mr.Set(cacheKey("sample-reader"), "{not json"))
	assert.Nil(t, cache.Get(ctx, "sample-reader"))

	// The corrupt entry is dropped on read.
	assert.False(t, mr.Exists(cacheKey("sample-reader")))
}

func TestReciterCacheFailsOpen(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	mr.Close()

	// Every operation degrades to a miss rather than an error.
	assert.Nil(t, cache.Get(ctx, "sample-reader"))
	cache.Set(ctx, &types.Reciter{Slug: "sample-reader"})
	cache.Invalidate(ctx, "sample-reader")
}

func TestServiceCacheIntegration(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t)
	cache, _ := newTestCache(t)
	env.svc.cache = cache

	env.seedReciter(t, "Sample Reader", "قارئ")
	env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1)

	// First read populates the cache.
	_, err := env.svc.GetReciterDetails(ctx, "sample-reader", DetailsOptions{})
	require.NoError(t, err)
	require.NotNil(t, cache.Get(ctx, "sample-reader"))

	// A mutation invalidates it.
	_, err = env.svc.DeleteChapter(ctx, "sample-reader", env.hafs.Slug, 1)
	require.NoError(t, err)
	assert.Nil(t, cache.Get(ctx, "sample-reader"))
}
