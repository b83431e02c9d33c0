// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tartil-io/tartil/pkg/logger"
	"github.com/tartil-io/tartil/pkg/types"
)

// DefaultCacheTTL bounds staleness for cached reciter details.
const DefaultCacheTTL = 5 * time.Minute

// ReciterCache is a redis-backed read cache for populated reciter
// details. It fails open: any cache error is logged and treated as a
// miss, the catalog store stays authoritative.
type ReciterCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReciterCache wraps a redis client. A zero ttl uses DefaultCacheTTL.
func NewReciterCache(client *redis.Client, ttl time.Duration) *ReciterCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ReciterCache{client: client, ttl: ttl}
}

func cacheKey(reciterSlug string) string {
	return "tartil:reciter:" + reciterSlug
}

// Get returns the cached reciter, or nil on a miss or error.
func (c *ReciterCache) Get(ctx context.Context, reciterSlug string) *types.Reciter {
	data, err := c.client.Get(ctx, cacheKey(reciterSlug)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Ctx(ctx).Warn().Err(err).Str("reciter", reciterSlug).Msg("cache read failed")
		}
		return nil
	}
	var reciter types.Reciter
	if err := json.Unmarshal(data, &reciter); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("reciter", reciterSlug).Msg("cache entry corrupt, dropping")
		c.client.Del(ctx, cacheKey(reciterSlug))
		return nil
	}
	return &reciter
}

// Set stores a reciter with the configured TTL.
func (c *ReciterCache) Set(ctx context.Context, reciter *types.Reciter) {
	data, err := json.Marshal(reciter)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(reciter.Slug), data, c.ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("reciter", reciter.Slug).Msg("cache write failed")
	}
}

// Invalidate drops the cached entry for a reciter.
func (c *ReciterCache) Invalidate(ctx context.Context, reciterSlug string) {
	if err := c.client.Del(ctx, cacheKey(reciterSlug)).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("reciter", reciterSlug).Msg("cache invalidation failed")
	}
}

// invalidate drops a reciter from the cache after any mutation. Safe to
// call with no cache attached.
func (s *Service) invalidate(ctx context.Context, reciterSlug string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, reciterSlug)
	}
}
