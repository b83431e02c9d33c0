// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tartil-io/tartil/pkg/types"
)

// Metrics for catalog store operations
var (
	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tartil_db_query_duration_seconds",
			Help:    "Duration of catalog store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "status"},
	)

	dbQueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tartil_db_queries_total",
			Help: "Total number of catalog store operations",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(dbQueryDuration, dbQueryTotal)
}

func recordMetric(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	dbQueryDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	dbQueryTotal.WithLabelValues(operation, status).Inc()
}

// instrumented decorates a Store with prometheus timing per operation.
type instrumented struct {
	inner Store
}

// WithMetrics wraps a Store so every operation is timed and counted.
func WithMetrics(inner Store) Store {
	return &instrumented{inner: inner}
}

func (m *instrumented) PutReciter(ctx context.Context, r *types.Reciter) error {
	start := time.Now()
	err := m.inner.PutReciter(ctx, r)
	recordMetric("put_reciter", start, err)
	return err
}

func (m *instrumented) GetReciterBySlug(ctx context.Context, slug string) (*types.Reciter, error) {
	start := time.Now()
	r, err := m.inner.GetReciterBySlug(ctx, slug)
	recordMetric("get_reciter_by_slug", start, err)
	return r, err
}

func (m *instrumented) GetReciterByNumber(ctx context.Context, number int) (*types.Reciter, error) {
	start := time.Now()
	r, err := m.inner.GetReciterByNumber(ctx, number)
	recordMetric("get_reciter_by_number", start, err)
	return r, err
}

func (m *instrumented) DeleteReciter(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := m.inner.DeleteReciter(ctx, id)
	recordMetric("delete_reciter", start, err)
	return err
}

func (m *instrumented) FindReciters(ctx context.Context, f *Filter, opts ListOptions) ([]*types.Reciter, error) {
	start := time.Now()
	rs, err := m.inner.FindReciters(ctx, f, opts)
	recordMetric("find_reciters", start, err)
	return rs, err
}

func (m *instrumented) CountReciters(ctx context.Context, f *Filter) (int, error) {
	start := time.Now()
	n, err := m.inner.CountReciters(ctx, f)
	recordMetric("count_reciters", start, err)
	return n, err
}

func (m *instrumented) MaxReciterNumber(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := m.inner.MaxReciterNumber(ctx)
	recordMetric("max_reciter_number", start, err)
	return n, err
}

func (m *instrumented) IterateReciters(ctx context.Context, fn func(*types.Reciter) error) error {
	start := time.Now()
	err := m.inner.IterateReciters(ctx, fn)
	recordMetric("iterate_reciters", start, err)
	return err
}

func (m *instrumented) PutRecitation(ctx context.Context, rec *types.Recitation) error {
	start := time.Now()
	err := m.inner.PutRecitation(ctx, rec)
	recordMetric("put_recitation", start, err)
	return err
}

func (m *instrumented) GetRecitationBySlug(ctx context.Context, slug string) (*types.Recitation, error) {
	start := time.Now()
	rec, err := m.inner.GetRecitationBySlug(ctx, slug)
	recordMetric("get_recitation_by_slug", start, err)
	return rec, err
}

func (m *instrumented) GetRecitationByID(ctx context.Context, id uuid.UUID) (*types.Recitation, error) {
	start := time.Now()
	rec, err := m.inner.GetRecitationByID(ctx, id)
	recordMetric("get_recitation_by_id", start, err)
	return rec, err
}

func (m *instrumented) ListRecitations(ctx context.Context) ([]*types.Recitation, error) {
	start := time.Now()
	recs, err := m.inner.ListRecitations(ctx)
	recordMetric("list_recitations", start, err)
	return recs, err
}

func (m *instrumented) PutChapter(ctx context.Context, ch *types.Chapter) error {
	start := time.Now()
	err := m.inner.PutChapter(ctx, ch)
	recordMetric("put_chapter", start, err)
	return err
}

func (m *instrumented) GetChapterByNumber(ctx context.Context, number int) (*types.Chapter, error) {
	start := time.Now()
	ch, err := m.inner.GetChapterByNumber(ctx, number)
	recordMetric("get_chapter_by_number", start, err)
	return ch, err
}

func (m *instrumented) ListChapters(ctx context.Context) ([]*types.Chapter, error) {
	start := time.Now()
	chs, err := m.inner.ListChapters(ctx)
	recordMetric("list_chapters", start, err)
	return chs, err
}

func (m *instrumented) RecitersWithMissingArchives(ctx context.Context) ([]*types.Reciter, error) {
	start := time.Now()
	rs, err := m.inner.RecitersWithMissingArchives(ctx)
	recordMetric("reciters_with_missing_archives", start, err)
	return rs, err
}

func (m *instrumented) MissingArchivesForReciter(ctx context.Context, slug string) ([]MissingArchive, error) {
	start := time.Now()
	ms, err := m.inner.MissingArchivesForReciter(ctx, slug)
	recordMetric("missing_archives_for_reciter", start, err)
	return ms, err
}

func (m *instrumented) Close() error {
	return m.inner.Close()
}
