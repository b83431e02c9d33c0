// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerRunOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("clean state reports nothing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")
		env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1, 2)

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)
		require.NoError(t, report.Error)

		assert.Equal(t, int64(2), report.TotalObjects)
		assert.Equal(t, int64(2), report.ExpectedObjects)
		assert.Zero(t, report.OrphansDeleted)
		assert.Zero(t, report.OrphansSkipped)
		assert.Empty(t, report.DanglingPointers)
		assert.Equal(t, report, rc.GetLastReport())
	})

	t.Run("fresh orphans survive the grace period", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")
		env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1)

		_, err := env.blobs.Put(ctx, "sample-reader/"+env.hafs.Slug+"/9.mp3", strings.NewReader("in-flight"), "audio/mpeg")
		require.NoError(t, err)

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)

		assert.Equal(t, int64(1), report.OrphansSkipped)
		assert.Zero(t, report.OrphansDeleted)
		assert.Equal(t, 2, env.blobs.Len())
	})

	t.Run("aged orphans are deleted", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")
		env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1)

		orphanKey := "sample-reader/" + env.hafs.Slug + "/9.mp3"
		_, err := env.blobs.Put(ctx, orphanKey, strings.NewReader("left behind"), "audio/mpeg")
		require.NoError(t, err)
		env.blobs.SetModified(orphanKey, time.Now().Add(-2*time.Hour))

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)

		assert.Equal(t, int64(1), report.OrphansDeleted)
		exists, err := env.blobs.Exists(ctx, orphanKey)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("dry run only reports", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")

		orphanKey := "sample-reader/" + env.hafs.Slug + "/9.mp3"
		_, err := env.blobs.Put(ctx, orphanKey, strings.NewReader("left behind"), "audio/mpeg")
		require.NoError(t, err)
		env.blobs.SetModified(orphanKey, time.Now().Add(-2*time.Hour))

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour, DryRun: true}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)

		assert.Equal(t, int64(1), report.OrphansDeleted)
		exists, err := env.blobs.Exists(ctx, orphanKey)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("dangling pointers are reported not healed", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")
		env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1, 2)

		missingKey := "sample-reader/" + env.hafs.Slug + "/2.mp3"
		require.NoError(t, env.blobs.Delete(ctx, missingKey))

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)

		require.Len(t, report.DanglingPointers, 1)
		assert.Equal(t, missingKey, report.DanglingPointers[0])

		// The catalog entry is untouched.
		reciter, err := env.store.GetReciterBySlug(ctx, "sample-reader")
		require.NoError(t, err)
		assert.Len(t, reciter.Assignment(env.hafs.ID).AudioFiles, 2)
	})

	t.Run("listing failure surfaces on the report", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedReciter(t, "Sample Reader", "قارئ")
		env.blobs.FailList = errors.New("bucket unavailable")

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)

		require.Error(t, report.Error)
		assert.Equal(t, "bucket unavailable", report.ErrorMessage)
	})

	t.Run("archives and photos count as expected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := env.svc.CreateReciter(ctx, CreateReciterInput{
			ArabicName:  "قارئ",
			EnglishName: "Sample Reader",
			Photo: &PhotoUpload{
				Reader:      strings.NewReader("png"),
				Filename:    "portrait.png",
				ContentType: "image/png",
			},
		})
		require.NoError(t, err)
		env.uploadChapters(t, "sample-reader", env.hafs.Slug, 1)
		require.NoError(t, env.svc.UploadArchive(ctx, "sample-reader", env.hafs.Slug, strings.NewReader("zip")))

		rc := NewReconciler(ReconcilerConfig{GracePeriod: time.Hour}, env.svc)
		report := rc.RunOnce(ctx)
		require.NotNil(t, report)

		assert.Equal(t, int64(3), report.TotalObjects)
		assert.Equal(t, int64(3), report.ExpectedObjects)
		assert.Zero(t, report.OrphansSkipped)
		assert.Empty(t, report.DanglingPointers)
	})
}

func TestReconcilerLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rc := NewReconciler(ReconcilerConfig{Interval: time.Hour}, env.svc)
	rc.Start(context.Background())
	assert.False(t, rc.IsRunning())
	rc.Stop()
}
