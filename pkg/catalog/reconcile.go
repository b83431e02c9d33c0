// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/tartil-io/tartil/pkg/logger"
	"github.com/tartil-io/tartil/pkg/types"
)

// ReconcilerConfig holds configuration for the reconciliation sweep.
type ReconcilerConfig struct {
	// GracePeriod is how long to wait before deleting orphan objects.
	// This protects objects from in-flight uploads whose catalog write
	// has not landed yet.
	GracePeriod time.Duration

	// Interval is how often to run periodic reconciliation (0 = disabled).
	Interval time.Duration

	// DryRun if true, only logs what would be deleted without deleting.
	DryRun bool
}

// Reconciler compares the object store against the catalog. Objects no
// document references are orphans and get deleted once past the grace
// period; catalog entries whose object is gone are dangling pointers
// and are only reported, never auto-healed.
type Reconciler struct {
	config ReconcilerConfig
	svc    *Service

	// State
	mu          sync.Mutex
	isRunning   bool
	lastRunTime time.Time
	lastReport  *ReconcileReport

	// Lifecycle
	stopCh chan struct{}
	doneCh chan struct{}
}

// ReconcileReport contains the results of one reconciliation run.
type ReconcileReport struct {
	TotalObjects     int64         `json:"totalObjects"`
	ExpectedObjects  int64         `json:"expectedObjects"`
	OrphansDeleted   int64         `json:"orphansDeleted"`
	OrphansSkipped   int64         `json:"orphansSkipped"`
	DanglingPointers []string      `json:"danglingPointers,omitempty"`
	Duration         time.Duration `json:"duration"`

	// Error is the failure that aborted the run. ErrorMessage carries
	// its text on the wire so a failed run never reads as a clean one.
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// setError records the failure on the report in both forms.
func (r *ReconcileReport) setError(err error) {
	r.Error = err
	r.ErrorMessage = err.Error()
}

// NewReconciler creates a reconciliation sweep over the given engine.
func NewReconciler(config ReconcilerConfig, svc *Service) *Reconciler {
	return &Reconciler{
		config: config,
		svc:    svc,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins periodic reconciliation (if interval > 0).
func (rc *Reconciler) Start(ctx context.Context) {
	if rc.config.Interval <= 0 {
		logger.Ctx(ctx).Info().Msg("periodic reconciliation disabled (interval=0)")
		close(rc.doneCh)
		return
	}
	go rc.runPeriodic(ctx)
}

// Stop halts periodic reconciliation.
func (rc *Reconciler) Stop() {
	close(rc.stopCh)
	<-rc.doneCh
}

// urlExt extracts the file extension from a stored object URL, ignoring
// any query string.
func urlExt(rawURL string) string {
	p, _, _ := strings.Cut(rawURL, "?")
	return path.Ext(p)
}

// expectedKeys rebuilds the set of object keys the catalog references:
// photos, audio files, and consolidated archives. Assignments that
// reference an unknown recitation cannot be mapped to keys and are
// reported as dangling.
func (rc *Reconciler) expectedKeys(ctx context.Context) (map[string]bool, []string, error) {
	recitations, err := rc.svc.db.ListRecitations(ctx)
	if err != nil {
		return nil, nil, err
	}
	slugByID := make(map[string]string, len(recitations))
	for _, rec := range recitations {
		slugByID[rec.ID.String()] = rec.Slug
	}

	expected := make(map[string]bool)
	var dangling []string

	err = rc.svc.db.IterateReciters(ctx, func(r *types.Reciter) error {
		if r.PhotoURL != "" && r.PhotoURL != rc.svc.cfg.PlaceholderPhotoURL {
			expected["imgs/"+r.Slug+urlExt(r.PhotoURL)] = true
		}

		for i := range r.Recitations {
			a := &r.Recitations[i]
			recSlug, ok := slugByID[a.RecitationID.String()]
			if !ok {
				dangling = append(dangling, r.Slug+" -> recitation "+a.RecitationID.String())
				continue
			}
			for _, f := range a.AudioFiles {
				expected[audioKey(r.Slug, recSlug, f.ChapterNumber, urlExt(f.ObjectURL))] = true
			}
			if a.ArchiveURL != "" {
				expected[rc.svc.archiveKey(r.Slug, recSlug)] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return expected, dangling, nil
}

// RunOnce performs a single reconciliation run.
func (rc *Reconciler) RunOnce(ctx context.Context) *ReconcileReport {
	rc.mu.Lock()
	if rc.isRunning {
		rc.mu.Unlock()
		logger.Ctx(ctx).Warn().Msg("reconciliation already in progress, skipping")
		reconcileRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	rc.isRunning = true
	rc.mu.Unlock()

	defer func() {
		rc.mu.Lock()
		rc.isRunning = false
		rc.mu.Unlock()
	}()

	start := time.Now()
	report := &ReconcileReport{}
	log := logger.Ctx(ctx)

	log.Debug().
		Dur("grace_period", rc.config.GracePeriod).
		Bool("dry_run", rc.config.DryRun).
		Msg("starting catalog reconciliation")

	expected, dangling, err := rc.expectedKeys(ctx)
	if err != nil {
		report.setError(err)
		report.Duration = time.Since(start)
		log.Error().Err(err).Msg("failed to build expected object set")
		reconcileRunsTotal.WithLabelValues("error").Inc()
		return report
	}
	report.ExpectedObjects = int64(len(expected))

	objects, err := rc.svc.blobs.List(ctx, "")
	if err != nil {
		report.setError(err)
		report.Duration = time.Since(start)
		log.Error().Err(err).Msg("failed to list object store")
		reconcileRunsTotal.WithLabelValues("error").Inc()
		return report
	}

	graceCutoff := time.Now().Add(-rc.config.GracePeriod)
	found := make(map[string]bool, len(expected))

	for _, obj := range objects {
		report.TotalObjects++

		if expected[obj.Key] {
			found[obj.Key] = true
			continue
		}

		// Not referenced by any document: an orphan.
		if obj.LastModified.After(graceCutoff) {
			report.OrphansSkipped++
			log.Debug().
				Str("key", obj.Key).
				Time("last_modified", obj.LastModified).
				Msg("skipping orphan object (within grace period)")
			continue
		}

		if rc.config.DryRun {
			log.Info().
				Str("key", obj.Key).
				Int64("size", obj.Size).
				Msg("[DRY-RUN] would delete orphan object")
			report.OrphansDeleted++
			continue
		}

		if err := rc.svc.blobs.Delete(ctx, obj.Key); err != nil {
			log.Warn().Err(err).Str("key", obj.Key).Msg("failed to delete orphan object")
			continue
		}
		report.OrphansDeleted++
	}

	// Expected but absent: the catalog points at bytes that are gone.
	for key := range expected {
		if !found[key] {
			dangling = append(dangling, key)
		}
	}
	report.DanglingPointers = dangling
	report.Duration = time.Since(start)

	log.Info().
		Int64("total_objects", report.TotalObjects).
		Int64("expected_objects", report.ExpectedObjects).
		Int64("orphans_deleted", report.OrphansDeleted).
		Int64("orphans_skipped", report.OrphansSkipped).
		Int("dangling_pointers", len(report.DanglingPointers)).
		Dur("duration", report.Duration).
		Msg("catalog reconciliation complete")
	reconcileRunsTotal.WithLabelValues("ok").Inc()

	rc.mu.Lock()
	rc.lastRunTime = time.Now()
	rc.lastReport = report
	rc.mu.Unlock()

	return report
}

// runPeriodic runs reconciliation on a schedule.
func (rc *Reconciler) runPeriodic(ctx context.Context) {
	defer close(rc.doneCh)

	ticker := time.NewTicker(rc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.RunOnce(ctx)
		case <-rc.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// GetLastReport returns the most recent reconciliation report.
func (rc *Reconciler) GetLastReport() *ReconcileReport {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.lastReport
}

// IsRunning reports whether a sweep is currently in progress.
func (rc *Reconciler) IsRunning() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.isRunning
}
