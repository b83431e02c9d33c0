// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import "github.com/prometheus/client_golang/prometheus"

var (
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tartil_audio_uploads_total",
			Help: "Audio file uploads by outcome",
		},
		[]string{"outcome"}, // uploaded, skipped, failed
	)

	deletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tartil_cascade_deletes_total",
			Help: "Cascade delete operations by granularity",
		},
		[]string{"granularity"}, // reciter, recitation, chapter
	)

	deleteWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tartil_delete_consistency_warnings_total",
			Help: "Object deletions that failed during a cascade",
		},
	)

	archiveStreamsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tartil_archive_streams_total",
			Help: "On-the-fly archive streams started",
		},
	)

	archiveBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tartil_archive_stream_bytes_total",
			Help: "Bytes written into streamed archives",
		},
	)

	reconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tartil_reconcile_runs_total",
			Help: "Reconciliation sweeps by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		uploadsTotal,
		deletesTotal,
		deleteWarningsTotal,
		archiveStreamsTotal,
		archiveBytesTotal,
		reconcileRunsTotal,
	)
}
