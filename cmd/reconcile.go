// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tartil-io/tartil/pkg/catalog"
	"github.com/tartil-io/tartil/pkg/config"
	"github.com/tartil-io/tartil/pkg/logger"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation sweep and exit",
	Long: `Compare the object store against the catalog once. Orphan objects
past the grace period are deleted (unless --dry_run); catalog entries
pointing at missing objects are reported.`,
	Run: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	f := reconcileCmd.Flags()
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")

	f.String("db_driver", "postgres", "Catalog store driver (postgres, memory)")
	f.String("db_dsn", "", "Catalog database connection string")

	f.String("s3_endpoint", "", "S3-compatible endpoint URL (empty uses AWS)")
	f.String("s3_region", "us-east-1", "Object store region")
	f.String("s3_bucket", "tartil-audio", "Bucket holding audio objects")
	f.String("s3_access_key", "", "Object store access key ID")
	f.String("s3_secret_key", "", "Object store secret key (use env var S3_SECRET_KEY)")
	f.Bool("s3_path_style", false, "Use path-style object addressing")

	f.Duration("reconcile_grace", time.Hour, "Grace period before orphan objects are deleted")
	f.Bool("dry_run", true, "Report orphans without deleting them")

	viper.BindPFlags(f)
}

func runReconcile(cmd *cobra.Command, args []string) {
	config.Load("serve", false)
	opts := loadServeOpts(cmd)
	applyLogLevel(opts.LogLevel)

	ctx := cmd.Context()
	f := NewFlagLoader(cmd)

	store := openCatalogStore(ctx, opts)
	defer store.Close()
	blobs := openBlobStore(ctx, opts)
	defer blobs.Close()

	svc, err := catalog.NewService(store, blobs, catalog.Config{
		CanonicalRecitationSlug: opts.CanonicalRecitation,
		PlaceholderPhotoURL:     opts.PlaceholderPhotoURL,
		ArchivePrefix:           opts.ArchivePrefix,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build catalog engine")
	}

	reconciler := catalog.NewReconciler(catalog.ReconcilerConfig{
		GracePeriod: f.Duration("reconcile_grace"),
		DryRun:      f.Bool("dry_run"),
	}, svc)

	report := reconciler.RunOnce(ctx)
	if report == nil || report.Error != nil {
		logger.Fatal().Msg("reconciliation failed")
	}

	fmt.Printf("objects:          %d\n", report.TotalObjects)
	fmt.Printf("expected:         %d\n", report.ExpectedObjects)
	fmt.Printf("orphans deleted:  %d\n", report.OrphansDeleted)
	fmt.Printf("orphans skipped:  %d\n", report.OrphansSkipped)
	fmt.Printf("dangling entries: %d\n", len(report.DanglingPointers))
	for _, p := range report.DanglingPointers {
		fmt.Printf("  %s\n", p)
	}
}
