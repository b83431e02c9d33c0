// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tartil-io/tartil/pkg/api"
	"github.com/tartil-io/tartil/pkg/blob"
	"github.com/tartil-io/tartil/pkg/catalog"
	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/catalog/db/memory"
	"github.com/tartil-io/tartil/pkg/catalog/db/postgres"
	"github.com/tartil-io/tartil/pkg/config"
	"github.com/tartil-io/tartil/pkg/debug"
	"github.com/tartil-io/tartil/pkg/logger"
)

// ServeOpts holds the serve command configuration.
type ServeOpts struct {
	HTTPAddr       string
	DebugAddr      string
	LogLevel       string
	MaxUploadBytes int64

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int

	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PathStyle     bool
	S3PublicBaseURL string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CanonicalRecitation string
	PlaceholderPhotoURL string
	ArchivePrefix       string

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration
	ReconcileDryRun   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog API server",
	Long: `Start the Tartil catalog server that handles:
- Reciter registration and catalog queries
- Batch audio uploads into the object store
- On-the-fly consolidated archive streaming
- Periodic catalog/object-store reconciliation`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("http_addr", ":8080", "API listen address")
	f.String("debug_addr", ":8085", "Debug/metrics listen address")
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")
	f.Int64("max_upload_bytes", 64<<20, "In-memory cap per multipart upload request, larger parts spill to disk")

	f.String("db_driver", "postgres", "Catalog store driver (postgres, memory)")
	f.String("db_dsn", "", "Catalog database connection string")
	f.Int("db_max_open_conns", 25, "Maximum open database connections")
	f.Int("db_max_idle_conns", 5, "Maximum idle database connections")

	f.String("s3_endpoint", "", "S3-compatible endpoint URL (empty uses AWS)")
	f.String("s3_region", "us-east-1", "Object store region")
	f.String("s3_bucket", "tartil-audio", "Bucket holding audio objects")
	f.String("s3_access_key", "", "Object store access key ID")
	f.String("s3_secret_key", "", "Object store secret key (use env var S3_SECRET_KEY)")
	f.Bool("s3_path_style", false, "Use path-style object addressing")
	f.String("s3_public_base_url", "", "Public base URL for object links (e.g. a CDN)")

	f.Bool("redis_enabled", false, "Enable the redis reciter cache")
	f.String("redis_addr", "localhost:6379", "Redis address")
	f.String("redis_password", "", "Redis password")
	f.Int("redis_db", 0, "Redis database number")
	f.Duration("cache_ttl", catalog.DefaultCacheTTL, "Reciter cache TTL")

	f.String("canonical_recitation", "", "Canonical recitation slug (empty uses the default)")
	f.String("placeholder_photo_url", "", "Photo URL assigned to reciters without one")
	f.String("archive_prefix", "archives", "Object prefix for consolidated archives")

	f.Duration("reconcile_interval", 0, "Periodic reconciliation interval (0 disables)")
	f.Duration("reconcile_grace", time.Hour, "Grace period before orphan objects are deleted")
	f.Bool("reconcile_dry_run", false, "Report orphans without deleting them")

	viper.BindPFlags(f)
}

func loadServeOpts(cmd *cobra.Command) ServeOpts {
	f := NewFlagLoader(cmd)

	secretKey := f.String("s3_secret_key")
	if secretKey == "" {
		secretKey = os.Getenv("S3_SECRET_KEY")
	}

	return ServeOpts{
		HTTPAddr:       f.String("http_addr"),
		DebugAddr:      f.String("debug_addr"),
		LogLevel:       f.String("log_level"),
		MaxUploadBytes: f.Int64("max_upload_bytes"),

		DBDriver:       f.String("db_driver"),
		DBDSN:          f.String("db_dsn"),
		DBMaxOpenConns: f.Int("db_max_open_conns"),
		DBMaxIdleConns: f.Int("db_max_idle_conns"),

		S3Endpoint:      f.String("s3_endpoint"),
		S3Region:        f.String("s3_region"),
		S3Bucket:        f.String("s3_bucket"),
		S3AccessKey:     f.String("s3_access_key"),
		S3SecretKey:     secretKey,
		S3PathStyle:     f.Bool("s3_path_style"),
		S3PublicBaseURL: f.String("s3_public_base_url"),

		RedisEnabled:  f.Bool("redis_enabled"),
		RedisAddr:     f.String("redis_addr"),
		RedisPassword: f.String("redis_password"),
		RedisDB:       f.Int("redis_db"),
		CacheTTL:      f.Duration("cache_ttl"),

		CanonicalRecitation: f.String("canonical_recitation"),
		PlaceholderPhotoURL: f.String("placeholder_photo_url"),
		ArchivePrefix:       f.String("archive_prefix"),

		ReconcileInterval: f.Duration("reconcile_interval"),
		ReconcileGrace:    f.Duration("reconcile_grace"),
		ReconcileDryRun:   f.Bool("reconcile_dry_run"),
	}
}

// openCatalogStore opens the configured catalog store, wrapped with
// query metrics. The postgres driver runs migrations on startup.
func openCatalogStore(ctx context.Context, opts ServeOpts) db.Store {
	switch db.Driver(opts.DBDriver) {
	case db.DriverMemory:
		logger.Warn().Msg("using in-memory catalog store, data will not survive restarts")
		return db.WithMetrics(memory.New())
	case db.DriverPostgres:
		cfg := db.DefaultConfig(db.DriverPostgres)
		cfg.DSN = opts.DBDSN
		if opts.DBMaxOpenConns > 0 {
			cfg.MaxOpenConns = opts.DBMaxOpenConns
		}
		if opts.DBMaxIdleConns > 0 {
			cfg.MaxIdleConns = opts.DBMaxIdleConns
		}

		store, err := postgres.New(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open catalog database")
		}
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to run catalog migrations")
		}
		return db.WithMetrics(store)
	default:
		logger.Fatal().Str("driver", opts.DBDriver).Msg("unknown catalog store driver")
		return nil
	}
}

func openBlobStore(ctx context.Context, opts ServeOpts) blob.Store {
	blobs, err := blob.NewS3(ctx, blob.S3Config{
		Endpoint:        opts.S3Endpoint,
		Region:          opts.S3Region,
		Bucket:          opts.S3Bucket,
		AccessKeyID:     opts.S3AccessKey,
		SecretAccessKey: opts.S3SecretKey,
		PathStyle:       opts.S3PathStyle,
		PublicBaseURL:   opts.S3PublicBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open object store")
	}
	return blobs
}

func runServe(cmd *cobra.Command, args []string) {
	config.Load("serve", false)
	opts := loadServeOpts(cmd)
	applyLogLevel(opts.LogLevel)

	debug.SetNotReady()
	ctx := cmd.Context()

	store := openCatalogStore(ctx, opts)
	defer store.Close()

	blobs := openBlobStore(ctx, opts)
	defer blobs.Close()

	var svcOpts []catalog.Option
	if opts.RedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		defer client.Close()
		svcOpts = append(svcOpts, catalog.WithCache(catalog.NewReciterCache(client, opts.CacheTTL)))
		logger.Info().Str("redis_addr", opts.RedisAddr).Msg("reciter cache enabled")
	}

	svc, err := catalog.NewService(store, blobs, catalog.Config{
		CanonicalRecitationSlug: opts.CanonicalRecitation,
		PlaceholderPhotoURL:     opts.PlaceholderPhotoURL,
		ArchivePrefix:           opts.ArchivePrefix,
	}, svcOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build catalog engine")
	}

	reconciler := catalog.NewReconciler(catalog.ReconcilerConfig{
		Interval:    opts.ReconcileInterval,
		GracePeriod: opts.ReconcileGrace,
		DryRun:      opts.ReconcileDryRun,
	}, svc)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	debugServer := &http.Server{Addr: opts.DebugAddr, Handler: debug.Mux()}
	go func() {
		logger.Info().Str("addr", opts.DebugAddr).Msg("debug server listening")
		if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("debug server failed")
		}
	}()

	apiServer := api.New(svc, reconciler, api.Config{
		Addr:           opts.HTTPAddr,
		MaxUploadBytes: opts.MaxUploadBytes,
	})
	go func() {
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("api server failed")
		}
	}()

	debug.SetReady()
	waitForShutdown()

	debug.SetNotReady()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api server shutdown incomplete")
	}
	_ = debugServer.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func applyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		logger.Warn().Str("level", level).Msg("unknown log level, keeping default")
		return
	}
	logger.SetLevel(lvl)
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
