// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tartil-io/tartil/pkg/config"
	"github.com/tartil-io/tartil/pkg/logger"
	"github.com/tartil-io/tartil/pkg/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the recitation and chapter catalogs from a JSON file",
	Long: `Seed the catalog store with the fixed recitation and chapter
catalogs. Existing entries with the same identity are overwritten;
reciter documents are never touched.`,
	Run: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	f := seedCmd.Flags()
	f.String("seed_file", "seed.json", "Path to the seed JSON file")
	f.String("db_driver", "postgres", "Catalog store driver (postgres, memory)")
	f.String("db_dsn", "", "Catalog database connection string")

	viper.BindPFlags(f)
}

func runSeed(cmd *cobra.Command, args []string) {
	config.Load("serve", false)
	opts := loadServeOpts(cmd)

	ctx := cmd.Context()
	f := NewFlagLoader(cmd)

	seedFile := config.ResolvePath(f.String("seed_file"))
	seed, err := types.LoadSeedFromFile(seedFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", seedFile).Msg("failed to load seed file")
	}

	store := openCatalogStore(ctx, opts)
	defer store.Close()

	for _, rec := range seed.Recitations {
		if err := store.PutRecitation(ctx, rec); err != nil {
			logger.Fatal().Err(err).Str("slug", rec.Slug).Msg("failed to seed recitation")
		}
	}
	for _, ch := range seed.Chapters {
		if err := store.PutChapter(ctx, ch); err != nil {
			logger.Fatal().Err(err).Int("number", ch.Number).Msg("failed to seed chapter")
		}
	}

	logger.Info().
		Str("file", seedFile).
		Int("recitations", len(seed.Recitations)).
		Int("chapters", len(seed.Chapters)).
		Msg("catalog seeded")
}
