// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tartil-io/tartil/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "tartil",
	Short: "Tartil - recitation catalog synchronization engine",
	Long: `Tartil keeps a catalog of reciters and their audio recordings in sync
with an S3-compatible object store. It serves the catalog API, streams
consolidated archives, and reconciles the two stores.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.FileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
