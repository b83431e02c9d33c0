// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads viper configuration files with the standard
// search paths. Values resolve with CLI flags first, then environment,
// then the config file.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// FileDirectory is the primary directory searched for config files,
// settable via the root --config_dir flag.
var FileDirectory string

// ResolvePath expands ~ and environment variables in a path.
func ResolvePath(path string) string {
	if path == "~" {
		if usr, err := user.Current(); err == nil {
			path = usr.HomeDir
		}
	} else if strings.HasPrefix(path, "~/") {
		if usr, err := user.Current(); err == nil {
			path = filepath.Join(usr.HomeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Load merges the named config file into viper. Returns false when the
// file was not found; a missing required file is fatal.
func Load(configFileName string, required bool) bool {
	viper.SetConfigName(configFileName)
	viper.AddConfigPath(ResolvePath(FileDirectory))
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.tartil")
	viper.AddConfigPath("/usr/local/etc/tartil/")
	viper.AddConfigPath("/etc/tartil/")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if required {
				log.Fatal().Msgf("Config file not found: %s", configFileName)
			}
			log.Info().Msgf("Config file not found: %s", configFileName)
			return false
		}

		if required {
			log.Fatal().Msgf("Failed to load required config file: %s", configFileName)
		}
		return false
	}
	log.Info().Msgf("Loaded config file: %s", viper.ConfigFileUsed())

	return true
}
