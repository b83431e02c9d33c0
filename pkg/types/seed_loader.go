// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// SeedConfig is the JSON structure for seeding the chapter and
// recitation catalogs.
type SeedConfig struct {
	Recitations []*Recitation `json:"recitations"`
	Chapters    []*Chapter    `json:"chapters"`
}

// LoadSeedFromFile loads a seed catalog from a JSON file, assigning IDs
// to entries that lack them and validating chapter numbering.
func LoadSeedFromFile(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var cfg SeedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse seed JSON: %w", err)
	}

	seen := make(map[int]bool, len(cfg.Chapters))
	for _, ch := range cfg.Chapters {
		if !ValidChapterNumber(ch.Number) {
			return nil, fmt.Errorf("chapter %q: number %d out of range [1,%d]", ch.Slug, ch.Number, TotalChapters)
		}
		if seen[ch.Number] {
			return nil, fmt.Errorf("duplicate chapter number %d", ch.Number)
		}
		seen[ch.Number] = true
		if ch.ID == uuid.Nil {
			ch.ID = uuid.New()
		}
	}

	slugs := make(map[string]bool, len(cfg.Recitations))
	for _, rec := range cfg.Recitations {
		if rec.Slug == "" {
			return nil, fmt.Errorf("recitation %q: empty slug", rec.EnglishName)
		}
		if slugs[rec.Slug] {
			return nil, fmt.Errorf("duplicate recitation slug %q", rec.Slug)
		}
		slugs[rec.Slug] = true
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
	}

	return &cfg, nil
}
