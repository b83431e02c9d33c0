// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFromFile(t *testing.T) {
	t.Parallel()

	t.Run("assigns missing ids", func(t *testing.T) {
		t.Parallel()
		path := writeSeed(t, `{
			"recitations": [{"slug": "hafs-an-asim", "englishName": "Hafs an Asim"}],
			"chapters": [{"number": 1, "slug": "al-fatihah"}, {"number": 2, "slug": "al-baqarah"}]
		}`)

		cfg, err := LoadSeedFromFile(path)
		require.NoError(t, err)
		require.Len(t, cfg.Recitations, 1)
		require.Len(t, cfg.Chapters, 2)
		assert.NotEqual(t, uuid.Nil, cfg.Recitations[0].ID)
		assert.NotEqual(t, uuid.Nil, cfg.Chapters[0].ID)
	})

	t.Run("rejects out-of-range chapter", func(t *testing.T) {
		t.Parallel()
		path := writeSeed(t, `{"chapters": [{"number": 115, "slug": "bogus"}]}`)

		_, err := LoadSeedFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("rejects duplicate chapter numbers", func(t *testing.T) {
		t.Parallel()
		path := writeSeed(t, `{"chapters": [{"number": 1, "slug": "a"}, {"number": 1, "slug": "b"}]}`)

		_, err := LoadSeedFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate chapter number")
	})

	t.Run("rejects duplicate recitation slugs", func(t *testing.T) {
		t.Parallel()
		path := writeSeed(t, `{"recitations": [{"slug": "x"}, {"slug": "x"}]}`)

		_, err := LoadSeedFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate recitation slug")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadSeedFromFile(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})
}
