// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "github.com/google/uuid"

// Chapter is one of the 114 textual divisions audio files are keyed by.
type Chapter struct {
	ID          uuid.UUID `json:"id"`
	Number      int       `json:"number"`
	Slug        string    `json:"slug"`
	ArabicName  string    `json:"arabicName"`
	EnglishName string    `json:"englishName"`
	PageNumber  int       `json:"pageNumber"`

	// Verses are opaque to the catalog engine; detail projections drop
	// them to keep responses small.
	Verses []Verse `json:"verses,omitempty"`
}

// Verse is a single verse record inside a chapter.
type Verse struct {
	ID          int    `json:"id"`
	TextArabic  string `json:"textArabic"`
	TextEnglish string `json:"textEnglish"`
}
