// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "github.com/google/uuid"

// Well-known recitation slugs. The canonical recitation is the only one
// the reporting categories "complete" and "various" are resolved
// against; the other two are virtual slugs understood by the catalog
// query layer rather than real recitations.
const (
	CanonicalRecitationSlug  = "hafs-an-asim"
	CompletedRecitationsSlug = "full-holy-quran"
	VariousRecitationsSlug   = "various-recitations"
)

// Recitation is a top-level named reading style. Reciters reference
// recitations; they never own them.
type Recitation struct {
	ID             uuid.UUID `json:"id"`
	Slug           string    `json:"slug"`
	ArabicName     string    `json:"arabicName"`
	EnglishName    string    `json:"englishName"`
	TotalListeners int64     `json:"totalListeners"`
}
