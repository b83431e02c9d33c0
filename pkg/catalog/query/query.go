// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package query builds catalog store filter fragments from raw request
// parameters. Everything here is pure; the caller merges fragments with
// logical AND and hands the result to the store.
package query

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

// alefClass matches any of the four alef variants so search is
// insensitive to hamza/madda diacritics.
const alefClass = "[اأإآ]"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	alefVariant   = regexp.MustCompile(alefClass)
)

// RecitationFilter returns the assignment fragment for a recitation
// slug, or nil when either argument is absent. The two virtual slugs
// select completeness categories; both are resolved against the
// canonical recitation id, which the caller looks up beforehand.
func RecitationFilter(recitationSlug string, recitationID uuid.UUID) *db.Filter {
	if recitationSlug == "" || recitationID == uuid.Nil {
		return nil
	}

	completeness := db.CompletenessAny
	switch recitationSlug {
	case types.CompletedRecitationsSlug:
		completeness = db.CompletenessComplete
	case types.VariousRecitationsSlug:
		completeness = db.CompletenessVarious
	}

	return &db.Filter{
		Assignment: &db.AssignmentCriteria{
			RecitationID: recitationID,
			Completeness: completeness,
		},
	}
}

// SearchFilter returns the name-search fragment, or nil for empty
// input. The text is whitespace-collapsed, trimmed, and quoted so user
// input never injects regexp syntax; the Arabic pattern additionally
// folds every alef to its equivalence class.
func SearchFilter(text string) *db.Filter {
	trimmed := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if trimmed == "" {
		return nil
	}

	quoted := regexp.QuoteMeta(trimmed)
	return &db.Filter{
		Search: &db.SearchCriteria{
			English: quoted,
			Arabic:  alefVariant.ReplaceAllLiteralString(quoted, alefClass),
		},
	}
}

// sortable is the allow-list of sortable fields. Tokens outside it are
// silently dropped so unknown fields never reach the store.
var sortable = map[string]bool{
	"arabicName":       true,
	"totalViewers":     true,
	"number":           true,
	"totalRecitations": true,
}

// SortSpec parses a comma-separated sort expression. A leading "-"
// selects descending order. An empty expression yields no sort.
func SortSpec(expr string) []db.SortField {
	if expr == "" {
		return nil
	}

	var out []db.SortField
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		desc := strings.HasPrefix(token, "-")
		field := strings.TrimPrefix(token, "-")
		if !sortable[field] {
			continue
		}
		out = append(out, db.SortField{Field: field, Desc: desc})
	}
	return out
}

// TopReciterFilter parses the tri-state top-reciter parameter. Only the
// literal strings "true" and "false" produce a fragment.
func TopReciterFilter(raw string) *db.Filter {
	switch raw {
	case "true":
		v := true
		return &db.Filter{IsTopReciter: &v}
	case "false":
		v := false
		return &db.Filter{IsTopReciter: &v}
	default:
		return nil
	}
}

// Compose AND-merges the given fragments, skipping nils. It always
// returns a non-nil filter so stores never special-case the empty query.
func Compose(fragments ...*db.Filter) *db.Filter {
	f := &db.Filter{}
	for _, frag := range fragments {
		f.And(frag)
	}
	return f
}
