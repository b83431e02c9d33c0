// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"fmt"
	"strings"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

// whereClause compiles a db.Filter into a SQL predicate over the
// reciters table (aliased r). Returns the clause without a leading
// WHERE, plus its positional arguments starting at $1.
func whereClause(f *db.Filter) (string, []any) {
	if f == nil {
		return "", nil
	}

	var clauses []string
	var args []any
	next := func() int { return len(args) + 1 }

	if f.Search != nil {
		var or []string
		if f.Search.English != "" {
			or = append(or, fmt.Sprintf("r.doc->>'englishName' ~* $%d", next()))
			args = append(args, f.Search.English)
		}
		if f.Search.Arabic != "" {
			or = append(or, fmt.Sprintf("r.doc->>'arabicName' ~* $%d", next()))
			args = append(args, f.Search.Arabic)
		}
		if len(or) > 0 {
			clauses = append(clauses, "("+strings.Join(or, " OR ")+")")
		}
	}

	if f.Assignment != nil {
		cond := fmt.Sprintf("(a->>'recitationId')::uuid = $%d", next())
		args = append(args, f.Assignment.RecitationID)
		switch f.Assignment.Completeness {
		case db.CompletenessComplete:
			cond += fmt.Sprintf(" AND jsonb_array_length(coalesce(a->'audioFiles', '[]'::jsonb)) = %d", types.TotalChapters)
		case db.CompletenessVarious:
			cond += fmt.Sprintf(" AND jsonb_array_length(coalesce(a->'audioFiles', '[]'::jsonb)) <> %d", types.TotalChapters)
		}
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(coalesce(r.doc->'recitations', '[]'::jsonb)) a WHERE %s)", cond))
	}

	if f.IsTopReciter != nil {
		clauses = append(clauses, fmt.Sprintf("coalesce((r.doc->>'isTopReciter')::boolean, false) = $%d", next()))
		args = append(args, *f.IsTopReciter)
	}

	return strings.Join(clauses, " AND "), args
}

// orderClause compiles sort fields into an ORDER BY expression. Field
// names arrive pre-allow-listed by the query composer; anything
// unrecognized here is skipped as well.
func orderClause(fields []db.SortField) string {
	var parts []string
	for _, f := range fields {
		var expr string
		switch f.Field {
		case "arabicName":
			expr = "r.doc->>'arabicName'"
		case "totalViewers":
			expr = "(r.doc->>'totalViewers')::bigint"
		case "number":
			expr = "r.number"
		case "totalRecitations":
			expr = "(r.doc->>'totalRecitations')::bigint"
		default:
			continue
		}
		if f.Desc {
			expr += " DESC"
		}
		parts = append(parts, expr)
	}
	if len(parts) == 0 {
		return "r.number"
	}
	return strings.Join(parts, ", ")
}
