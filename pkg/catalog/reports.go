// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"

	"github.com/tartil-io/tartil/pkg/catalog/db"
	"github.com/tartil-io/tartil/pkg/types"
)

// IncompleteArchives lists the reciters that hold at least one
// assignment with no consolidated archive recorded.
func (s *Service) IncompleteArchives(ctx context.Context) ([]*types.Reciter, error) {
	reciters, err := s.db.RecitersWithMissingArchives(ctx)
	if err != nil {
		return nil, NewInternalError("query missing archives", err)
	}
	return reciters, nil
}

// MissingArchivesForReciter lists a reciter's archive-less assignments
// joined to recitation display fields, so an operator knows exactly
// which archives still have to be produced.
func (s *Service) MissingArchivesForReciter(ctx context.Context, reciterSlug string) ([]db.MissingArchive, error) {
	missing, err := s.db.MissingArchivesForReciter(ctx, reciterSlug)
	if err != nil {
		if errors.Is(err, db.ErrReciterNotFound) {
			return nil, NewNotFoundError("reciter %q not found", reciterSlug)
		}
		return nil, NewInternalError("query missing archives", err)
	}
	return missing, nil
}
