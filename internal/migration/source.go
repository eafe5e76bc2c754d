// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package migration

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/store"
)

// DBSource is the PostgreSQL-backed Source.
type DBSource struct {
	db        *sql.DB
	blobs     *store.BlobStore
	resources *store.ResourceStore
}

// NewDBSource creates a Source over the given database.
func NewDBSource(db *sql.DB) *DBSource {
	return &DBSource{
		db:        db,
		blobs:     store.NewBlobStore(db, nil),
		resources: store.NewResourceStore(db),
	}
}

func (s *DBSource) Candidates(ctx context.Context, filter store.CandidateFilter) ([]store.Candidate, error) {
	return s.blobs.ListDraftCandidates(ctx, filter)
}

// RewriteDraft runs fn on the current draft in one transaction per
// resource, so a concurrent edit is never overwritten with stale content.
func (s *DBSource) RewriteDraft(ctx context.Context, resourceID uuid.UUID, fn func(*content.Document) (*content.Document, error)) (bool, error) {
	changed := false
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		siteID, data, err := s.blobs.DraftForUpdate(ctx, tx, resourceID)
		if err != nil {
			return err
		}
		doc, err := content.Parse(data)
		if err != nil {
			return &parseError{err: err}
		}
		next, err := fn(doc)
		if err != nil {
			return err
		}
		if next == nil || next.Equal(doc) {
			return nil
		}
		changed = true
		return s.blobs.UpdateBlobByID(ctx, tx, store.UpdateBlobParams{
			PageID:  resourceID,
			SiteID:  siteID,
			Content: next,
		})
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (s *DBSource) IndexPageState(ctx context.Context, parentID uuid.UUID) (store.IndexState, *models.Resource, error) {
	return s.resources.IndexPageState(ctx, parentID)
}

func (s *DBSource) CreateIndexPage(ctx context.Context, container *models.Resource) (*models.Resource, error) {
	return s.resources.CreateIndexPage(ctx, container)
}
