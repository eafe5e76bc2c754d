// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"isomer/internal/models"
)

// VersionStore is the append-only ledger of published snapshots.
type VersionStore struct {
	db    *sql.DB
	cache PublishedCache
}

// NewVersionStore creates a new VersionStore. cache may be nil; when set it
// is invalidated on every promote.
func NewVersionStore(db *sql.DB, cache PublishedCache) *VersionStore {
	return &VersionStore{db: db, cache: cache}
}

const versionColumns = `id, resource_id, version_num, blob_id, published_at, published_by`

// scanVersion scans a row into a Version struct.
func scanVersion(scanner interface{ Scan(...any) error }) (*models.Version, error) {
	var v models.Version
	err := scanner.Scan(&v.ID, &v.ResourceID, &v.VersionNum, &v.BlobID, &v.PublishedAt, &v.PublishedBy)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Promote snapshots the current draft into a new version and makes it the
// published one. The draft content is copied into a fresh blob so the
// draft itself stays editable; the draft pointer is left unchanged.
// Promoting twice without an edit in between appends two identical
// versions.
func (s *VersionStore) Promote(ctx context.Context, resourceID uuid.UUID, publishedBy string) (*models.Version, error) {
	var v *models.Version
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		v, err = promote(ctx, tx, resourceID, publishedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, resourceID)
	}
	slog.Info("resource promoted", "resource_id", resourceID, "version", v.VersionNum)
	return v, nil
}

func promote(ctx context.Context, tx *sql.Tx, resourceID uuid.UUID, publishedBy string) (*models.Version, error) {
	r, err := findResource(ctx, tx, resourceID, true)
	if err != nil {
		return nil, err
	}

	snapshotID := uuid.Must(uuid.NewV7())
	res, err := tx.ExecContext(ctx, `
		INSERT INTO blobs (id, content)
		SELECT $1, content FROM blobs WHERE id = $2
	`, snapshotID, r.DraftBlobID)
	if err != nil {
		return nil, fmt.Errorf("snapshot draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNoDraft)
	}

	v, err := scanVersion(tx.QueryRowContext(ctx, `
		INSERT INTO versions (id, resource_id, version_num, blob_id, published_by)
		SELECT $1, $2, COALESCE(MAX(version_num), 0) + 1, $3, $4
		FROM versions WHERE resource_id = $2
		RETURNING `+versionColumns,
		uuid.Must(uuid.NewV7()), resourceID, snapshotID, publishedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE resources SET published_version_id = $2, updated_at = NOW() WHERE id = $1
	`, resourceID, v.ID); err != nil {
		return nil, fmt.Errorf("set published version: %w", err)
	}
	return v, nil
}

// FindByID returns a version or models.ErrNotFound.
func (s *VersionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find version: %w", err)
	}
	return v, nil
}

// Latest returns the newest version of a resource, or models.ErrNotFound
// if it was never published.
func (s *VersionStore) Latest(ctx context.Context, resourceID uuid.UUID) (*models.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE resource_id = $1
		ORDER BY version_num DESC
		LIMIT 1
	`, resourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("versions of %s: %w", resourceID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return v, nil
}

// ListByResource returns every version of a resource, newest first.
func (s *VersionStore) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]models.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE resource_id = $1
		ORDER BY version_num DESC
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// CountByResource returns how many versions a resource has.
func (s *VersionStore) CountByResource(ctx context.Context, resourceID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM versions WHERE resource_id = $1`, resourceID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return n, nil
}
