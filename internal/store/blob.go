// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
)

// View selects which blob of a resource a read wants. Editors read the
// draft; visitors read the published snapshot. Every read declares one.
type View int

const (
	ViewDraft View = iota
	ViewPublished
)

func (v View) String() string {
	if v == ViewPublished {
		return "published"
	}
	return "draft"
}

// PublishedCache caches published blob content by resource id. Only
// published reads go through it; drafts are always read from the database.
type PublishedCache interface {
	Get(ctx context.Context, resourceID uuid.UUID) ([]byte, bool)
	Set(ctx context.Context, resourceID uuid.UUID, data []byte)
	Invalidate(ctx context.Context, resourceID uuid.UUID)
}

// BlobStore reads and writes page content blobs.
type BlobStore struct {
	db    *sql.DB
	cache PublishedCache
}

// NewBlobStore creates a new BlobStore. cache may be nil.
func NewBlobStore(db *sql.DB, cache PublishedCache) *BlobStore {
	return &BlobStore{db: db, cache: cache}
}

const blobColumns = `b.id, b.content, b.created_at, b.updated_at`

// scanBlob scans a row into a Blob struct.
func scanBlob(scanner interface{ Scan(...any) error }) (*models.Blob, error) {
	var b models.Blob
	if err := scanner.Scan(&b.ID, &b.Content, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlobOfResource returns the draft or the published blob of a resource.
// A published read of a never-published resource returns
// models.ErrNotPublished.
func (s *BlobStore) GetBlobOfResource(ctx context.Context, resourceID uuid.UUID, view View) (*models.Blob, error) {
	if view == ViewPublished {
		return s.published(ctx, resourceID)
	}

	b, err := scanBlob(s.db.QueryRowContext(ctx, `
		SELECT `+blobColumns+`
		FROM resources r
		JOIN blobs b ON b.id = r.draft_blob_id
		WHERE r.id = $1
	`, resourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get draft blob: %w", err)
	}
	return b, nil
}

func (s *BlobStore) published(ctx context.Context, resourceID uuid.UUID) (*models.Blob, error) {
	var (
		versionID uuid.NullUUID
		b         models.Blob
		blobID    uuid.NullUUID
		data      []byte
		created   sql.NullTime
		updated   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT r.published_version_id, b.id, b.content, b.created_at, b.updated_at
		FROM resources r
		LEFT JOIN versions v ON v.id = r.published_version_id
		LEFT JOIN blobs b ON b.id = v.blob_id
		WHERE r.id = $1
	`, resourceID).Scan(&versionID, &blobID, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get published blob: %w", err)
	}
	if !versionID.Valid {
		return nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNotPublished)
	}

	b.ID, b.Content, b.CreatedAt, b.UpdatedAt = blobID.UUID, data, created.Time, updated.Time
	return &b, nil
}

// PublishedContent returns the published content bytes of a resource,
// served from the cache when one is configured.
func (s *BlobStore) PublishedContent(ctx context.Context, resourceID uuid.UUID) ([]byte, error) {
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, resourceID); ok {
			return data, nil
		}
	}
	b, err := s.published(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, resourceID, b.Content)
	}
	return b.Content, nil
}

// UpdateBlobParams identifies the draft to overwrite.
type UpdateBlobParams struct {
	PageID  uuid.UUID
	SiteID  uuid.UUID
	Content *content.Document
}

// UpdateBlobByID overwrites the draft blob of a page in place, inside the
// caller's transaction. It never touches versions or the published pointer.
// Writing to a blob that a version references fails with
// models.ErrBlobVersioned.
func (s *BlobStore) UpdateBlobByID(ctx context.Context, tx DBTX, p UpdateBlobParams) error {
	var blobID uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT draft_blob_id FROM resources WHERE id = $1 AND site_id = $2 FOR UPDATE
	`, p.PageID, p.SiteID).Scan(&blobID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("page %s in site %s: %w", p.PageID, p.SiteID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock draft: %w", err)
	}

	if err := ensureUnversioned(ctx, tx, blobID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE blobs SET content = $2, updated_at = NOW() WHERE id = $1
	`, blobID, p.Content.Bytes())
	if err != nil {
		return fmt.Errorf("update blob: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page %s: %w", p.PageID, models.ErrNoDraft)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE resources SET updated_at = NOW() WHERE id = $1`, p.PageID); err != nil {
		return fmt.Errorf("touch resource: %w", err)
	}
	return nil
}

// UpdateDraft runs UpdateBlobByID in its own transaction.
func (s *BlobStore) UpdateDraft(ctx context.Context, p UpdateBlobParams) error {
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.UpdateBlobByID(ctx, tx, p)
	})
}

// DraftForUpdate locks a resource row inside tx and returns its site and
// current draft content, for read-modify-write edits of the draft.
func (s *BlobStore) DraftForUpdate(ctx context.Context, tx DBTX, resourceID uuid.UUID) (siteID uuid.UUID, data []byte, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT r.site_id, b.content
		FROM resources r
		JOIN blobs b ON b.id = r.draft_blob_id
		WHERE r.id = $1
		FOR UPDATE OF r
	`, resourceID).Scan(&siteID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("lock draft: %w", err)
	}
	return siteID, data, nil
}

// ensureUnversioned fails with models.ErrBlobVersioned when any version
// points at blobID.
func ensureUnversioned(ctx context.Context, q DBTX, blobID uuid.UUID) error {
	var versioned bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM versions WHERE blob_id = $1)`, blobID,
	).Scan(&versioned)
	if err != nil {
		return fmt.Errorf("check blob versions: %w", err)
	}
	if versioned {
		return fmt.Errorf("blob %s: %w", blobID, models.ErrBlobVersioned)
	}
	return nil
}

// CreateBlob inserts a new blob.
func (s *BlobStore) CreateBlob(ctx context.Context, q DBTX, doc *content.Document) (*models.Blob, error) {
	return createBlob(ctx, q, doc)
}

func createBlob(ctx context.Context, q DBTX, doc *content.Document) (*models.Blob, error) {
	b, err := scanBlob(q.QueryRowContext(ctx, `
		INSERT INTO blobs AS b (id, content) VALUES ($1, $2)
		RETURNING `+blobColumns,
		uuid.Must(uuid.NewV7()), doc.Bytes(),
	))
	if err != nil {
		return nil, fmt.Errorf("create blob: %w", err)
	}
	return b, nil
}

// ReplaceDraft inserts a fresh blob and repoints the resource's draft at
// it. The previous draft blob is removed unless a version references it.
func (s *BlobStore) ReplaceDraft(ctx context.Context, tx DBTX, resourceID uuid.UUID, doc *content.Document) (*models.Blob, error) {
	var oldID uuid.UUID
	err := tx.QueryRowContext(ctx,
		`SELECT draft_blob_id FROM resources WHERE id = $1 FOR UPDATE`, resourceID,
	).Scan(&oldID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock draft: %w", err)
	}

	b, err := createBlob(ctx, tx, doc)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE resources SET draft_blob_id = $2, updated_at = NOW() WHERE id = $1`, resourceID, b.ID,
	); err != nil {
		return nil, fmt.Errorf("repoint draft: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM blobs
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM versions WHERE blob_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM resources WHERE draft_blob_id = $1)
	`, oldID); err != nil {
		return nil, fmt.Errorf("drop old draft: %w", err)
	}
	return b, nil
}

// DiscardDraft resets a resource's draft to a fresh copy of its published
// content. A never-published resource returns models.ErrNotPublished.
func (s *BlobStore) DiscardDraft(ctx context.Context, resourceID uuid.UUID) (*models.Blob, error) {
	var fresh *models.Blob
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			versionID uuid.NullUUID
			data      []byte
		)
		err := tx.QueryRowContext(ctx, `
			SELECT r.published_version_id, b.content
			FROM resources r
			LEFT JOIN versions v ON v.id = r.published_version_id
			LEFT JOIN blobs b ON b.id = v.blob_id
			WHERE r.id = $1
		`, resourceID).Scan(&versionID, &data)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("resource %s: %w", resourceID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get published content: %w", err)
		}
		if !versionID.Valid {
			return fmt.Errorf("resource %s: %w", resourceID, models.ErrNotPublished)
		}
		doc, err := content.Parse(data)
		if err != nil {
			return fmt.Errorf("published content of %s: %w", resourceID, err)
		}
		fresh, err = s.ReplaceDraft(ctx, tx, resourceID, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// Candidate is a resource and its draft content, as seen by a migration.
type Candidate struct {
	Resource models.Resource
	Draft    []byte
}

// CandidateFilter narrows the draft scan of ListDraftCandidates.
type CandidateFilter struct {
	Types  []models.ResourceType
	Layout content.Layout
	// After is the last resource id of the previous page.
	After uuid.UUID
	Limit int
}

// ListDraftCandidates returns one keyset page of resources and their draft
// content, ordered by resource id.
func (s *BlobStore) ListDraftCandidates(ctx context.Context, f CandidateFilter) ([]Candidate, error) {
	types := make([]string, len(f.Types))
	for i, t := range f.Types {
		types[i] = string(t)
	}
	if f.Limit <= 0 {
		f.Limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.site_id, r.parent_id, r.type, r.title, r.permalink, r.draft_blob_id,
		       r.published_version_id, r.created_at, r.updated_at, b.content
		FROM resources r
		JOIN blobs b ON b.id = r.draft_blob_id
		WHERE r.id > $1
		  AND (cardinality($2::text[]) = 0 OR r.type = ANY($2::text[]))
		  AND ($3 = '' OR b.content->>'layout' = $3)
		ORDER BY r.id
		LIMIT $4
	`, f.After, types, string(f.Layout), f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list draft candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		r := &c.Resource
		if err := rows.Scan(
			&r.ID, &r.SiteID, &r.ParentID, &r.Type, &r.Title, &r.Permalink, &r.DraftBlobID,
			&r.PublishedVersionID, &r.CreatedAt, &r.UpdatedAt, &c.Draft,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
