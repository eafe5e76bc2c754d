// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
)

// SiteStore manages sites.
type SiteStore struct {
	db *sql.DB
}

// NewSiteStore creates a new SiteStore.
func NewSiteStore(db *sql.DB) *SiteStore {
	return &SiteStore{db: db}
}

const siteColumns = `id, name, config, navbar, footer, theme, created_at, updated_at`

// scanSite scans a row into a Site struct.
func scanSite(scanner interface{ Scan(...any) error }) (*models.Site, error) {
	var s models.Site
	err := scanner.Scan(&s.ID, &s.Name, &s.Config, &s.Navbar, &s.Footer, &s.Theme, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a site together with its root page and the root page's
// first draft.
func (s *SiteStore) Create(ctx context.Context, name string) (*models.Site, *models.Resource, error) {
	var (
		site *models.Site
		root *models.Resource
	)
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		site, err = scanSite(tx.QueryRowContext(ctx,
			`INSERT INTO sites (id, name) VALUES ($1, $2) RETURNING `+siteColumns,
			uuid.Must(uuid.NewV7()), name,
		))
		if err != nil {
			return fmt.Errorf("create site: %w", err)
		}

		blob, err := createBlob(ctx, tx, content.NewRootPage(name))
		if err != nil {
			return err
		}
		root, err = scanResource(tx.QueryRowContext(ctx, `
			INSERT INTO resources (id, site_id, parent_id, type, title, permalink, draft_blob_id)
			VALUES ($1, $2, NULL, $3, $4, '', $5)
			RETURNING `+resourceColumns,
			uuid.Must(uuid.NewV7()), site.ID, models.ResourceTypeRootPage, name, blob.ID,
		))
		if err != nil {
			return fmt.Errorf("create root page: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return site, root, nil
}

// FindByID returns a site or models.ErrNotFound.
func (s *SiteStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find site by id: %w", err)
	}
	return site, nil
}

// List returns all sites ordered by name.
func (s *SiteStore) List(ctx context.Context) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	return sites, rows.Err()
}

// SiteSettings are the JSON configuration documents of a site. Nil fields
// are left unchanged by UpdateSettings.
type SiteSettings struct {
	Config json.RawMessage
	Navbar json.RawMessage
	Footer json.RawMessage
	Theme  json.RawMessage
}

// UpdateSettings replaces the given JSON documents of a site.
func (s *SiteStore) UpdateSettings(ctx context.Context, id uuid.UUID, in SiteSettings) (*models.Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx, `
		UPDATE sites SET
			config = COALESCE($2::jsonb, config),
			navbar = COALESCE($3::jsonb, navbar),
			footer = COALESCE($4::jsonb, footer),
			theme = COALESCE($5::jsonb, theme),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+siteColumns,
		id, nullJSON(in.Config), nullJSON(in.Navbar), nullJSON(in.Footer), nullJSON(in.Theme),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update site settings: %w", err)
	}
	return site, nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
