// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
)

// SeedSiteName is the name of the development site created by Seed.
const SeedSiteName = "Isomer Dev Site"

// Seed populates the database with a development site and its root page.
// It is a no-op when any site already exists.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sites").Scan(&count); err != nil {
		return fmt.Errorf("seed check sites: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	siteID, blobID, rootID := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO sites (id, name) VALUES ($1, $2)`, siteID, SeedSiteName); err != nil {
		return fmt.Errorf("seed insert site: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO blobs (id, content) VALUES ($1, $2)`,
		blobID, content.NewRootPage(SeedSiteName).Bytes()); err != nil {
		return fmt.Errorf("seed insert blob: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO resources (id, site_id, parent_id, type, title, permalink, draft_blob_id)
		VALUES ($1, $2, NULL, $3, $4, '', $5)
	`, rootID, siteID, models.ResourceTypeRootPage, SeedSiteName, blobID); err != nil {
		return fmt.Errorf("seed insert root page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with development site", "site_id", siteID, "root_id", rootID)
	return nil
}
