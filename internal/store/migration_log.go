// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// migration_log.go records per-resource outcomes of content migrations so
// an operator can audit a run after the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// MigrationLogStore handles migration audit log operations.
type MigrationLogStore struct {
	db *sql.DB
}

// NewMigrationLogStore creates a new MigrationLogStore.
func NewMigrationLogStore(db *sql.DB) *MigrationLogStore {
	return &MigrationLogStore{db: db}
}

// MigrationLogEntry is one audited outcome.
type MigrationLogEntry struct {
	ID         int64
	Migration  string
	ResourceID uuid.UUID
	Outcome    string
	Reason     string
	DryRun     bool
	LoggedAt   time.Time
}

// Log records an outcome. Failures are logged and otherwise ignored; the
// audit log must not fail a migration.
func (s *MigrationLogStore) Log(ctx context.Context, e MigrationLogEntry) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_log (migration, resource_id, outcome, reason, dry_run)
		VALUES ($1, $2, $3, $4, $5)
	`, e.Migration, e.ResourceID, e.Outcome, e.Reason, e.DryRun)
	if err != nil {
		slog.Warn("failed to log migration outcome",
			"migration", e.Migration,
			"resource_id", e.ResourceID,
			"outcome", e.Outcome,
			"error", err,
		)
	}
}

// RecentEntries returns the newest entries of one migration.
func (s *MigrationLogStore) RecentEntries(ctx context.Context, migration string, limit int) ([]MigrationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, migration, resource_id, outcome, reason, dry_run, logged_at
		FROM migration_log
		WHERE migration = $1
		ORDER BY logged_at DESC, id DESC
		LIMIT $2
	`, migration, limit)
	if err != nil {
		return nil, fmt.Errorf("query migration log: %w", err)
	}
	defer rows.Close()

	var entries []MigrationLogEntry
	for rows.Next() {
		var e MigrationLogEntry
		if err := rows.Scan(&e.ID, &e.Migration, &e.ResourceID, &e.Outcome, &e.Reason, &e.DryRun, &e.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan migration log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
