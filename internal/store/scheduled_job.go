// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"isomer/internal/models"
)

// ScheduledJobStore manages pending scheduled jobs.
type ScheduledJobStore struct {
	db *sql.DB
}

// NewScheduledJobStore creates a new ScheduledJobStore.
func NewScheduledJobStore(db *sql.DB) *ScheduledJobStore {
	return &ScheduledJobStore{db: db}
}

const scheduledJobColumns = `resource_id, type, scheduled_at, created_at`

// scanScheduledJob scans a row into a ScheduledJob struct.
func scanScheduledJob(scanner interface{ Scan(...any) error }) (*models.ScheduledJob, error) {
	var j models.ScheduledJob
	if err := scanner.Scan(&j.ResourceID, &j.Type, &j.ScheduledAt, &j.CreatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// Schedule records a job for a resource. Scheduling the same (resource,
// type) again moves the existing row to the new time instead of adding a
// second one.
func (s *ScheduledJobStore) Schedule(ctx context.Context, resourceID uuid.UUID, t models.JobType, at time.Time) (*models.ScheduledJob, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: job type %q", models.ErrInvalidType, t)
	}
	j, err := scanScheduledJob(s.db.QueryRowContext(ctx, `
		INSERT INTO scheduled_jobs (resource_id, type, scheduled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, type) DO UPDATE SET scheduled_at = EXCLUDED.scheduled_at
		RETURNING `+scheduledJobColumns,
		resourceID, t, at.UTC(),
	))
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return nil, fmt.Errorf("resource %s: %w", resourceID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("schedule job: %w", err)
	}
	return j, nil
}

// Cancel removes a pending job. Returns models.ErrNotFound when there is
// nothing to cancel.
func (s *ScheduledJobStore) Cancel(ctx context.Context, resourceID uuid.UUID, t models.JobType) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scheduled_jobs WHERE resource_id = $1 AND type = $2`, resourceID, t)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s/%s: %w", resourceID, t, models.ErrNotFound)
	}
	return nil
}

// ListPending returns every pending job, soonest first.
func (s *ScheduledJobStore) ListPending(ctx context.Context) ([]models.ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledJobColumns+` FROM scheduled_jobs ORDER BY scheduled_at, resource_id`)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ScheduledJob
	for rows.Next() {
		j, err := scanScheduledJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// DueResources returns the resource ids of jobs of type t due at cutoff,
// in resource id order.
func (s *ScheduledJobStore) DueResources(ctx context.Context, t models.JobType, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_id FROM scheduled_jobs
		WHERE type = $1 AND scheduled_at <= $2
		ORDER BY resource_id
	`, t, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due job: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DueDocument is a resource due for a search index push, joined to its
// latest version. VersionID is nil when the resource was never published.
type DueDocument struct {
	ResourceID  uuid.UUID
	SiteID      uuid.UUID
	Title       string
	ScheduledAt time.Time
	VersionID   *uuid.UUID
	VersionNum  int
	Content     json.RawMessage
}

// DueDocuments returns the PushDocument jobs due at cutoff, each joined to
// the most recent version of its resource. One row per resource, in
// resource id order.
func (s *ScheduledJobStore) DueDocuments(ctx context.Context, cutoff time.Time) ([]DueDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (r.id)
		       r.id, r.site_id, r.title, j.scheduled_at, v.id, v.version_num, b.content
		FROM scheduled_jobs j
		JOIN resources r ON r.id = j.resource_id
		LEFT JOIN versions v ON v.resource_id = r.id
		LEFT JOIN blobs b ON b.id = v.blob_id
		WHERE j.type = $1 AND j.scheduled_at <= $2
		ORDER BY r.id, v.version_num DESC NULLS LAST, j.scheduled_at DESC
	`, models.JobTypePushDocument, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due documents: %w", err)
	}
	defer rows.Close()

	var docs []DueDocument
	for rows.Next() {
		var (
			d   DueDocument
			vID uuid.NullUUID
			num sql.NullInt64
		)
		if err := rows.Scan(&d.ResourceID, &d.SiteID, &d.Title, &d.ScheduledAt, &vID, &num, &d.Content); err != nil {
			return nil, fmt.Errorf("scan due document: %w", err)
		}
		if vID.Valid {
			d.VersionID = &vID.UUID
			d.VersionNum = int(num.Int64)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDue removes every job of type t scheduled at or before cutoff and
// returns how many rows went away.
func (s *ScheduledJobStore) DeleteDue(ctx context.Context, t models.JobType, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scheduled_jobs WHERE type = $1 AND scheduled_at <= $2`, t, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete due jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
