// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"isomer/internal/models"
	"isomer/internal/store"
)

// DefaultPageSize is how many candidates are fetched per keyset page.
const DefaultPageSize = 200

// AuditLog persists per-resource outcomes. *store.MigrationLogStore
// satisfies it.
type AuditLog interface {
	Log(ctx context.Context, e store.MigrationLogEntry)
}

// Runner executes migrations candidate by candidate. A failing candidate
// is recorded and the batch moves on; only invariant violations stop a run.
type Runner struct {
	source   Source
	audit    AuditLog
	pageSize int
}

// NewRunner creates a Runner. audit may be nil.
func NewRunner(source Source, audit AuditLog) *Runner {
	return &Runner{source: source, audit: audit, pageSize: DefaultPageSize}
}

// WithPageSize overrides the keyset page size.
func (r *Runner) WithPageSize(n int) *Runner {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// Run executes m over every candidate. Nothing is written unless apply is
// true. The returned report covers every candidate seen, even when Run
// stops early with an error.
func (r *Runner) Run(ctx context.Context, m Migration, apply bool) (*Report, error) {
	report := &Report{Migration: m.Name(), DryRun: !apply}
	log := slog.With("migration", m.Name(), "dry_run", !apply)
	log.Info("migration started")

	filter := m.Filter()
	filter.Limit = r.pageSize
	filter.After = uuid.Nil

	for {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("migration %s: %w", m.Name(), err)
		}

		page, err := r.source.Candidates(ctx, filter)
		if err != nil {
			return report, fmt.Errorf("migration %s: load candidates after %s: %w", m.Name(), filter.After, err)
		}

		for _, c := range page {
			res := m.Apply(ctx, r.source, c, apply)
			report.add(res)
			r.record(ctx, log, m.Name(), res, !apply)

			if res.Outcome == OutcomeFailed && errors.Is(res.Err, models.ErrInvariant) {
				return report, fmt.Errorf("migration %s: resource %s: %w", m.Name(), res.ResourceID, res.Err)
			}
		}

		if len(page) < filter.Limit {
			break
		}
		filter.After = page[len(page)-1].Resource.ID
	}

	log.Info("migration finished",
		"migrated", report.Migrated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (r *Runner) record(ctx context.Context, log *slog.Logger, name string, res Result, dryRun bool) {
	switch res.Outcome {
	case OutcomeMigrated:
		log.Info("resource migrated", "resource_id", res.ResourceID, "reason", res.Reason)
	case OutcomeSkipped:
		log.Info("resource skipped", "resource_id", res.ResourceID, "reason", res.Reason)
	case OutcomeFailed:
		log.Error("resource failed", "resource_id", res.ResourceID, "error", res.Err)
	}

	if r.audit == nil {
		return
	}
	reason := res.Reason
	if res.Err != nil {
		reason = res.Err.Error()
	}
	r.audit.Log(ctx, store.MigrationLogEntry{
		Migration:  name,
		ResourceID: res.ResourceID,
		Outcome:    string(res.Outcome),
		Reason:     reason,
		DryRun:     dryRun,
	})
}
