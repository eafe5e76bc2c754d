// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package migration runs one-shot bulk rewrites of draft content across the
// resource tree. Every migration is idempotent and only ever writes drafts:
// versions and the published pointer are never touched.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/store"
)

// Outcome is the result of running a migration against one resource.
type Outcome string

const (
	OutcomeMigrated Outcome = "migrated"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result records what happened to one candidate.
type Result struct {
	ResourceID uuid.UUID
	Outcome    Outcome
	Reason     string
	Err        error
}

// Source is the data access a migration needs.
type Source interface {
	// Candidates returns one page of resources and their drafts, in id
	// order, starting after filter.After.
	Candidates(ctx context.Context, filter store.CandidateFilter) ([]store.Candidate, error)
	// RewriteDraft locks the resource, passes its current draft to fn and
	// stores the result in the same transaction when it differs. It
	// reports whether a write happened.
	RewriteDraft(ctx context.Context, resourceID uuid.UUID, fn func(*content.Document) (*content.Document, error)) (bool, error)
	IndexPageState(ctx context.Context, parentID uuid.UUID) (store.IndexState, *models.Resource, error)
	CreateIndexPage(ctx context.Context, container *models.Resource) (*models.Resource, error)
}

// Migration is a named, re-entrant transform over a candidate set.
type Migration interface {
	Name() string
	Description() string
	// Filter narrows the candidate scan; the runner fills in paging.
	Filter() store.CandidateFilter
	// Apply migrates one candidate. With apply false nothing is written
	// and the result says what would have happened.
	Apply(ctx context.Context, src Source, c store.Candidate, apply bool) Result
}

// SkipError marks a candidate as structurally ineligible.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skip: " + e.Reason }

// Skip returns a SkipError with the given reason.
func Skip(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// ReasonAlreadyMigrated is reported when a transform leaves content as is.
const ReasonAlreadyMigrated = "already migrated"

// ContentMigration rewrites the draft document of each candidate with a
// pure transform.
type ContentMigration struct {
	name        string
	description string
	filter      store.CandidateFilter
	transform   func(*content.Document) (*content.Document, error)
}

// NewContentMigration builds a ContentMigration. transform must return
// content equal to its input when run on already-migrated content, and a
// SkipError for structurally ineligible documents.
func NewContentMigration(name, description string, filter store.CandidateFilter, transform func(*content.Document) (*content.Document, error)) *ContentMigration {
	return &ContentMigration{name: name, description: description, filter: filter, transform: transform}
}

func (m *ContentMigration) Name() string                  { return m.name }
func (m *ContentMigration) Description() string           { return m.description }
func (m *ContentMigration) Filter() store.CandidateFilter { return m.filter }

// Transform applies the migration to a document.
func (m *ContentMigration) Transform(doc *content.Document) (*content.Document, error) {
	return m.transform(doc)
}

// Apply runs the transform on the candidate's draft.
func (m *ContentMigration) Apply(ctx context.Context, src Source, c store.Candidate, apply bool) Result {
	res := Result{ResourceID: c.Resource.ID}

	if !apply {
		doc, err := content.Parse(c.Draft)
		if err != nil {
			return skipped(res, fmt.Sprintf("draft is not a page document: %v", err))
		}
		next, err := m.transform(doc)
		return classify(res, doc, next, err, false)
	}

	var (
		before, after *content.Document
		transformErr  error
	)
	_, err := src.RewriteDraft(ctx, c.Resource.ID, func(doc *content.Document) (*content.Document, error) {
		before = doc
		after, transformErr = m.transform(doc)
		if transformErr != nil {
			return doc, nil
		}
		return after, nil
	})
	if err != nil {
		var perr *parseError
		if errors.As(err, &perr) {
			return skipped(res, fmt.Sprintf("draft is not a page document: %v", perr.err))
		}
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	return classify(res, before, after, transformErr, true)
}

// parseError wraps a draft that is not a valid page document.
type parseError struct{ err error }

func (e *parseError) Error() string { return "parse draft: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

func classify(res Result, before, after *content.Document, err error, applied bool) Result {
	var skip *SkipError
	switch {
	case errors.As(err, &skip):
		return skipped(res, skip.Reason)
	case err != nil:
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	case before.Equal(after):
		return skipped(res, ReasonAlreadyMigrated)
	}
	res.Outcome = OutcomeMigrated
	if !applied {
		res.Reason = "dry run"
	}
	return res
}

func skipped(res Result, reason string) Result {
	res.Outcome, res.Reason = OutcomeSkipped, reason
	return res
}
