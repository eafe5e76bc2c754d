// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publisher drains the scheduled job queue. Each run takes one
// cutoff, promotes every resource whose publish time has passed, pushes
// the latest published file pages to the search index, and then clears
// every job at or before the cutoff whether or not its item succeeded.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"isomer/internal/content"
	"isomer/internal/extract"
	"isomer/internal/models"
	"isomer/internal/search"
	"isomer/internal/storage"
	"isomer/internal/store"
)

// PublishedBy is recorded on versions created by scheduled publishing.
const PublishedBy = "scheduler"

// DefaultConcurrency bounds how many items are staged at once.
const DefaultConcurrency = 4

// documentNamespace seeds the stable search document ids.
var documentNamespace = uuid.MustParse("8f6b2c1e-5d4a-4f0b-9c3e-7a1d2e3f4b5c")

// JobStore is the scheduled job queue.
type JobStore interface {
	DueResources(ctx context.Context, t models.JobType, cutoff time.Time) ([]uuid.UUID, error)
	DueDocuments(ctx context.Context, cutoff time.Time) ([]store.DueDocument, error)
	DeleteDue(ctx context.Context, t models.JobType, cutoff time.Time) (int64, error)
}

// Promoter turns a resource's draft into its published version.
type Promoter interface {
	Promote(ctx context.Context, resourceID uuid.UUID, publishedBy string) (*models.Version, error)
}

// PathResolver returns a resource's permalink segments below the root.
type PathResolver interface {
	PermalinkPath(ctx context.Context, id uuid.UUID) ([]string, error)
}

// AssetFetcher downloads the asset a page references.
type AssetFetcher interface {
	Fetch(ctx context.Context, ref string) (*storage.Object, error)
}

// Indexer is the external search index.
type Indexer interface {
	Authenticate(ctx context.Context) (string, error)
	AddDocuments(ctx context.Context, token string, docs []search.Document) error
}

// Deps are the collaborators of a Publisher. Assets and Index may be nil
// when object storage or the search index is not configured; due push
// jobs are then cleared without pushing anything.
type Deps struct {
	Jobs     JobStore
	Versions Promoter
	Paths    PathResolver
	Assets   AssetFetcher
	Index    Indexer
}

// Publisher runs the scheduled publishing pipeline.
type Publisher struct {
	deps        Deps
	siteURL     string
	now         func() time.Time
	concurrency int
}

// New creates a Publisher. siteBaseURL prefixes the URLs of pushed
// documents.
func New(deps Deps, siteBaseURL string) *Publisher {
	return &Publisher{
		deps:        deps,
		siteURL:     strings.TrimRight(siteBaseURL, "/"),
		now:         time.Now,
		concurrency: DefaultConcurrency,
	}
}

// WithClock replaces the time source used for the cutoff.
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// WithConcurrency sets how many items are staged in parallel.
func (p *Publisher) WithConcurrency(n int) *Publisher {
	if n > 0 {
		p.concurrency = n
	}
	return p
}

// RunResult summarises one run.
type RunResult struct {
	Cutoff    time.Time
	Published int
	Due       int
	Staged    int
	Dropped   int
	Pushed    int
	Deleted   int64
}

// Run executes one pass over the queue. The returned error is non-nil when
// the push step failed as a whole or an invariant was violated; per-item
// failures are logged and only counted.
func (p *Publisher) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{Cutoff: p.now()}

	if err := p.publishDue(ctx, &res); err != nil {
		return res, err
	}

	due, err := p.deps.Jobs.DueDocuments(ctx, res.Cutoff)
	if err != nil {
		return res, err
	}
	pushErr := p.push(ctx, due, &res)

	n, err := p.deps.Jobs.DeleteDue(ctx, models.JobTypePushDocument, res.Cutoff)
	res.Deleted += n
	if err != nil {
		return res, err
	}

	slog.Info("scheduled publish run finished",
		"cutoff", res.Cutoff,
		"published", res.Published,
		"due", res.Due,
		"staged", res.Staged,
		"dropped", res.Dropped,
		"pushed", res.Pushed,
		"deleted", res.Deleted,
	)
	return res, pushErr
}

// publishDue promotes every resource with a due PublishResource job, each
// in its own transaction, then clears those jobs.
func (p *Publisher) publishDue(ctx context.Context, res *RunResult) error {
	ids, err := p.deps.Jobs.DueResources(ctx, models.JobTypePublishResource, res.Cutoff)
	if err != nil {
		return err
	}

	for _, id := range ids {
		v, err := p.deps.Versions.Promote(ctx, id, PublishedBy)
		if errors.Is(err, models.ErrInvariant) {
			slog.Error("scheduled publish violated an invariant", "resource_id", id, "error", err)
			return fmt.Errorf("publish resource %s: %w", id, err)
		}
		if err != nil {
			slog.Warn("scheduled publish failed", "resource_id", id, "error", err)
			continue
		}
		res.Published++
		slog.Info("scheduled publish", "resource_id", id, "version", v.VersionNum)
	}

	n, err := p.deps.Jobs.DeleteDue(ctx, models.JobTypePublishResource, res.Cutoff)
	res.Deleted += n
	return err
}

// push stages and pushes the due documents. A failed push does not stop
// the jobs from being cleared.
func (p *Publisher) push(ctx context.Context, due []store.DueDocument, res *RunResult) error {
	res.Due = len(due)
	if len(due) == 0 {
		return nil
	}
	if p.deps.Index == nil || p.deps.Assets == nil {
		slog.Warn("search push not configured, clearing due jobs", "count", len(due))
		res.Dropped = len(due)
		return nil
	}

	docs := p.stage(ctx, due)
	res.Staged = len(docs)
	res.Dropped = len(due) - len(docs)
	if len(docs) == 0 {
		return nil
	}

	token, err := p.deps.Index.Authenticate(ctx)
	if err != nil {
		slog.Error("search index authentication failed, push aborted", "staged", len(docs), "error", err)
		return fmt.Errorf("push documents: %w", err)
	}
	if err := p.deps.Index.AddDocuments(ctx, token, docs); err != nil {
		slog.Error("search index push failed", "staged", len(docs), "error", err)
		return fmt.Errorf("push documents: %w", err)
	}
	res.Pushed = len(docs)
	return nil
}

// stage builds a search document per due item. Items that fail are
// logged and left out; the rest keep resource id order.
func (p *Publisher) stage(ctx context.Context, due []store.DueDocument) []search.Document {
	staged := make([]*search.Document, len(due))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, d := range due {
		i, d := i, d
		g.Go(func() error {
			doc, err := p.buildDocument(ctx, d)
			if err != nil {
				slog.Warn("search document dropped", "resource_id", d.ResourceID, "error", err)
				return nil
			}
			staged[i] = doc
			slog.Debug("search document staged", "resource_id", d.ResourceID, "document_id", doc.DocumentID)
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]search.Document, 0, len(due))
	for _, doc := range staged {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs
}

// ErrNotPushable is returned for pages that carry no asset to index.
var ErrNotPushable = errors.New("page has no indexable asset")

func (p *Publisher) buildDocument(ctx context.Context, d store.DueDocument) (*search.Document, error) {
	if d.VersionID == nil {
		return nil, fmt.Errorf("%w: resource was never published", ErrNotPushable)
	}

	page, err := content.Parse(d.Content)
	if err != nil {
		return nil, err
	}
	if l := page.Layout(); l != content.LayoutFile && l != content.LayoutLink {
		return nil, fmt.Errorf("%w: layout %q", ErrNotPushable, l)
	}
	meta, err := page.FileMeta()
	if err != nil {
		return nil, err
	}
	if meta.Ref == "" {
		return nil, fmt.Errorf("%w: empty ref", ErrNotPushable)
	}

	obj, err := p.deps.Assets.Fetch(ctx, meta.Ref)
	if err != nil {
		return nil, err
	}
	text, err := extract.Text(obj.ContentType, obj.Key, obj.Data)
	if err != nil {
		return nil, err
	}

	path, err := p.deps.Paths.PermalinkPath(ctx, d.ResourceID)
	if err != nil {
		return nil, err
	}

	title := meta.Title
	if title == "" {
		title = d.Title
	}
	categories := []string{}
	if meta.Category != "" {
		categories = append(categories, meta.Category)
	}
	tags := meta.Tagged
	if tags == nil {
		tags = []string{}
	}

	doc := &search.Document{
		DocumentID:    DocumentID(d.ResourceID, obj.Key),
		Title:         title,
		URL:           p.siteURL + "/" + strings.Join(path, "/"),
		Content:       text,
		ContentType:   extract.DetectType(obj.ContentType, obj.Key, obj.Data),
		Date:          meta.Date,
		CustomFilter1: tags,
		Categories:    categories,
	}
	if err := search.ValidateDocument(*doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DocumentID derives the search document id from the resource and the
// asset key, so pushing the same file for the same resource again replaces
// the earlier entry.
func DocumentID(resourceID uuid.UUID, assetKey string) string {
	return uuid.NewSHA1(documentNamespace, []byte(resourceID.String()+":"+assetKey)).String()
}
