package migration

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/store"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	resources map[uuid.UUID]*models.Resource
	drafts    map[uuid.UUID][]byte
	// rewriteErr makes RewriteDraft fail for specific resources.
	rewriteErr map[uuid.UUID]error
	writes     int
	pages      int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		resources:  map[uuid.UUID]*models.Resource{},
		drafts:     map[uuid.UUID][]byte{},
		rewriteErr: map[uuid.UUID]error{},
	}
}

func (f *fakeSource) add(parent *models.Resource, typ models.ResourceType, title, permalink string, draft []byte) *models.Resource {
	r := &models.Resource{
		ID:        uuid.Must(uuid.NewV7()),
		Type:      typ,
		Title:     title,
		Permalink: permalink,
	}
	if parent != nil {
		r.SiteID = parent.SiteID
		r.ParentID = &parent.ID
	} else {
		r.SiteID = uuid.New()
	}
	f.resources[r.ID] = r
	f.drafts[r.ID] = draft
	return r
}

func (f *fakeSource) Candidates(_ context.Context, filter store.CandidateFilter) ([]store.Candidate, error) {
	f.pages++
	ids := make([]uuid.UUID, 0, len(f.resources))
	for id := range f.resources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var out []store.Candidate
	for _, id := range ids {
		if id.String() <= filter.After.String() {
			continue
		}
		r := f.resources[id]
		if len(filter.Types) > 0 && !containsType(filter.Types, r.Type) {
			continue
		}
		if filter.Layout != "" {
			doc, err := content.Parse(f.drafts[id])
			if err != nil || doc.Layout() != filter.Layout {
				continue
			}
		}
		out = append(out, store.Candidate{Resource: *r, Draft: f.drafts[id]})
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func containsType(types []models.ResourceType, t models.ResourceType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (f *fakeSource) RewriteDraft(_ context.Context, id uuid.UUID, fn func(*content.Document) (*content.Document, error)) (bool, error) {
	if err := f.rewriteErr[id]; err != nil {
		return false, err
	}
	doc, err := content.Parse(f.drafts[id])
	if err != nil {
		return false, &parseError{err: err}
	}
	next, err := fn(doc)
	if err != nil {
		return false, err
	}
	if next.Equal(doc) {
		return false, nil
	}
	f.drafts[id] = next.Bytes()
	f.writes++
	return true, nil
}

func (f *fakeSource) IndexPageState(_ context.Context, parentID uuid.UUID) (store.IndexState, *models.Resource, error) {
	for _, r := range f.resources {
		if r.ParentID != nil && *r.ParentID == parentID && r.Type == models.ResourceTypeIndexPage {
			return store.IndexPersisted, r, nil
		}
	}
	return store.IndexSynthesized, nil, nil
}

func (f *fakeSource) CreateIndexPage(_ context.Context, container *models.Resource) (*models.Resource, error) {
	return f.add(container, models.ResourceTypeIndexPage, container.Title, models.IndexPagePermalink,
		store.DefaultIndexPage(container).Bytes()), nil
}

// fakeAudit collects audit entries.
type fakeAudit struct {
	entries []store.MigrationLogEntry
}

func (a *fakeAudit) Log(_ context.Context, e store.MigrationLogEntry) {
	a.entries = append(a.entries, e)
}

func mustParseID(t interface{ Fatalf(string, ...any) }, s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	return id
}
