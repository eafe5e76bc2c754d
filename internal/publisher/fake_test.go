package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"isomer/internal/models"
	"isomer/internal/search"
	"isomer/internal/storage"
	"isomer/internal/store"
)

type fakeJob struct {
	resourceID uuid.UUID
	typ        models.JobType
	at         time.Time
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs []fakeJob
	docs map[uuid.UUID]store.DueDocument
	// afterSelect runs once DueDocuments has read the queue.
	afterSelect func()
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{docs: make(map[uuid.UUID]store.DueDocument)}
}

func (f *fakeJobs) schedule(id uuid.UUID, t models.JobType, at time.Time) {
	f.jobs = append(f.jobs, fakeJob{resourceID: id, typ: t, at: at})
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}

func (f *fakeJobs) due(t models.JobType, cutoff time.Time) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, j := range f.jobs {
		if j.typ == t && !j.at.After(cutoff) && !seen[j.resourceID] {
			seen[j.resourceID] = true
			ids = append(ids, j.resourceID)
		}
	}
	sortIDs(ids)
	return ids
}

func (f *fakeJobs) DueResources(ctx context.Context, t models.JobType, cutoff time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due(t, cutoff), nil
}

func (f *fakeJobs) DueDocuments(ctx context.Context, cutoff time.Time) ([]store.DueDocument, error) {
	f.mu.Lock()
	var out []store.DueDocument
	for _, id := range f.due(models.JobTypePushDocument, cutoff) {
		d := f.docs[id]
		d.ResourceID = id
		out = append(out, d)
	}
	f.mu.Unlock()
	if f.afterSelect != nil {
		f.afterSelect()
	}
	return out, nil
}

func (f *fakeJobs) DeleteDue(ctx context.Context, t models.JobType, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	kept := f.jobs[:0]
	for _, j := range f.jobs {
		if j.typ == t && !j.at.After(cutoff) {
			n++
			continue
		}
		kept = append(kept, j)
	}
	f.jobs = kept
	return n, nil
}

func (f *fakeJobs) remaining(t models.JobType) int {
	n := 0
	for _, j := range f.jobs {
		if j.typ == t {
			n++
		}
	}
	return n
}

type fakePromoter struct {
	mu       sync.Mutex
	promoted []uuid.UUID
	errs     map[uuid.UUID]error
}

func (f *fakePromoter) Promote(ctx context.Context, id uuid.UUID, by string) (*models.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	f.promoted = append(f.promoted, id)
	return &models.Version{ID: uuid.New(), ResourceID: id, VersionNum: 1, PublishedBy: by}, nil
}

type fakePaths map[uuid.UUID][]string

func (f fakePaths) PermalinkPath(ctx context.Context, id uuid.UUID) ([]string, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

type fakeAssets map[string]*storage.Object

func (f fakeAssets) Fetch(ctx context.Context, ref string) (*storage.Object, error) {
	obj, ok := f[ref]
	if !ok {
		return nil, fmt.Errorf("s3 get %s: not found", ref)
	}
	return obj, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	authErr error
	addErr  error
	auths   int
	batches [][]search.Document
}

func (f *fakeIndex) Authenticate(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auths++
	if f.authErr != nil {
		return "", f.authErr
	}
	return "token", nil
}

func (f *fakeIndex) AddDocuments(ctx context.Context, token string, docs []search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != "token" {
		return errors.New("bad token")
	}
	f.batches = append(f.batches, docs)
	return f.addErr
}

func fileContent(title, ref string) []byte {
	return []byte(fmt.Sprintf(`{"version":"0.1.0","layout":"file","page":{"title":%q,"ref":%q,"date":"2026-03-01","category":"Reports","tagged":["finance"]},"content":[]}`, title, ref))
}
