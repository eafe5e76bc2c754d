package migration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomer/internal/content"
	"isomer/internal/models"
)

func TestRunnerAddChildrenPagesOrdering(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	folder := src.add(root, models.ResourceTypeFolder, "Services", "services", content.NewContentPage("Services").Bytes())
	index := src.add(folder, models.ResourceTypeIndexPage, "Services", models.IndexPagePermalink, []byte(indexWithoutOrdering))
	done := src.add(folder, models.ResourceTypeIndexPage, "Done", "_index2", content.NewFolderIndexPage("Done").Bytes())
	prose := src.add(folder, models.ResourceTypeIndexPage, "Prose", "_index3",
		[]byte(`{"version":"0.1.0","layout":"index","page":{"title":"P"},"content":[{"type":"prose"}]}`))

	audit := &fakeAudit{}
	report, err := NewRunner(src, audit).Run(context.Background(), AddChildrenPagesOrdering(), true)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total(), "only index pages with the index layout are candidates")
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, src.writes)

	byID := map[string]Result{}
	for _, r := range report.Results {
		byID[r.ResourceID.String()] = r
	}
	assert.Equal(t, OutcomeMigrated, byID[index.ID.String()].Outcome)
	assert.Equal(t, ReasonAlreadyMigrated, byID[done.ID.String()].Reason)
	assert.Contains(t, byID[prose.ID.String()].Reason, "not \"childrenpages\"")

	// Draft only: the published pointer is untouched.
	assert.Nil(t, src.resources[index.ID].PublishedVersionID)
	assert.Len(t, audit.entries, 3)

	// Running again changes nothing.
	report, err = NewRunner(src, nil).Run(context.Background(), AddChildrenPagesOrdering(), true)
	require.NoError(t, err)
	assert.Zero(t, report.Migrated)
	assert.Equal(t, 1, src.writes)
}

func TestRunnerDryRunWritesNothing(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	folder := src.add(root, models.ResourceTypeFolder, "F", "f", content.NewContentPage("F").Bytes())
	index := src.add(folder, models.ResourceTypeIndexPage, "F", models.IndexPagePermalink, []byte(indexWithoutOrdering))

	audit := &fakeAudit{}
	report, err := NewRunner(src, audit).Run(context.Background(), AddChildrenPagesOrdering(), false)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, "dry run", report.Results[0].Reason)
	assert.Zero(t, src.writes)
	assert.Equal(t, indexWithoutOrdering, string(src.drafts[index.ID]))
	require.Len(t, audit.entries, 1)
	assert.True(t, audit.entries[0].DryRun)
}

func TestRunnerContinuesPastFailures(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	folder := src.add(root, models.ResourceTypeFolder, "F", "f", content.NewContentPage("F").Bytes())

	var ids []string
	for i := 0; i < 5; i++ {
		r := src.add(folder, models.ResourceTypeIndexPage, "I", fmt.Sprintf("i%d", i), []byte(indexWithoutOrdering))
		ids = append(ids, r.ID.String())
	}
	broken := src.resources[mustParseID(t, ids[1])]
	src.rewriteErr[broken.ID] = errors.New("connection reset")

	report, err := NewRunner(src, nil).WithPageSize(2).Run(context.Background(), AddChildrenPagesOrdering(), true)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total())
	assert.Equal(t, 4, report.Migrated)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, src.pages, "five candidates in pages of two")
}

func TestRunnerStopsOnInvariantViolation(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	folder := src.add(root, models.ResourceTypeFolder, "F", "f", content.NewContentPage("F").Bytes())
	first := src.add(folder, models.ResourceTypeIndexPage, "A", "a", []byte(indexWithoutOrdering))
	src.add(folder, models.ResourceTypeIndexPage, "B", "b", []byte(indexWithoutOrdering))
	src.rewriteErr[first.ID] = fmt.Errorf("update: %w", models.ErrBlobVersioned)

	report, err := NewRunner(src, nil).Run(context.Background(), AddChildrenPagesOrdering(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvariant)
	assert.Equal(t, 1, report.Total(), "the run must stop at the violation")
	assert.Zero(t, src.writes)
}

func TestRunnerSkipsUnparseableDraft(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	folder := src.add(root, models.ResourceTypeFolder, "F", "f", content.NewContentPage("F").Bytes())
	bad := src.add(folder, models.ResourceTypeIndexPage, "Bad", "bad", []byte(`{"layout":"index"}`))

	// Unfiltered so the broken draft is a candidate.
	m := NewContentMigration("noop", "noop", AddChildrenPagesOrdering().Filter(), func(d *content.Document) (*content.Document, error) { return d, nil })
	m.filter.Layout = ""

	for _, apply := range []bool{false, true} {
		report, err := NewRunner(src, nil).Run(context.Background(), m, apply)
		require.NoError(t, err)
		require.Equal(t, 1, report.Total())
		assert.Equal(t, bad.ID, report.Results[0].ResourceID)
		assert.Equal(t, OutcomeSkipped, report.Results[0].Outcome)
		assert.Contains(t, report.Results[0].Reason, "not a page document")
	}
}

func TestRunnerBackfillFolderIndexPages(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	bare := src.add(root, models.ResourceTypeFolder, "Services", "services", content.NewContentPage("Services").Bytes())
	covered := src.add(root, models.ResourceTypeFolder, "About", "about", content.NewContentPage("About").Bytes())
	src.add(covered, models.ResourceTypeIndexPage, "About", models.IndexPagePermalink, content.NewFolderIndexPage("About").Bytes())

	report, err := NewRunner(src, nil).Run(context.Background(), BackfillFolderIndexPages(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Skipped)

	state, index, err := src.IndexPageState(context.Background(), bare.ID)
	require.NoError(t, err)
	require.Equal(t, "Persisted", string(state))
	assert.Equal(t, models.IndexPagePermalink, index.Permalink)
	assert.Equal(t, string(content.NewFolderIndexPage("Services").Bytes()), string(src.drafts[index.ID]))
	assert.Nil(t, index.PublishedVersionID)

	// Idempotent.
	report, err = NewRunner(src, nil).Run(context.Background(), BackfillFolderIndexPages(), true)
	require.NoError(t, err)
	assert.Zero(t, report.Migrated)
}

func TestReportPrint(t *testing.T) {
	src := newFakeSource()
	root := src.add(nil, models.ResourceTypeRootPage, "Home", "", content.NewRootPage("Home").Bytes())
	folder := src.add(root, models.ResourceTypeFolder, "F", "f", content.NewContentPage("F").Bytes())
	src.add(folder, models.ResourceTypeIndexPage, "A", "a", []byte(indexWithoutOrdering))

	report, err := NewRunner(src, nil).Run(context.Background(), AddChildrenPagesOrdering(), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	report.Print(&buf)
	assert.Contains(t, buf.String(), "migrated")
	assert.Contains(t, buf.String(), "1 candidates, 1 migrated, 0 skipped, 0 failed (dry run, nothing written)")
}
