package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomer/internal/content"
	"isomer/internal/database"
	"isomer/internal/models"
	"isomer/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens the test database or skips the test.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "postgres://" + envOr("POSTGRES_USER", "isomer") + ":" + envOr("POSTGRES_PASSWORD", "changeme") +
		"@" + envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") +
		"/" + envOr("POSTGRES_DB", "isomer") + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSite(t *testing.T, db *sql.DB) (*models.Site, *models.Resource) {
	t.Helper()
	site, root, err := store.NewSiteStore(db).Create(context.Background(), "migration-test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`UPDATE resources SET published_version_id = NULL WHERE site_id = $1`, site.ID)
		db.Exec(`DELETE FROM sites WHERE id = $1`, site.ID)
	})
	return site, root
}

func jsonValue(t *testing.T, data []byte) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestDBBackfillFolderIndexPages(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	site, root := testSite(t, db)
	resources := store.NewResourceStore(db)
	blobs := store.NewBlobStore(db, nil)
	versions := store.NewVersionStore(db, nil)

	folder, _, err := resources.CreateContainer(ctx, store.CreateContainerParams{
		SiteID: site.ID, ParentID: root.ID, Type: models.ResourceTypeFolder,
		Title: "Services", Permalink: "services",
	})
	require.NoError(t, err)

	state, _, err := resources.IndexPageState(ctx, folder.ID)
	require.NoError(t, err)
	require.Equal(t, store.IndexSynthesized, state)

	_, err = NewRunner(NewDBSource(db), store.NewMigrationLogStore(db)).Run(ctx, BackfillFolderIndexPages(), true)
	require.NoError(t, err)

	state, index, err := resources.IndexPageState(ctx, folder.ID)
	require.NoError(t, err)
	require.Equal(t, store.IndexPersisted, state)
	assert.Equal(t, models.IndexPagePermalink, index.Permalink)
	assert.Nil(t, index.PublishedVersionID)

	draft, err := blobs.GetBlobOfResource(ctx, index.ID, store.ViewDraft)
	require.NoError(t, err)
	assert.Equal(t, jsonValue(t, content.NewFolderIndexPage("Services").Bytes()), jsonValue(t, draft.Content))

	n, err := versions.CountByResource(ctx, index.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "backfill must not create versions")
}

func TestDBAddChildrenPagesOrdering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	site, root := testSite(t, db)
	resources := store.NewResourceStore(db)
	blobs := store.NewBlobStore(db, nil)
	versions := store.NewVersionStore(db, nil)

	_, index, err := resources.CreateContainer(ctx, store.CreateContainerParams{
		SiteID: site.ID, ParentID: root.ID, Type: models.ResourceTypeFolder,
		Title: "Services", Permalink: "services", WithIndexPage: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.WithTx(ctx, db, func(tx *sql.Tx) error {
		return blobs.UpdateBlobByID(ctx, tx, store.UpdateBlobParams{
			PageID: index.ID, SiteID: site.ID, Content: content.MustParse([]byte(indexWithoutOrdering)),
		})
	}))

	_, err = NewRunner(NewDBSource(db), nil).Run(ctx, AddChildrenPagesOrdering(), true)
	require.NoError(t, err)

	draft, err := blobs.GetBlobOfResource(ctx, index.ID, store.ViewDraft)
	require.NoError(t, err)
	want := `{"version":"0.1.0","layout":"index","page":{"title":"Services"},"content":[{"type":"prose","content":[{"type":"paragraph"}]},{"type":"childrenpages","variant":"rows","showSummary":true,"childrenPagesOrdering":[]}]}`
	assert.Equal(t, jsonValue(t, []byte(want)), jsonValue(t, draft.Content))

	after, err := resources.FindByID(ctx, index.ID)
	require.NoError(t, err)
	assert.Nil(t, after.PublishedVersionID)
	state, err := resources.State(ctx, index.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStateDraft, state)

	n, err := versions.CountByResource(ctx, index.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDBMigrationLeavesPublishedVersionAlone(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	site, root := testSite(t, db)
	resources := store.NewResourceStore(db)
	blobs := store.NewBlobStore(db, nil)
	versions := store.NewVersionStore(db, nil)

	_, index, err := resources.CreateContainer(ctx, store.CreateContainerParams{
		SiteID: site.ID, ParentID: root.ID, Type: models.ResourceTypeFolder,
		Title: "Published", Permalink: "published", WithIndexPage: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.WithTx(ctx, db, func(tx *sql.Tx) error {
		return blobs.UpdateBlobByID(ctx, tx, store.UpdateBlobParams{
			PageID: index.ID, SiteID: site.ID, Content: content.MustParse([]byte(indexWithoutOrdering)),
		})
	}))
	v, err := versions.Promote(ctx, index.ID, "tester")
	require.NoError(t, err)
	publishedBefore, err := blobs.GetBlobOfResource(ctx, index.ID, store.ViewPublished)
	require.NoError(t, err)

	_, err = NewRunner(NewDBSource(db), nil).Run(ctx, AddChildrenPagesOrdering(), true)
	require.NoError(t, err)

	after, err := resources.FindByID(ctx, index.ID)
	require.NoError(t, err)
	require.NotNil(t, after.PublishedVersionID)
	assert.Equal(t, v.ID, *after.PublishedVersionID)

	n, err := versions.CountByResource(ctx, index.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	publishedAfter, err := blobs.GetBlobOfResource(ctx, index.ID, store.ViewPublished)
	require.NoError(t, err)
	assert.Equal(t, jsonValue(t, publishedBefore.Content), jsonValue(t, publishedAfter.Content))

	state, err := resources.State(ctx, index.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStateHasDraftChanges, state)
}
