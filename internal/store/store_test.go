// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"isomer/internal/database"
	"isomer/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "isomer")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "isomer")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testSite creates a throwaway site with its root page. The site, its
// resources and every blob they reference are removed on cleanup.
func testSite(t *testing.T, db *sql.DB) (*models.Site, *models.Resource) {
	t.Helper()
	site, root, err := NewSiteStore(db).Create(context.Background(), "test-site-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	t.Cleanup(func() { cleanSite(t, db, site.ID) })
	return site, root
}

// cleanSite deletes a site and the blobs its resources used.
func cleanSite(t *testing.T, db *sql.DB, siteID uuid.UUID) {
	t.Helper()
	rows, err := db.Query(`
		SELECT r.draft_blob_id FROM resources r WHERE r.site_id = $1
		UNION
		SELECT v.blob_id FROM versions v JOIN resources r ON r.id = v.resource_id WHERE r.site_id = $1
	`, siteID)
	if err != nil {
		return
	}
	var blobs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if rows.Scan(&id) == nil {
			blobs = append(blobs, id)
		}
	}
	rows.Close()

	db.Exec("UPDATE resources SET published_version_id = NULL WHERE site_id = $1", siteID)
	db.Exec("DELETE FROM sites WHERE id = $1", siteID)
	for _, id := range blobs {
		db.Exec("DELETE FROM blobs WHERE id = $1", id)
	}
}
