// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"isomer/internal/cache"
	"isomer/internal/database"
	"isomer/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "isomer")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "isomer")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a client for handler tests on DB 15, or nil
// when Valkey is not running. The published cache is optional.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "published:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB        *sql.DB
	Sites     *store.SiteStore
	Resources *store.ResourceStore
	API       *API
	Router    http.Handler
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)

	var published store.PublishedCache
	if vk := testValkeyClient(t); vk != nil {
		published = cache.NewBlobCache(vk, time.Minute)
	}

	sites := store.NewSiteStore(db)
	resources := store.NewResourceStore(db)
	api := NewAPI(
		sites,
		resources,
		store.NewBlobStore(db, published),
		store.NewVersionStore(db, published),
		store.NewScheduledJobStore(db),
	)

	return &testEnv{
		DB:        db,
		Sites:     sites,
		Resources: resources,
		API:       api,
		Router:    testRouter(api),
	}
}

// testRouter mounts the handlers on the same paths the server uses.
func testRouter(api *API) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/sites", api.SiteCreate)
	r.Get("/api/sites/{siteID}", api.SiteGet)
	r.Put("/api/sites/{siteID}/settings", api.SiteSettingsUpdate)
	r.Get("/api/sites/{siteID}/children", api.Children)
	r.Get("/api/sites/{siteID}/resolve/*", api.Resolve)
	r.Post("/api/sites/{siteID}/resources", api.ResourceCreate)
	r.Post("/api/sites/{siteID}/containers", api.ContainerCreate)
	r.Get("/api/resources/{id}", api.ResourceGet)
	r.Post("/api/resources/{id}/move", api.ResourceMove)
	r.Post("/api/resources/{id}/rename", api.ResourceRename)
	r.Get("/api/resources/{id}/draft", api.DraftGet)
	r.Put("/api/resources/{id}/draft", api.DraftUpdate)
	r.Get("/api/resources/{id}/published", api.PublishedGet)
	r.Post("/api/resources/{id}/publish", api.Publish)
	r.Get("/api/resources/{id}/versions", api.Versions)
	r.Post("/api/resources/{id}/schedule", api.Schedule)
	r.Delete("/api/resources/{id}/schedule/{type}", api.ScheduleCancel)
	return r
}

// do sends a request through the test router. body may be nil, a []byte
// or any value to encode as JSON.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.Router.ServeHTTP(rr, req)
	return rr
}

// decodeBody decodes a JSON response body into dst.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
}

// cleanSite removes a site created through the API.
func cleanSite(t *testing.T, db *sql.DB, siteID uuid.UUID) {
	t.Helper()
	db.Exec("UPDATE resources SET published_version_id = NULL WHERE site_id = $1", siteID)
	db.Exec("DELETE FROM sites WHERE id = $1", siteID)
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
