// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
)

// Page size bounds for GetChildrenOf.
const (
	DefaultChildrenLimit = 50
	MaxChildrenLimit     = 500
)

// ResourceStore manages the resource tree in the database.
type ResourceStore struct {
	db *sql.DB
}

// NewResourceStore creates a new ResourceStore.
func NewResourceStore(db *sql.DB) *ResourceStore {
	return &ResourceStore{db: db}
}

const resourceColumns = `id, site_id, parent_id, type, title, permalink, draft_blob_id,
	published_version_id, created_at, updated_at`

// scanResource scans a row into a Resource struct.
func scanResource(scanner interface{ Scan(...any) error }) (*models.Resource, error) {
	var r models.Resource
	err := scanner.Scan(
		&r.ID, &r.SiteID, &r.ParentID, &r.Type, &r.Title, &r.Permalink, &r.DraftBlobID,
		&r.PublishedVersionID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindByID returns a resource or models.ErrNotFound.
func (s *ResourceStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	return findResource(ctx, s.db, id, false)
}

func findResource(ctx context.Context, q DBTX, id uuid.UUID, forUpdate bool) (*models.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	r, err := scanResource(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	return r, nil
}

// RootOf returns the RootPage of a site.
func (s *ResourceStore) RootOf(ctx context.Context, siteID uuid.UUID) (*models.Resource, error) {
	r, err := scanResource(s.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE site_id = $1 AND type = $2`,
		siteID, models.ResourceTypeRootPage,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("root of site %s: %w", siteID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find root page: %w", err)
	}
	return r, nil
}

// GetChildrenOf lists the direct children of parentID within a site, one
// page at a time, ordered by type priority, then permalink, then id. A nil
// parentID lists the top level, which holds only the site's root page.
// The returned token resumes after the last item; it is empty on the last
// page.
func (s *ResourceStore) GetChildrenOf(ctx context.Context, siteID uuid.UUID, parentID *uuid.UUID, token string, limit int) ([]models.Resource, string, error) {
	after, err := decodeCursor(token)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = DefaultChildrenLimit
	}
	if limit > MaxChildrenLimit {
		limit = MaxChildrenLimit
	}

	args := []any{siteID, parentID}
	where := `site_id = $1 AND parent_id IS NOT DISTINCT FROM $2`
	if after != nil {
		args = append(args, after.Priority, after.Permalink, after.ID)
		where += ` AND (type_priority, permalink, id) > ($3, $4, $5)`
	}
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM resources
		WHERE %s
		ORDER BY type_priority, permalink, id
		LIMIT $%d
	`, resourceColumns, where, len(args)), args...)
	if err != nil {
		return nil, "", fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var items []models.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan resource: %w", err)
		}
		items = append(items, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list children: %w", err)
	}

	var next string
	if len(items) > limit {
		items = items[:limit]
		last := items[limit-1]
		next = cursor{Priority: last.Type.Priority(), Permalink: last.Permalink, ID: last.ID}.encode()
	}
	return items, next, nil
}

// GetNodeByPermalinkPath resolves a path of permalinks starting below the
// site's root page. An empty path returns the root. Any missing segment
// fails the whole lookup with models.ErrNotFound.
func (s *ResourceStore) GetNodeByPermalinkPath(ctx context.Context, siteID uuid.UUID, path []string) (*models.Resource, error) {
	node, err := s.RootOf(ctx, siteID)
	if err != nil {
		return nil, err
	}
	for i, segment := range path {
		next, err := scanResource(s.db.QueryRowContext(ctx,
			`SELECT `+resourceColumns+` FROM resources WHERE parent_id = $1 AND permalink = $2`,
			node.ID, segment,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("path segment %d %q: %w", i, segment, models.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve permalink path: %w", err)
		}
		node = next
	}
	return node, nil
}

// PermalinkPath returns the permalinks from below the root down to id,
// walking parent pointers one row at a time.
func (s *ResourceStore) PermalinkPath(ctx context.Context, id uuid.UUID) ([]string, error) {
	var path []string
	seen := make(map[uuid.UUID]bool)
	current := id
	for {
		if seen[current] {
			return nil, fmt.Errorf("%w: cycle at resource %s", models.ErrInvariant, current)
		}
		seen[current] = true

		r, err := s.FindByID(ctx, current)
		if err != nil {
			return nil, err
		}
		if r.ParentID == nil {
			break
		}
		path = append(path, r.Permalink)
		current = *r.ParentID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// CreateParams describes a new resource.
type CreateParams struct {
	SiteID    uuid.UUID
	ParentID  uuid.UUID
	Type      models.ResourceType
	Title     string
	Permalink string
	Content   *content.Document
}

// Create inserts a resource below an existing parent together with its
// first draft blob.
func (s *ResourceStore) Create(ctx context.Context, p CreateParams) (*models.Resource, error) {
	var created *models.Resource
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		created, err = createResource(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func createResource(ctx context.Context, tx *sql.Tx, p CreateParams) (*models.Resource, error) {
	if !p.Type.Valid() || p.Type == models.ResourceTypeRootPage {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidType, p.Type)
	}
	if p.Content == nil {
		return nil, fmt.Errorf("%w: resource needs draft content", models.ErrNoDraft)
	}
	if p.Type == models.ResourceTypeIndexPage {
		p.Permalink = models.IndexPagePermalink
	}
	if p.Permalink == "" {
		return nil, fmt.Errorf("%w: empty permalink", models.ErrInvalidParent)
	}

	parent, err := findResource(ctx, tx, p.ParentID, false)
	if err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}
	if err := checkParent(parent, p.SiteID, p.Type); err != nil {
		return nil, err
	}

	blob, err := createBlob(ctx, tx, p.Content)
	if err != nil {
		return nil, err
	}

	r, err := scanResource(tx.QueryRowContext(ctx, `
		INSERT INTO resources (id, site_id, parent_id, type, title, permalink, draft_blob_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+resourceColumns,
		uuid.Must(uuid.NewV7()), p.SiteID, parent.ID, p.Type, p.Title, p.Permalink, blob.ID,
	))
	if err != nil {
		if code, _ := pgCode(err); code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: %q", models.ErrPermalinkTaken, p.Permalink)
		}
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return r, nil
}

// checkParent verifies parent may hold a child of type t in site siteID.
func checkParent(parent *models.Resource, siteID uuid.UUID, t models.ResourceType) error {
	if parent.SiteID != siteID {
		return fmt.Errorf("%w: parent %s belongs to another site", models.ErrInvalidParent, parent.ID)
	}
	if !models.IsAllowedToHaveChildren(parent.Type) {
		return fmt.Errorf("%w: %s is a %s", models.ErrInvalidParent, parent.ID, parent.Type)
	}
	if t == models.ResourceTypeIndexPage && !parent.Type.IsContainer() {
		return fmt.Errorf("%w: index pages belong to folders and collections", models.ErrInvalidParent)
	}
	return nil
}

// CreateContainerParams describes a new folder or collection.
type CreateContainerParams struct {
	SiteID    uuid.UUID
	ParentID  uuid.UUID
	Type      models.ResourceType
	Title     string
	Permalink string
	// WithIndexPage also creates the container's IndexPage child.
	WithIndexPage bool
}

// CreateContainer creates a Folder or Collection and, when asked, its
// default index page in the same transaction. The index is nil when
// WithIndexPage is false.
func (s *ResourceStore) CreateContainer(ctx context.Context, p CreateContainerParams) (container, index *models.Resource, err error) {
	if !p.Type.IsContainer() {
		return nil, nil, fmt.Errorf("%w: %q is not a container", models.ErrInvalidType, p.Type)
	}

	err = WithTx(ctx, s.db, func(tx *sql.Tx) error {
		container, err = createResource(ctx, tx, CreateParams{
			SiteID:    p.SiteID,
			ParentID:  p.ParentID,
			Type:      p.Type,
			Title:     p.Title,
			Permalink: p.Permalink,
			Content:   content.NewContentPage(p.Title),
		})
		if err != nil {
			return err
		}
		if !p.WithIndexPage {
			return nil
		}
		index, err = createResource(ctx, tx, CreateParams{
			SiteID:   p.SiteID,
			ParentID: container.ID,
			Type:     models.ResourceTypeIndexPage,
			Title:    p.Title,
			Content:  DefaultIndexPage(container),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return container, index, nil
}

// DefaultIndexPage returns the draft content of a container's default
// index page.
func DefaultIndexPage(container *models.Resource) *content.Document {
	if container.Type == models.ResourceTypeCollection {
		return content.NewCollectionIndexPage(container.Title)
	}
	return content.NewFolderIndexPage(container.Title)
}

// CreateIndexPage persists the default index page of an existing
// container. Draft only: no version is created.
func (s *ResourceStore) CreateIndexPage(ctx context.Context, container *models.Resource) (*models.Resource, error) {
	return s.Create(ctx, CreateParams{
		SiteID:   container.SiteID,
		ParentID: container.ID,
		Type:     models.ResourceTypeIndexPage,
		Title:    container.Title,
		Content:  DefaultIndexPage(container),
	})
}

// IndexState tells whether a container's listing comes from a persisted
// IndexPage row or is synthesized on the fly.
type IndexState string

const (
	IndexPersisted   IndexState = "Persisted"
	IndexSynthesized IndexState = "Synthesized"
)

// IndexPageState reports how the listing of parentID is produced. The
// persisted IndexPage is returned when there is one.
func (s *ResourceStore) IndexPageState(ctx context.Context, parentID uuid.UUID) (IndexState, *models.Resource, error) {
	r, err := scanResource(s.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE parent_id = $1 AND type = $2`,
		parentID, models.ResourceTypeIndexPage,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return IndexSynthesized, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("find index page: %w", err)
	}
	return IndexPersisted, r, nil
}

// Move re-parents a resource. Only the moved row changes; descendants
// follow through their parent pointers.
func (s *ResourceStore) Move(ctx context.Context, id, newParentID uuid.UUID) (*models.Resource, error) {
	var moved *models.Resource
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := findResource(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if r.Type == models.ResourceTypeRootPage {
			return fmt.Errorf("%w: root page", models.ErrInvalidMove)
		}
		parent, err := findResource(ctx, tx, newParentID, false)
		if err != nil {
			return fmt.Errorf("new parent: %w", err)
		}
		if err := checkParent(parent, r.SiteID, r.Type); err != nil {
			return err
		}

		// The new parent must not sit inside the moved subtree.
		for ancestor := parent; ancestor.ParentID != nil; {
			if ancestor.ID == id {
				return fmt.Errorf("%w: %s is inside the moved subtree", models.ErrInvalidMove, newParentID)
			}
			if ancestor, err = findResource(ctx, tx, *ancestor.ParentID, false); err != nil {
				return err
			}
		}

		moved, err = scanResource(tx.QueryRowContext(ctx, `
			UPDATE resources SET parent_id = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+resourceColumns,
			id, newParentID,
		))
		if err != nil {
			if code, _ := pgCode(err); code == pgUniqueViolation {
				return fmt.Errorf("%w: %q", models.ErrPermalinkTaken, r.Permalink)
			}
			return fmt.Errorf("move resource: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Rename changes the title and permalink of a resource. The root page
// keeps its empty permalink and index pages keep the reserved one.
func (s *ResourceStore) Rename(ctx context.Context, id uuid.UUID, title, permalink string) (*models.Resource, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Type {
	case models.ResourceTypeRootPage:
		permalink = ""
	case models.ResourceTypeIndexPage:
		permalink = models.IndexPagePermalink
	default:
		if permalink == "" {
			return nil, fmt.Errorf("%w: empty permalink", models.ErrInvalidParent)
		}
	}

	r, err := scanResource(s.db.QueryRowContext(ctx, `
		UPDATE resources SET title = $2, permalink = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+resourceColumns,
		id, title, permalink,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		if code, _ := pgCode(err); code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: %q", models.ErrPermalinkTaken, permalink)
		}
		return nil, fmt.Errorf("rename resource: %w", err)
	}
	return r, nil
}

// WalkSubtree visits rootID and every descendant breadth-first. Children
// are fetched page by page and only containers are queued, so memory is
// bounded by the width of the tree rather than its size. A non-nil error
// from fn stops the walk.
func (s *ResourceStore) WalkSubtree(ctx context.Context, rootID uuid.UUID, fn func(*models.Resource) error) error {
	root, err := s.FindByID(ctx, rootID)
	if err != nil {
		return err
	}
	if err := fn(root); err != nil {
		return err
	}

	queue := []uuid.UUID{}
	if models.IsAllowedToHaveChildren(root.Type) {
		queue = append(queue, root.ID)
	}
	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		token := ""
		for {
			children, next, err := s.GetChildrenOf(ctx, root.SiteID, &parentID, token, MaxChildrenLimit)
			if err != nil {
				return err
			}
			for i := range children {
				if err := fn(&children[i]); err != nil {
					return err
				}
				if models.IsAllowedToHaveChildren(children[i].Type) {
					queue = append(queue, children[i].ID)
				}
			}
			if next == "" {
				break
			}
			token = next
		}
	}
	return nil
}

// State derives the publishing state of a resource by comparing its draft
// with the published snapshot.
func (s *ResourceStore) State(ctx context.Context, id uuid.UUID) (models.ResourceState, error) {
	var (
		r       models.Resource
		matches bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT r.published_version_id, COALESCE(d.content = pb.content, FALSE)
		FROM resources r
		JOIN blobs d ON d.id = r.draft_blob_id
		LEFT JOIN versions v ON v.id = r.published_version_id
		LEFT JOIN blobs pb ON pb.id = v.blob_id
		WHERE r.id = $1
	`, id).Scan(&r.PublishedVersionID, &matches)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resource %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resource state: %w", err)
	}
	return models.DeriveState(&r, matches), nil
}
