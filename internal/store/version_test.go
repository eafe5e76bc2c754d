package store

import (
	"context"
	"testing"

	"isomer/internal/content"
	"isomer/internal/models"
)

func TestVersionStorePromoteTwice(t *testing.T) {
	db := testDB(t)
	resources := NewResourceStore(db)
	blobs := NewBlobStore(db, nil)
	versions := NewVersionStore(db, nil)
	ctx := context.Background()
	_, root := testSite(t, db)
	page := createPage(t, resources, root, "twice")

	doc := content.NewContentPage("Stable")
	updateDraft(t, db, blobs, page, doc)

	v1, err := versions.Promote(ctx, page.ID, "alice")
	if err != nil {
		t.Fatalf("Promote 1: %v", err)
	}
	v2, err := versions.Promote(ctx, page.ID, "bob")
	if err != nil {
		t.Fatalf("Promote 2: %v", err)
	}

	if v1.VersionNum != 1 || v2.VersionNum != 2 {
		t.Errorf("version numbers: got %d, %d", v1.VersionNum, v2.VersionNum)
	}
	if v1.BlobID == page.DraftBlobID || v2.BlobID == page.DraftBlobID {
		t.Error("versions must not reference the draft blob")
	}
	if v1.BlobID == v2.BlobID {
		t.Error("each promote snapshots into its own blob")
	}

	after, err := resources.FindByID(ctx, page.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if after.PublishedVersionID == nil || *after.PublishedVersionID != v2.ID {
		t.Errorf("published pointer: got %v, want %s", after.PublishedVersionID, v2.ID)
	}
	if after.DraftBlobID != page.DraftBlobID {
		t.Error("promote must not move the draft pointer")
	}

	published, err := blobs.GetBlobOfResource(ctx, page.ID, ViewPublished)
	if err != nil {
		t.Fatalf("GetBlobOfResource: %v", err)
	}
	assertJSONEqual(t, published.Content, doc.Bytes())

	state, err := resources.State(ctx, page.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != models.ResourceStatePublished {
		t.Errorf("state: got %q, want Published", state)
	}

	list, err := versions.ListByResource(ctx, page.ID)
	if err != nil {
		t.Fatalf("ListByResource: %v", err)
	}
	if len(list) != 2 || list[0].ID != v2.ID {
		t.Errorf("ListByResource: got %d versions, newest %v", len(list), list)
	}

	latest, err := versions.Latest(ctx, page.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != v2.ID || latest.PublishedBy != "bob" {
		t.Errorf("Latest: got %+v", latest)
	}
}

func TestVersionStoreLatestUnpublished(t *testing.T) {
	db := testDB(t)
	resources := NewResourceStore(db)
	versions := NewVersionStore(db, nil)
	_, root := testSite(t, db)
	page := createPage(t, resources, root, "never")

	if _, err := versions.Latest(context.Background(), page.ID); err == nil {
		t.Error("expected an error for a never-published resource")
	}
}
