// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ResourceType identifies what kind of node a resource is in the site tree.
type ResourceType string

const (
	ResourceTypeRootPage       ResourceType = "RootPage"
	ResourceTypePage           ResourceType = "Page"
	ResourceTypeFolder         ResourceType = "Folder"
	ResourceTypeFolderMeta     ResourceType = "FolderMeta"
	ResourceTypeCollection     ResourceType = "Collection"
	ResourceTypeCollectionMeta ResourceType = "CollectionMeta"
	ResourceTypeCollectionPage ResourceType = "CollectionPage"
	ResourceTypeCollectionLink ResourceType = "CollectionLink"
	ResourceTypeIndexPage      ResourceType = "IndexPage"
)

// IndexPagePermalink is the reserved permalink of a container's index page.
const IndexPagePermalink = "_index"

// typePriority orders siblings in listings. Must match the type_priority
// generated column in the resources table.
var typePriority = map[ResourceType]int{
	ResourceTypeRootPage:       0,
	ResourceTypeIndexPage:      1,
	ResourceTypeFolderMeta:     2,
	ResourceTypeCollectionMeta: 3,
	ResourceTypeFolder:         4,
	ResourceTypeCollection:     5,
	ResourceTypePage:           6,
	ResourceTypeCollectionPage: 7,
	ResourceTypeCollectionLink: 8,
}

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	_, ok := typePriority[t]
	return ok
}

// Priority returns the listing priority of the type; lower sorts first.
func (t ResourceType) Priority() int {
	if p, ok := typePriority[t]; ok {
		return p
	}
	return len(typePriority)
}

// IsAllowedToHaveChildren reports whether resources of type t may be the
// parent of other resources. Every tree walk uses it to decide whether to
// descend.
func IsAllowedToHaveChildren(t ResourceType) bool {
	switch t {
	case ResourceTypeRootPage, ResourceTypeFolder, ResourceTypeCollection:
		return true
	default:
		return false
	}
}

// IsContainer reports whether t is a Folder or a Collection, the two types
// that own an index page.
func (t ResourceType) IsContainer() bool {
	return t == ResourceTypeFolder || t == ResourceTypeCollection
}

// ResourceState is the publishing state of a resource, derived from its
// draft and published pointers.
type ResourceState string

const (
	ResourceStateDraft           ResourceState = "Draft"
	ResourceStatePublished       ResourceState = "Published"
	ResourceStateHasDraftChanges ResourceState = "HasDraftChanges"
)

// Resource is a node in a site's content tree. The tree is stored as
// parent-pointer rows, so a move or rename touches a single row.
type Resource struct {
	ID                 uuid.UUID    `json:"id"`
	SiteID             uuid.UUID    `json:"site_id"`
	ParentID           *uuid.UUID   `json:"parent_id,omitempty"`
	Type               ResourceType `json:"type"`
	Title              string       `json:"title"`
	Permalink          string       `json:"permalink"`
	DraftBlobID        uuid.UUID    `json:"draft_blob_id"`
	PublishedVersionID *uuid.UUID   `json:"published_version_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// IsPublished returns true once the resource has at least one version.
func (r *Resource) IsPublished() bool {
	return r.PublishedVersionID != nil
}

// DeriveState computes the publishing state from the resource pointers and
// whether the draft content still equals the published snapshot.
func DeriveState(r *Resource, draftMatchesPublished bool) ResourceState {
	switch {
	case !r.IsPublished():
		return ResourceStateDraft
	case draftMatchesPublished:
		return ResourceStatePublished
	default:
		return ResourceStateHasDraftChanges
	}
}
