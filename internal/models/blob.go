// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Blob is a stored JSON page document. It may be edited in place while only
// a resource's draft points at it; once a Version references it, it is frozen.
type Blob struct {
	ID        uuid.UUID       `json:"id"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Version is an immutable published snapshot of a resource.
type Version struct {
	ID          uuid.UUID `json:"id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	VersionNum  int       `json:"version_num"`
	BlobID      uuid.UUID `json:"blob_id"`
	PublishedAt time.Time `json:"published_at"`
	PublishedBy string    `json:"published_by"`
}
