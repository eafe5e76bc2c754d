// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrPermalinkTaken = errors.New("permalink already used by a sibling")
	ErrInvalidParent  = errors.New("parent cannot have children")
	ErrInvalidType    = errors.New("invalid resource type")
	ErrInvalidMove    = errors.New("resource cannot be moved there")
	ErrNotPublished   = errors.New("resource has no published version")
)

// ErrInvariant marks core bugs. Batch loops must never swallow an error
// that matches it.
var ErrInvariant = errors.New("invariant violation")

var (
	// ErrBlobVersioned is returned when a write targets a blob that a
	// Version references.
	ErrBlobVersioned = fmt.Errorf("%w: blob is referenced by a version", ErrInvariant)
	// ErrNoDraft is returned when publishing a resource without a draft.
	ErrNoDraft = fmt.Errorf("%w: resource has no draft blob", ErrInvariant)
)
