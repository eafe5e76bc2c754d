// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobType names the work a scheduled job row stands for.
type JobType string

const (
	// JobTypePushDocument pushes the resource's latest version to the
	// external search index.
	JobTypePushDocument JobType = "PushDocument"
	// JobTypePublishResource promotes the resource's draft.
	JobTypePublishResource JobType = "PublishResource"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	return t == JobTypePushDocument || t == JobTypePublishResource
}

// ScheduledJob records the intent to act on a resource at a future time.
// There is at most one pending row per (resource, type).
type ScheduledJob struct {
	ResourceID  uuid.UUID `json:"resource_id"`
	Type        JobType   `json:"type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsDue reports whether the job should be picked up by a run whose
// horizon is cutoff.
func (j *ScheduledJob) IsDue(cutoff time.Time) bool {
	return !j.ScheduledAt.After(cutoff)
}
