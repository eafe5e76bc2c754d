// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// blob.go caches published blob content in Valkey so visitor reads skip
// the resource -> version -> blob join. Drafts are never cached.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// blobKeyPrefix is the Valkey key prefix for published content.
	blobKeyPrefix = "published:"

	// DefaultBlobTTL is how long published content stays cached.
	DefaultBlobTTL = 5 * time.Minute
)

// BlobCache caches published page content by resource id.
type BlobCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBlobCache creates a new blob cache backed by the given Valkey client.
func NewBlobCache(client *redis.Client, ttl time.Duration) *BlobCache {
	if ttl == 0 {
		ttl = DefaultBlobTTL
	}
	return &BlobCache{client: client, ttl: ttl}
}

// Get returns the cached content of a resource.
func (c *BlobCache) Get(ctx context.Context, resourceID uuid.UUID) ([]byte, bool) {
	val, err := c.client.Get(ctx, blobKey(resourceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("blob cache get error", "resource_id", resourceID, "error", err)
		return nil, false
	}
	slog.Debug("blob cache hit", "resource_id", resourceID)
	return val, true
}

// Set stores published content with the configured TTL.
func (c *BlobCache) Set(ctx context.Context, resourceID uuid.UUID, data []byte) {
	if err := c.client.Set(ctx, blobKey(resourceID), data, c.ttl).Err(); err != nil {
		slog.Warn("blob cache set error", "resource_id", resourceID, "error", err)
	}
}

// Invalidate drops the cached content of one resource.
func (c *BlobCache) Invalidate(ctx context.Context, resourceID uuid.UUID) {
	if err := c.client.Del(ctx, blobKey(resourceID)).Err(); err != nil {
		slog.Warn("blob cache invalidate error", "resource_id", resourceID, "error", err)
		return
	}
	slog.Debug("blob cache invalidated", "resource_id", resourceID)
}

func blobKey(resourceID uuid.UUID) string {
	return blobKeyPrefix + resourceID.String()
}
