// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package scheduler

import (
	"context"
	"time"

	"isomer/internal/cache"
)

type valkeyLocker struct {
	locker *cache.Locker
}

// ValkeyLocker adapts a Valkey-backed cache.Locker for the registry.
func ValkeyLocker(l *cache.Locker) Locker {
	return valkeyLocker{locker: l}
}

func (v valkeyLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	lk, err := v.locker.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return lk, nil
}
