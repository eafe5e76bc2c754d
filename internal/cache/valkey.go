// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cache provides the Valkey (Redis-compatible) client, the
// published blob cache and the distributed job lock.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
)

// ValkeyOptions configures ConnectValkey.
type ValkeyOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Attempts is how many pings are tried before giving up. Zero means one.
	Attempts uint
}

// ConnectValkey creates a Valkey client and pings it, backing off between
// attempts so the server may come up after the process.
func ConnectValkey(ctx context.Context, opts ValkeyOptions) (*redis.Client, error) {
	addr := net.JoinHostPort(opts.Host, opts.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		ClientName:   "isomer",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	attempts := max(opts.Attempts, 1)
	err := retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("valkey not reachable, retrying", "addr", addr, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", addr, "db", opts.DB)
	return client, nil
}
