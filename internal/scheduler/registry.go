// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs named recurring jobs on cron expressions. A job
// registered with a singleton key never overlaps itself: in-process runs
// are skipped while one is active, and across processes a Valkey lease on
// the key decides which instance runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/robfig/cron/v3"

	"isomer/internal/cache"
	"isomer/internal/models"
)

// Handler is the work a job performs on each tick.
type Handler func(ctx context.Context) error

// JobOptions tune a registered job.
type JobOptions struct {
	// RetryLimit is how many extra attempts a failed run gets.
	RetryLimit int
	// SingletonKey, when set, forbids overlapping runs of the job.
	SingletonKey string
}

// Lease is a held singleton lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker grants singleton leases. Acquire returns cache.ErrLockHeld when
// another owner holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// ErrSkipped is returned by RunNow when the singleton lease is held
// elsewhere.
var ErrSkipped = errors.New("job skipped: singleton lease held")

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

type job struct {
	name      string
	handler   Handler
	opts      JobOptions
	heartbeat string
}

// JobRegistry owns the cron runner and every job registered on it. Build
// one at startup, Start it, and Shutdown it on exit.
type JobRegistry struct {
	cron       *cron.Cron
	locker     Locker
	lockTTL    time.Duration
	retryDelay time.Duration
	client     *http.Client

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
}

// NewJobRegistry creates a registry. locker may be nil, in which case
// singleton keys only guard against overlap inside this process.
func NewJobRegistry(locker Locker, lockTTL time.Duration) *JobRegistry {
	logger := cronLogger{log: slog.Default().With("component", "scheduler")}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRegistry{
		cron:       cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		locker:     locker,
		lockTTL:    lockTTL,
		retryDelay: time.Second,
		client:     &http.Client{Timeout: 10 * time.Second},
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]*job),
	}
}

// WithRetryDelay sets the initial backoff between failed attempts.
func (r *JobRegistry) WithRetryDelay(d time.Duration) *JobRegistry {
	r.retryDelay = d
	return r
}

// Register schedules handler under name. heartbeatURL, when not empty, is
// fetched after every successful run.
func (r *JobRegistry) Register(name, cronExpr string, handler Handler, opts JobOptions, heartbeatURL string) error {
	if opts.RetryLimit < 0 {
		return fmt.Errorf("register job %s: negative retry limit", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("register job %s: already registered", name)
	}

	j := &job{name: name, handler: handler, opts: opts, heartbeat: heartbeatURL}
	var cj cron.Job = cron.FuncJob(func() { r.run(r.ctx, j) })
	if opts.SingletonKey != "" {
		cj = cron.NewChain(cron.SkipIfStillRunning(cronLogger{log: slog.Default().With("job", name)})).Then(cj)
	}
	if _, err := r.cron.AddJob(cronExpr, cj); err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	r.jobs[name] = j

	slog.Info("job registered", "job", name, "cron", cronExpr, "retry_limit", opts.RetryLimit, "singleton_key", opts.SingletonKey)
	return nil
}

// Start begins firing jobs on their schedules.
func (r *JobRegistry) Start() {
	r.cron.Start()
}

// Shutdown stops scheduling, cancels running handlers and waits for them
// to return or for ctx to expire.
func (r *JobRegistry) Shutdown(ctx context.Context) error {
	stopped := r.cron.Stop()
	r.cancel()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown scheduler: %w", ctx.Err())
	}
}

// RunNow runs a registered job once on the calling goroutine, under the
// same lease, retry and heartbeat rules as a scheduled tick.
func (r *JobRegistry) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	j, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("run job %s: %w", name, ErrUnknownJob)
	}
	return r.run(ctx, j)
}

func (r *JobRegistry) run(ctx context.Context, j *job) error {
	if j.opts.SingletonKey != "" && r.locker != nil {
		lease, err := r.locker.Acquire(ctx, j.opts.SingletonKey, r.lockTTL)
		if errors.Is(err, cache.ErrLockHeld) {
			slog.Info("job skipped, lease held elsewhere", "job", j.name, "key", j.opts.SingletonKey)
			return ErrSkipped
		}
		if err != nil {
			slog.Error("job lease failed", "job", j.name, "error", err)
			return fmt.Errorf("run job %s: %w", j.name, err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				slog.Warn("job lease release failed", "job", j.name, "error", err)
			}
		}()
	}

	start := time.Now()
	err := retry.Do(
		func() error {
			err := j.handler(ctx)
			if errors.Is(err, models.ErrInvariant) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(j.opts.RetryLimit)+1),
		retry.Delay(r.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("job attempt failed", "job", j.name, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		slog.Error("job failed", "job", j.name, "duration", time.Since(start), "error", err)
		return fmt.Errorf("run job %s: %w", j.name, err)
	}

	slog.Info("job finished", "job", j.name, "duration", time.Since(start))
	if j.heartbeat != "" {
		r.ping(ctx, j)
	}
	return nil
}

// ping reports a successful run to the job's heartbeat monitor. Failures
// are logged, never returned.
func (r *JobRegistry) ping(ctx context.Context, j *job) {
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.heartbeat, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := r.client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode >= 400 {
				return fmt.Errorf("heartbeat status %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(r.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		slog.Warn("heartbeat failed", "job", j.name, "error", err)
	}
}

// cronLogger routes the cron runner's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
