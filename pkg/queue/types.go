// Package queue implements the Job Queue: a durable, at-least-once
// pipeline over pkg/store's Job table, with a hybrid NATS JetStream broker
// or in-process buffered-channel transport used only to wake workers early
// between polls. The Job table, not the transport, is the system of
// record: a worker always reclaims work through ClaimNextJob's SELECT ...
// FOR UPDATE SKIP LOCKED, so a redelivered or duplicated wake-up signal is
// harmless — it just triggers a poll that finds nothing pending.
package queue

import (
	"context"
	"time"

	"github.com/assessment-platform/enginer/ent/job"
)

// Handler processes one claimed job's submission. Returning an error marks
// the job failed (and retried per its backoff, or dead-lettered past
// max_attempts); returning nil marks it completed.
type Handler func(ctx context.Context, submissionID string) error

// Notifier is the wake-up transport: Notify signals that a job of kind
// became claimable, and Listen returns a channel that fires on each
// signal. Both the NATS and in-process implementations are best-effort —
// a missed signal only costs the receiving worker one extra poll interval,
// never a lost job, since the Job table is authoritative.
type Notifier interface {
	Notify(ctx context.Context, kind job.Kind) error
	Listen(kind job.Kind) <-chan struct{}
	Close() error
}

// WorkerHealth reports one worker goroutine's state, surfaced by the
// readiness endpoint.
type WorkerHealth struct {
	ID           string
	Kind         job.Kind
	Status       string
	CurrentJobID string
	JobsHandled  int
	LastActivity time.Time
}

// PoolHealth summarizes the whole WorkerPool for the Readiness & Guard
// endpoints.
type PoolHealth struct {
	Mode           string
	TotalWorkers   int
	ActiveWorkers  int
	QueueDepth     int
	LastOrphanScan time.Time
	OrphansRequeued int
	Workers        []WorkerHealth
}
