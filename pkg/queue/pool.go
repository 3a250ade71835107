package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/assessment-platform/enginer/ent/job"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
)

// WorkerPool owns one or more Workers per job kind plus the orphan
// detection sweep. A replica runs exactly one WorkerPool.
type WorkerPool struct {
	podID    string
	store    *store.Store
	notifier Notifier
	cfg      *config.QueueConfig
	handlers map[job.Kind]Handler

	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRequeued  int
}

// NewWorkerPool constructs a WorkerPool. handlers maps each job kind to the
// function that processes it; both "score" and "report" must be present
// before Start is called.
func NewWorkerPool(podID string, st *store.Store, notifier Notifier, cfg *config.QueueConfig, handlers map[job.Kind]Handler) *WorkerPool {
	return &WorkerPool{
		podID:    podID,
		store:    st,
		notifier: notifier,
		cfg:      cfg,
		handlers: handlers,
		stopCh:   make(chan struct{}),
	}
}

// Start spawns cfg.WorkerCount workers per registered kind and the orphan
// detection goroutine. Safe to call once; a second call is a no-op.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		return nil
	}
	p.started = true

	for kind, handler := range p.handlers {
		for i := 0; i < p.cfg.WorkerCount; i++ {
			w := NewWorker(fmt.Sprintf("%s-%s-%d", p.podID, kind, i), kind, p.store, p.notifier, handler, p.cfg)
			p.workers = append(p.workers, w)
			w.Start(ctx)
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()

	slog.InfoContext(ctx, "queue worker pool started", "pod_id", p.podID, "workers", len(p.workers))
	return nil
}

// Stop signals every worker and the orphan sweep to stop, waiting for
// in-flight jobs to finish (bounded by cfg.GracefulShutdownTimeout by the
// caller's context).
func (p *WorkerPool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Health reports the pool's aggregate state for the readiness endpoint.
func (p *WorkerPool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		stats[i] = w.Health()
		if stats[i].Status == "working" {
			active++
		}
	}

	p.mu.Lock()
	lastScan := p.lastOrphanScan
	requeued := p.orphansRequeued
	p.mu.Unlock()

	return PoolHealth{
		Mode:            string(p.cfg.Mode),
		TotalWorkers:    len(p.workers),
		ActiveWorkers:   active,
		LastOrphanScan:  lastScan,
		OrphansRequeued: requeued,
		Workers:         stats,
	}
}

func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sweepOrphans(ctx)
		}
	}
}

// sweepOrphans requeues jobs whose claimer stopped heartbeating — a crashed
// or evicted worker — so no job is silently lost. All replicas run this
// independently; RequeueOrphan is idempotent against a job already
// requeued by a concurrent sweep since it is a plain field update keyed by
// job ID.
func (p *WorkerPool) sweepOrphans(ctx context.Context) {
	threshold := time.Now().Add(-p.cfg.OrphanThreshold)
	orphans, err := p.store.ListOrphanedJobs(ctx, threshold)
	if err != nil {
		slog.ErrorContext(ctx, "orphan sweep query failed", "error", err)
		return
	}

	requeued := 0
	for _, o := range orphans {
		if err := p.store.RequeueOrphan(ctx, o.ID, time.Now()); err != nil {
			slog.ErrorContext(ctx, "failed to requeue orphaned job", "job_id", o.ID, "error", err)
			continue
		}
		requeued++
		_ = p.notifier.Notify(ctx, o.Kind)
	}

	p.mu.Lock()
	p.lastOrphanScan = time.Now()
	p.orphansRequeued += requeued
	p.mu.Unlock()

	if requeued > 0 {
		slog.WarnContext(ctx, "requeued orphaned jobs", "count", requeued)
	}
}
