package queue

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/assessment-platform/enginer/ent/job"
	"github.com/assessment-platform/enginer/ent/submission"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
)

// Worker polls for and processes jobs of a single kind. Several Workers of
// the same kind can run concurrently (within and across replicas):
// ClaimNextJob's SELECT ... FOR UPDATE SKIP LOCKED makes concurrent claims
// safe.
type Worker struct {
	id       string
	kind     job.Kind
	store    *store.Store
	notifier Notifier
	handler  Handler
	cfg      *config.QueueConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu           sync.Mutex
	status       string
	currentJobID string
	jobsHandled  int
	lastActivity time.Time
}

// NewWorker constructs a Worker for one job kind.
func NewWorker(id string, kind job.Kind, st *store.Store, notifier Notifier, handler Handler, cfg *config.QueueConfig) *Worker {
	return &Worker{
		id:           id,
		kind:         kind,
		store:        st,
		notifier:     notifier,
		handler:      handler,
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		status:       "idle",
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current job to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health reports the worker's current state for the readiness endpoint.
func (w *Worker) Health() WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerHealth{
		ID:           w.id,
		Kind:         w.kind,
		Status:       w.status,
		CurrentJobID: w.currentJobID,
		JobsHandled:  w.jobsHandled,
		LastActivity: w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id, "kind", w.kind)
	log.InfoContext(ctx, "queue worker started")

	wake := w.notifier.Listen(w.kind)

	for {
		if err := w.claimAndProcess(ctx); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.ErrorContext(ctx, "job processing error", "error", err)
			}
		} else {
			continue // a job was claimed; immediately look for another before sleeping
		}

		select {
		case <-w.stopCh:
			log.InfoContext(ctx, "queue worker stopping")
			return
		case <-ctx.Done():
			return
		case <-wake:
		case <-time.After(w.pollInterval()):
		}
	}
}

func (w *Worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) claimAndProcess(ctx context.Context) error {
	claimed, err := w.store.ClaimNextJob(ctx, w.kind, w.id, time.Now())
	if err != nil {
		return err
	}

	w.setStatus("working", claimed.ID)
	defer w.setStatus("idle", "")

	if w.kind == job.KindScore {
		w.markScoringStatus(ctx, claimed.SubmissionID, submission.ScoringStatusInProgress, false)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	go w.runHeartbeat(heartbeatCtx, claimed.ID)

	err = w.handler(jobCtx, claimed.SubmissionID)
	cancelHeartbeat()

	bg := context.Background()
	if err != nil {
		backoff := time.Duration(claimed.Attempts) * 10 * time.Second
		deadLettered, ferr := w.store.FailJob(bg, claimed.ID, err.Error(), backoff, time.Now())
		if ferr != nil {
			slog.ErrorContext(ctx, "failed to record job failure", "job_id", claimed.ID, "error", ferr)
		}
		if w.kind == job.KindScore {
			if deadLettered {
				w.markScoringStatus(bg, claimed.SubmissionID, submission.ScoringStatusFailed, true)
			} else {
				w.markScoringStatus(bg, claimed.SubmissionID, submission.ScoringStatusPending, false)
			}
		}
		w.bumpHandled()
		return nil
	}

	if cerr := w.store.CompleteJob(bg, claimed.ID); cerr != nil {
		slog.ErrorContext(ctx, "failed to mark job completed", "job_id", claimed.ID, "error", cerr)
	}
	w.bumpHandled()
	return nil
}

// markScoringStatus updates the owning Submission's scoring_status so
// admins can observe scoring progress independently of the Submission's
// own reserved/in_progress/completed state. Best-effort: a failure here
// logs and moves on rather than retrying, since the job's own status is
// already durable.
func (w *Worker) markScoringStatus(ctx context.Context, submissionID string, status submission.ScoringStatus, deadLetter bool) {
	if err := w.store.SetScoringStatus(ctx, submissionID, status, deadLetter); err != nil {
		slog.ErrorContext(ctx, "failed to update scoring_status", "submission_id", submissionID, "status", status, "error", err)
	}
}

func (w *Worker) runHeartbeat(ctx context.Context, jobID string) {
	interval := w.cfg.JobTimeout / 3
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(context.Background(), jobID, time.Now()); err != nil {
				slog.Warn("job heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (w *Worker) setStatus(status, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

func (w *Worker) bumpHandled() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobsHandled++
}
