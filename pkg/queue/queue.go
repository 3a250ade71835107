package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/assessment-platform/enginer/ent/job"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
)

// Queue is the enqueue-side facade: it durably inserts a Job row and then
// best-effort wakes a waiting worker. A failed wake-up never loses the
// job — the next poll tick picks it up regardless.
type Queue struct {
	store    *store.Store
	notifier Notifier
}

// New constructs a Queue. NewFromConfig is the usual entry point; this
// constructor is exposed directly for tests that supply a fake Notifier.
func New(st *store.Store, notifier Notifier) *Queue {
	return &Queue{store: st, notifier: notifier}
}

// NewFromConfig builds the Notifier selected by cfg.Mode and returns a
// ready-to-use Queue.
func NewFromConfig(st *store.Store, cfg *config.QueueConfig) (*Queue, Notifier, error) {
	var notifier Notifier
	switch cfg.Mode {
	case config.QueueModeBroker:
		n, err := NewNATSNotifier(cfg.NATSURL)
		if err != nil {
			return nil, nil, fmt.Errorf("queue: broker mode: %w", err)
		}
		notifier = n
	default:
		notifier = NewInProcessNotifier()
	}
	return New(st, notifier), notifier, nil
}

// EnqueueScoreJob satisfies pkg/session.JobEnqueuer: it is called the
// moment a submission reaches a terminal state, to trigger Scoring Triage.
func (q *Queue) EnqueueScoreJob(ctx context.Context, submissionID string) error {
	return q.enqueue(ctx, job.KindScore, submissionID)
}

// EnqueueReportJob enqueues the Report Synthesizer job that always follows
// a completed score job, per the pipeline's fixed two-stage shape.
func (q *Queue) EnqueueReportJob(ctx context.Context, submissionID string) error {
	return q.enqueue(ctx, job.KindReport, submissionID)
}

func (q *Queue) enqueue(ctx context.Context, kind job.Kind, submissionID string) error {
	if _, err := q.store.EnqueueJob(ctx, store.NewJob{
		ID:           clock.NewID(),
		Kind:         kind,
		SubmissionID: submissionID,
	}); err != nil {
		return fmt.Errorf("queue: enqueuing %s job: %w", kind, err)
	}

	if err := q.notifier.Notify(ctx, kind); err != nil {
		slog.WarnContext(ctx, "queue: wake-up notify failed, job still durable", "kind", kind, "error", err)
	}
	return nil
}
