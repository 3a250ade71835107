package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/assessment-platform/enginer/pkg/events"
	"github.com/assessment-platform/enginer/pkg/report"
	"github.com/assessment-platform/enginer/pkg/scoring"
)

// notify publishes a best-effort submission-status event. A nil publisher
// (no Postgres NOTIFY wiring configured) makes this a no-op: the event
// stream is a wake-up shortcut for long-polling clients, not a source of
// truth, so a dropped publish never hides state from a guard endpoint that
// falls back to reading the Submission row directly.
func notify(ctx context.Context, pub *events.Publisher, submissionID, status string) {
	if pub == nil {
		return
	}
	if err := pub.PublishSubmissionStatus(ctx, submissionID, status, ""); err != nil {
		slog.Warn("event publish failed", "submission_id", submissionID, "status", status, "error", err)
	}
}

// NewScoreHandler wraps Scoring Triage into a Handler. On success it
// enqueues the report job that always follows a completed score job — the
// pipeline's two stages are fixed, not dynamically chosen.
func NewScoreHandler(scorer *scoring.Scorer, q *Queue, pub *events.Publisher) Handler {
	return func(ctx context.Context, submissionID string) error {
		if _, err := scorer.Score(ctx, submissionID); err != nil {
			return fmt.Errorf("score job: %w", err)
		}
		notify(ctx, pub, submissionID, "scored")
		if err := q.EnqueueReportJob(ctx, submissionID); err != nil {
			return fmt.Errorf("score job: enqueuing report job: %w", err)
		}
		return nil
	}
}

// NewReportHandler wraps the Report Synthesizer into a Handler.
func NewReportHandler(reporter *report.Reporter, pub *events.Publisher) Handler {
	return func(ctx context.Context, submissionID string) error {
		if err := reporter.Generate(ctx, submissionID); err != nil {
			return fmt.Errorf("report job: %w", err)
		}
		notify(ctx, pub, submissionID, "reported")
		return nil
	}
}
