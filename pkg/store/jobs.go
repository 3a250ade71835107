package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/job"
)

// NewJob is the input to EnqueueJob.
type NewJob struct {
	ID           string
	Kind         job.Kind
	SubmissionID string
	MaxAttempts  int
}

// EnqueueJob inserts a new pending job, immediately claimable.
func (s *Store) EnqueueJob(ctx context.Context, in NewJob) (*ent.Job, error) {
	var out *ent.Job
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.Job.Create().
			SetID(in.ID).
			SetKind(in.Kind).
			SetSubmissionID(in.SubmissionID)
		if in.MaxAttempts > 0 {
			b.SetMaxAttempts(in.MaxAttempts)
		}
		row, err := b.Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// ClaimNextJob atomically claims the oldest visible pending job of the
// given kind for workerID, using SELECT ... FOR UPDATE SKIP LOCKED so
// concurrent workers never contend on the same row. Returns ErrNotFound
// when no job is currently claimable.
func (s *Store) ClaimNextJob(ctx context.Context, kind job.Kind, workerID string, now time.Time) (*ent.Job, error) {
	var out *ent.Job
	err := s.Tx(ctx, func(ctx context.Context, tx *ent.Tx) error {
		rows, err := tx.Job.Query().
			Where(
				job.KindEQ(kind),
				job.StatusEQ(job.StatusPending),
				job.VisibleAtLTE(now),
			).
			Order(ent.Asc(job.FieldVisibleAt)).
			Limit(1).
			ForUpdate(sql.WithLockAction(sql.SkipLocked)).
			All(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNotFound
		}

		claimed, err := tx.Job.UpdateOneID(rows[0].ID).
			SetStatus(job.StatusInProgress).
			SetClaimedBy(workerID).
			SetLastHeartbeatAt(now).
			AddAttempts(1).
			Save(ctx)
		if err != nil {
			return err
		}
		out = claimed
		return nil
	})
	return out, mapErr(err)
}

// Heartbeat refreshes last_heartbeat_at for a claimed job, used by the
// worker pool's periodic heartbeat goroutine so the orphan sweep doesn't
// requeue work that is still actively running.
func (s *Store) Heartbeat(ctx context.Context, id string, now time.Time) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.Job.UpdateOneID(id).
			SetLastHeartbeatAt(now).
			Exec(ctx)
	}))
}

// CompleteJob marks a claimed job finished successfully.
func (s *Store) CompleteJob(ctx context.Context, id string) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.Job.UpdateOneID(id).
			SetStatus(job.StatusCompleted).
			Exec(ctx)
	}))
}

// FailJob records a processing failure. If the job has reached
// max_attempts it is moved to dead_letter; otherwise it is returned to
// pending with visible_at pushed out by backoff, so it can be retried
// without immediately re-claiming. Returns whether this failure
// dead-lettered the job, so the caller can update dependent state (e.g. the
// owning Submission's scoring_status) in the same failure path.
func (s *Store) FailJob(ctx context.Context, id string, lastError string, backoff time.Duration, now time.Time) (bool, error) {
	deadLettered := false
	err := mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.Job.Get(ctx, id)
		if err != nil {
			return err
		}

		b := s.db.Job.UpdateOneID(id).SetLastError(lastError)
		if row.Attempts >= row.MaxAttempts {
			b.SetStatus(job.StatusDeadLetter)
			deadLettered = true
		} else {
			b.SetStatus(job.StatusPending).SetVisibleAt(now.Add(backoff))
		}
		return b.Exec(ctx)
	}))
	return deadLettered, err
}

// ListOrphanedJobs returns in_progress jobs whose last_heartbeat_at is
// older than threshold, for the orphan-detection sweep to requeue.
func (s *Store) ListOrphanedJobs(ctx context.Context, threshold time.Time) ([]*ent.Job, error) {
	var out []*ent.Job
	err := s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.Job.Query().
			Where(
				job.StatusEQ(job.StatusInProgress),
				job.Or(
					job.LastHeartbeatAtIsNil(),
					job.LastHeartbeatAtLT(threshold),
				),
			).
			All(ctx)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, mapErr(err)
}

// RequeueOrphan returns an orphaned job to pending, clearing its claim so a
// different worker can pick it up. Leaves attempts unchanged, so the
// orphaned run's claim still counts against max_attempts.
func (s *Store) RequeueOrphan(ctx context.Context, id string, now time.Time) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.Job.UpdateOneID(id).
			SetStatus(job.StatusPending).
			ClearClaimedBy().
			ClearLastHeartbeatAt().
			SetVisibleAt(now).
			SetLastError(fmt.Sprintf("requeued: orphaned at %s", now.Format(time.RFC3339))).
			Exec(ctx)
	}))
}
