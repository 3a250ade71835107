// Package session implements the Session Manager: the Submission state
// machine (reserved -> in_progress -> completed | completed_auto_submitted
// | expired), grace period handling, and violation-triggered auto-submit.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/submission"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
)

// ReadinessState is the outcome of Readiness.
type ReadinessState string

const (
	ReadinessNotFound           ReadinessState = "not_found"
	ReadinessGenerating         ReadinessState = "generating"
	ReadinessPartiallyGenerated ReadinessState = "partially_generated"
	ReadinessGenerationFailed   ReadinessState = "generation_failed"
	ReadinessReady              ReadinessState = "ready"
)

// ViolationEvent is a proctoring event type that counts toward the
// violation limit.
type ViolationEvent string

const (
	EventTabSwitch      ViolationEvent = "tab_switch"
	EventFullscreenExit ViolationEvent = "fullscreen_exit"
)

// JobEnqueuer is implemented by pkg/queue. Kept as a narrow local interface
// so the Session Manager never imports the Job Queue package directly.
type JobEnqueuer interface {
	EnqueueScoreJob(ctx context.Context, submissionID string) error
}

// Manager is the Session Manager facade.
type Manager struct {
	store   *store.Store
	clock   clock.Clock
	cfg     *config.SessionConfig
	jobs    JobEnqueuer
}

// New constructs a Manager.
func New(st *store.Store, clk clock.Clock, cfg *config.SessionConfig, jobs JobEnqueuer) *Manager {
	return &Manager{store: st, clock: clk, cfg: cfg, jobs: jobs}
}

var (
	// ErrNotReady is returned by Start when the referenced snapshot is not
	// yet ready.
	ErrNotReady = errors.New("session: not ready")
	// ErrWrongCandidate is returned when a submit/start call's candidate
	// does not match the submission's owner.
	ErrWrongCandidate = errors.New("session: candidate mismatch")
	// ErrAlreadyTerminal is returned by Start when the submission has
	// already reached a terminal status; retrying start can never succeed.
	ErrAlreadyTerminal = errors.New("session: submission already terminal")
)

// Reserve creates a new Submission in status=reserved against an already
// composed snapshot, minting an access code the candidate presents to
// start.
func (m *Manager) Reserve(ctx context.Context, snapshotID, candidateID string) (*ent.Submission, string, error) {
	if _, err := m.store.GetSnapshot(ctx, snapshotID); err != nil {
		return nil, "", fmt.Errorf("resolving snapshot: %w", err)
	}

	code, err := clock.GenerateAccessCode(m.cfg.AccessCodeLength)
	if err != nil {
		return nil, "", fmt.Errorf("generating access code: %w", err)
	}

	sub, err := m.store.CreateSubmission(ctx, store.NewSubmission{
		ID:          clock.NewID(),
		CandidateID: candidateID,
		SnapshotID:  snapshotID,
		AccessCode:  code,
	})
	if err != nil {
		return nil, "", err
	}
	return sub, code, nil
}

// Readiness reports whether a submission's referenced snapshot is ready
// for the candidate to start. Our Assessment Composer builds snapshots
// synchronously (see pkg/composer), so the only states actually returned
// are not_found (no such submission), generation_failed (snapshot missing
// or holding fewer than MinQuestionsRequired questions) and ready; the
// generating and partially_generated values are never returned.
func (m *Manager) Readiness(ctx context.Context, submissionID string) (ReadinessState, error) {
	sub, err := m.store.GetSubmission(ctx, submissionID)
	if err != nil {
		if err == store.ErrNotFound {
			return ReadinessNotFound, nil
		}
		return "", err
	}

	snap, err := m.store.GetSnapshot(ctx, sub.SnapshotID)
	if err != nil {
		if err == store.ErrNotFound {
			return ReadinessGenerationFailed, nil
		}
		return "", err
	}
	if len(snap.QuestionIDs) < m.cfg.MinQuestionsRequired {
		return ReadinessGenerationFailed, nil
	}
	return ReadinessReady, nil
}

// Start transitions a submission from reserved to in_progress, writing the
// server-authoritative expiration_instant and grace_deadline once. Idempotent:
// calling Start on an already in_progress submission returns its existing
// timing without error.
func (m *Manager) Start(ctx context.Context, submissionID string) (*ent.Submission, error) {
	sub, err := m.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == submission.StatusInProgress {
		return sub, nil
	}
	if isTerminal(sub.Status) {
		return nil, fmt.Errorf("%w: submission is %s", ErrAlreadyTerminal, sub.Status)
	}
	if sub.Status != submission.StatusReserved {
		return nil, fmt.Errorf("%w: submission is %s", ErrNotReady, sub.Status)
	}

	readiness, err := m.Readiness(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if readiness != ReadinessReady {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, readiness)
	}

	snap, err := m.store.GetSnapshot(ctx, sub.SnapshotID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	expiration := now.Add(time.Duration(snap.TimeLimitSeconds) * time.Second)
	grace := expiration.Add(time.Duration(snap.GracePeriodSeconds) * time.Second)
	inProgress := submission.StatusInProgress

	return m.store.UpdateSubmissionIfMatch(ctx, submissionID, sub.Version, store.SubmissionMutation{
		Status:            &inProgress,
		StartedAt:         &now,
		ExpirationInstant: &expiration,
		GraceDeadline:     &grace,
	})
}

// TimerSyncResult is the payload clients poll for authoritative timing.
type TimerSyncResult struct {
	ServerNow      time.Time
	Expiration     time.Time
	RemainingMs    int64
	GracePeriodMs  int64
	InGrace        bool
}

// TimerSync returns server-authoritative timing for an in-progress
// submission. Clients must treat ServerNow as ground truth; any locally
// derived countdown is advisory only.
func (m *Manager) TimerSync(ctx context.Context, submissionID string) (TimerSyncResult, error) {
	sub, err := m.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return TimerSyncResult{}, err
	}
	if sub.ExpirationInstant == nil {
		return TimerSyncResult{}, fmt.Errorf("%w: not started", ErrNotReady)
	}

	now := m.clock.Now()
	expiration := *sub.ExpirationInstant
	remaining := expiration.Sub(now).Milliseconds()
	gracePeriodMs := int64(0)
	inGrace := false
	if sub.GraceDeadline != nil {
		gracePeriodMs = sub.GraceDeadline.Sub(expiration).Milliseconds()
		inGrace = now.After(expiration) && now.Before(*sub.GraceDeadline)
	}

	return TimerSyncResult{
		ServerNow:     now,
		Expiration:    expiration,
		RemainingMs:   remaining,
		GracePeriodMs: gracePeriodMs,
		InGrace:       inGrace,
	}, nil
}

// RecordEvent appends a proctoring event, incrementing violation_count for
// violation-class events and triggering an auto-submit once the snapshot's
// violation limit is reached.
func (m *Manager) RecordEvent(ctx context.Context, submissionID string, event ViolationEvent) error {
	sub, err := m.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Status != submission.StatusInProgress {
		return nil
	}

	switch event {
	case EventTabSwitch, EventFullscreenExit:
	default:
		return nil
	}

	newCount := sub.ViolationCount + 1
	updated, err := m.store.UpdateSubmissionIfMatch(ctx, submissionID, sub.Version, store.SubmissionMutation{
		ViolationCount: &newCount,
	})
	if err != nil {
		return err
	}

	snap, err := m.store.GetSnapshot(ctx, sub.SnapshotID)
	if err != nil {
		return err
	}
	limit := snap.ViolationLimit
	if limit <= 0 {
		limit = m.cfg.DefaultViolationLimit
	}
	if m.cfg.AutoSubmitEnabled && updated.ViolationCount >= limit {
		return m.submitLocked(ctx, updated, nil, true, "exceeded_violation_limit")
	}
	return nil
}

// Submit finalizes a submission. Idempotent: calling Submit on an
// already-terminal submission is a no-op returning the prior state.
func (m *Manager) Submit(ctx context.Context, submissionID string, answers map[string]interface{}, autoSubmitted bool, reason string) (*ent.Submission, error) {
	sub, err := m.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if isTerminal(sub.Status) {
		return sub, nil
	}
	if err := m.submitLocked(ctx, sub, answers, autoSubmitted, reason); err != nil {
		return nil, err
	}
	return m.store.GetSubmission(ctx, submissionID)
}

func (m *Manager) submitLocked(ctx context.Context, sub *ent.Submission, answers map[string]interface{}, autoSubmitted bool, reason string) error {
	now := m.clock.Now()

	status := submission.StatusCompleted
	// A submission arriving after expiration+grace is accepted but always
	// resolves to completed_auto_submitted, even if the client's own flag
	// said otherwise — the server's clock is authoritative.
	late := sub.GraceDeadline != nil && now.After(*sub.GraceDeadline)
	if late && reason == "" {
		reason = "time_expired"
	}
	if autoSubmitted || late {
		status = submission.StatusCompletedAutoSubmitted
		autoSubmitted = true
	}

	pendingScoring := submission.ScoringStatusPending
	mut := store.SubmissionMutation{
		Status:        &status,
		SubmittedAt:   &now,
		ScoringStatus: &pendingScoring,
	}
	if answers != nil {
		mut.Answers = answers
	}
	if autoSubmitted {
		mut.AutoSubmitted = &autoSubmitted
		mut.AutoSubmitReason = &reason
		mut.AutoSubmitInstant = &now
	}

	_, err := m.store.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, mut)
	if err != nil {
		return err
	}

	if m.jobs != nil {
		return m.jobs.EnqueueScoreJob(ctx, sub.ID)
	}
	return nil
}

// ExpireSweep scans for in_progress submissions past their grace deadline
// and auto-submits them. Safe to run concurrently across multiple workers:
// each submission's update_if_match CAS means only one worker's transition
// wins; the rest observe ErrConflict and move on.
func (m *Manager) ExpireSweep(ctx context.Context) (int, error) {
	now := m.clock.Now()
	expired, err := m.store.ListGraceExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, sub := range expired {
		if err := m.submitLocked(ctx, sub, nil, true, "time_expired"); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func isTerminal(status submission.Status) bool {
	switch status {
	case submission.StatusCompleted, submission.StatusCompletedAutoSubmitted, submission.StatusExpired:
		return true
	default:
		return false
	}
}
