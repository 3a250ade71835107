package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/session"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

type fakeEnqueuer struct {
	calls []string
}

func (f *fakeEnqueuer) EnqueueScoreJob(_ context.Context, submissionID string) error {
	f.calls = append(f.calls, submissionID)
	return nil
}

func newTestManager(t *testing.T, clk clock.Clock) (*session.Manager, *store.Store, *fakeEnqueuer) {
	t.Helper()
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cfg := config.DefaultSessionConfig()
	enqueuer := &fakeEnqueuer{}
	return session.New(st, clk, cfg, enqueuer), st, enqueuer
}

func mustSnapshot(t *testing.T, st *store.Store, questionCount, timeLimitSeconds, graceSeconds int) string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, questionCount)
	for i := range ids {
		ids[i] = clock.NewID()
	}
	snap, err := st.CreateSnapshot(ctx, store.NewSnapshot{
		ID:                 clock.NewID(),
		CompositionSpec:    map[string]interface{}{"entries": []interface{}{}},
		QuestionIDs:        ids,
		PointsByQuestion:   map[string]interface{}{},
		Questions:          []map[string]interface{}{},
		TotalPoints:        questionCount * 10,
		TimeLimitSeconds:   timeLimitSeconds,
		GracePeriodSeconds: graceSeconds,
		ViolationLimit:     3,
	})
	require.NoError(t, err)
	return snap.ID
}

func TestReserveStartSubmitHappyPath(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	mgr, st, enqueuer := newTestManager(t, clk)
	ctx := context.Background()

	snapshotID := mustSnapshot(t, st, 3, 3600, 120)

	sub, code, err := mgr.Reserve(ctx, snapshotID, "candidate-1")
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.Equal(t, "reserved", string(sub.Status))

	readiness, err := mgr.Readiness(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, session.ReadinessReady, readiness)

	started, err := mgr.Start(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "in_progress", string(started.Status))
	require.NotNil(t, started.ExpirationInstant)
	require.WithinDuration(t, clk.Now().Add(3600*time.Second), *started.ExpirationInstant, time.Second)

	// Idempotent restart returns the same timing rather than erroring.
	startedAgain, err := mgr.Start(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, started.ExpirationInstant, startedAgain.ExpirationInstant)

	timer, err := mgr.TimerSync(ctx, sub.ID)
	require.NoError(t, err)
	require.False(t, timer.InGrace)
	require.Equal(t, int64(3600_000), timer.RemainingMs)

	submitted, err := mgr.Submit(ctx, sub.ID, map[string]interface{}{"q1": "answer"}, false, "")
	require.NoError(t, err)
	require.Equal(t, "completed", string(submitted.Status))
	require.Len(t, enqueuer.calls, 1)
	require.Equal(t, sub.ID, enqueuer.calls[0])

	// Submit is idempotent on a terminal submission.
	submittedAgain, err := mgr.Submit(ctx, sub.ID, nil, false, "")
	require.NoError(t, err)
	require.Equal(t, submitted.Status, submittedAgain.Status)
	require.Len(t, enqueuer.calls, 1, "second submit on a terminal submission must not re-enqueue scoring")
}

func TestSubmitAfterGraceDeadlineForcesAutoSubmitted(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	mgr, st, _ := newTestManager(t, clk)
	ctx := context.Background()

	snapshotID := mustSnapshot(t, st, 1, 60, 30)
	sub, _, err := mgr.Reserve(ctx, snapshotID, "candidate-2")
	require.NoError(t, err)
	_, err = mgr.Start(ctx, sub.ID)
	require.NoError(t, err)

	// Advance well past expiration + grace.
	clk.Advance(10 * time.Minute)

	submitted, err := mgr.Submit(ctx, sub.ID, map[string]interface{}{}, false, "")
	require.NoError(t, err)
	require.Equal(t, "completed_auto_submitted", string(submitted.Status),
		"a late submission must resolve to auto-submitted even when the client claims otherwise")
}

func TestRecordEventAutoSubmitsAtViolationLimit(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	mgr, st, enqueuer := newTestManager(t, clk)
	ctx := context.Background()

	snapshotID := mustSnapshot(t, st, 1, 3600, 120)
	sub, _, err := mgr.Reserve(ctx, snapshotID, "candidate-3")
	require.NoError(t, err)
	_, err = mgr.Start(ctx, sub.ID)
	require.NoError(t, err)

	require.NoError(t, mgr.RecordEvent(ctx, sub.ID, session.EventTabSwitch))
	require.NoError(t, mgr.RecordEvent(ctx, sub.ID, session.EventFullscreenExit))
	require.Empty(t, enqueuer.calls, "violation limit of 3 not yet reached")

	require.NoError(t, mgr.RecordEvent(ctx, sub.ID, session.EventTabSwitch))

	final, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "completed_auto_submitted", string(final.Status))
	require.Len(t, enqueuer.calls, 1)
}

func TestRecordEventRespectsAutoSubmitDisabled(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cfg := config.DefaultSessionConfig()
	cfg.AutoSubmitEnabled = false
	enqueuer := &fakeEnqueuer{}
	mgr := session.New(st, clk, cfg, enqueuer)
	ctx := context.Background()

	snapshotID := mustSnapshot(t, st, 1, 3600, 120)
	sub, _, err := mgr.Reserve(ctx, snapshotID, "candidate-5")
	require.NoError(t, err)
	_, err = mgr.Start(ctx, sub.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, mgr.RecordEvent(ctx, sub.ID, session.EventTabSwitch))
	}

	final, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "in_progress", string(final.Status),
		"violations past the limit must not auto-submit when AUTO_SUBMIT_ENABLED is false")
	require.Empty(t, enqueuer.calls)
}

func TestSubmitPersistsAutoSubmitReasonAndInstant(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	mgr, st, _ := newTestManager(t, clk)
	ctx := context.Background()

	snapshotID := mustSnapshot(t, st, 1, 60, 30)
	sub, _, err := mgr.Reserve(ctx, snapshotID, "candidate-6")
	require.NoError(t, err)
	_, err = mgr.Start(ctx, sub.ID)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)

	submitted, err := mgr.Submit(ctx, sub.ID, map[string]interface{}{}, false, "")
	require.NoError(t, err)
	require.Equal(t, "completed_auto_submitted", string(submitted.Status))
	require.True(t, submitted.AutoSubmitted)
	require.NotNil(t, submitted.AutoSubmitReason)
	require.Equal(t, "time_expired", *submitted.AutoSubmitReason)
	require.NotNil(t, submitted.AutoSubmitInstant)
}

func TestReadinessNotFound(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	mgr, _, _ := newTestManager(t, clk)

	readiness, err := mgr.Readiness(context.Background(), clock.NewID())
	require.NoError(t, err)
	require.Equal(t, session.ReadinessNotFound, readiness)
}

func TestExpireSweep(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	mgr, st, enqueuer := newTestManager(t, clk)
	ctx := context.Background()

	snapshotID := mustSnapshot(t, st, 1, 60, 30)
	sub, _, err := mgr.Reserve(ctx, snapshotID, "candidate-4")
	require.NoError(t, err)
	_, err = mgr.Start(ctx, sub.ID)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)

	swept, err := mgr.ExpireSweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, swept)
	require.Len(t, enqueuer.calls, 1)

	final, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "completed_auto_submitted", string(final.Status))
}
