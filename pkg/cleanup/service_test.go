package cleanup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/pkg/cleanup"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

func TestServiceSweepsExpiredRowsOnStart(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)

	_, err := st.CreateRagQuery(ctx, store.NewRagQuery{
		ID: clock.NewID(), Purpose: "duplicate_check", QueryText: "reverse a binary tree", DeletedAfter: past,
	})
	require.NoError(t, err)

	snap, err := st.CreateSnapshot(ctx, store.NewSnapshot{
		ID: clock.NewID(), CompositionSpec: map[string]interface{}{}, QuestionIDs: []string{},
		PointsByQuestion: map[string]interface{}{}, Questions: []map[string]interface{}{},
		TotalPoints: 0, TimeLimitSeconds: 3600, GracePeriodSeconds: 120, ViolationLimit: 3,
	})
	require.NoError(t, err)
	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-cleanup", SnapshotID: snap.ID, AccessCode: "IIII9999",
	})
	require.NoError(t, err)
	_, err = st.CreateCodeExecutionLog(ctx, store.NewCodeExecutionLog{
		ID: clock.NewID(), SubmissionID: sub.ID, QuestionID: clock.NewID(),
		SourceCode: "print(1)", Language: "python", DeletedAfter: past,
	})
	require.NoError(t, err)

	cfg := config.DefaultRetentionConfig()
	cfg.CleanupInterval = time.Hour // the sweep we assert on runs once at Start, before any tick
	svc := cleanup.NewService(cfg, st)
	svc.Start(ctx)

	require.Eventually(t, func() bool {
		count, err := client.RagQuery.Query().Count(ctx)
		return err == nil && count == 0
	}, 2*time.Second, 20*time.Millisecond, "rag query should already be swept by the service's own startup run")

	require.Eventually(t, func() bool {
		count, err := client.CodeExecutionLog.Query().Count(ctx)
		return err == nil && count == 0
	}, 2*time.Second, 20*time.Millisecond, "code execution log should already be swept by the service's own startup run")

	svc.Stop()
}

func TestServiceStartIsIdempotent(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	cfg := config.DefaultRetentionConfig()
	cfg.CleanupInterval = time.Hour
	svc := cleanup.NewService(cfg, st)

	svc.Start(ctx)
	svc.Start(ctx) // must not panic or spawn a second loop
	svc.Stop()
}
