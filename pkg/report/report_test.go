package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/ent/evaluationrecord"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/report"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

type fakeSynthesizer struct {
	result report.Result
	lastReq report.Request
}

func (f *fakeSynthesizer) SynthesizeReport(_ context.Context, req report.Request) (report.Result, error) {
	f.lastReq = req
	return f.result, nil
}

func TestGenerateBuildsAndPersistsReport(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	qID := clock.NewID()
	snap, err := st.CreateSnapshot(ctx, store.NewSnapshot{
		ID:                 clock.NewID(),
		CompositionSpec:    map[string]interface{}{},
		QuestionIDs:        []string{qID},
		PointsByQuestion:   map[string]interface{}{qID: 10.0},
		Questions:          []map[string]interface{}{{"id": qID, "topic": "algorithms", "stem": "reverse a list"}},
		TotalPoints:        10,
		TimeLimitSeconds:   3600,
		GracePeriodSeconds: 120,
		ViolationLimit:     3,
	})
	require.NoError(t, err)

	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-1", SnapshotID: snap.ID, AccessCode: "GGGG7777",
	})
	require.NoError(t, err)

	record, err := st.CreateEvaluationRecord(ctx, store.NewEvaluationRecord{
		ID:           clock.NewID(),
		SubmissionID: sub.ID,
		RunSequence:  1,
		Results: []store.QuestionResult{
			{QuestionID: qID, Method: "mcq_deterministic", MaxPoints: 10, PointsAwarded: 10},
		},
		TotalAwarded: 10,
		TotalMax:     10,
		Percentage:   100,
		Status:       evaluationrecord.StatusCompleted,
	})
	require.NoError(t, err)

	evalID := record.ID
	_, err = st.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, store.SubmissionMutation{
		LatestEvaluationID: &evalID,
		LatestRunSequence:  &record.RunSequence,
	})
	require.NoError(t, err)

	synth := &fakeSynthesizer{result: report.Result{
		Summary:    "Strong performance overall.",
		Strengths:  []string{"clear reasoning"},
		Weaknesses: []string{"minor edge case gaps"},
		NextSteps:  []string{"practice more graph problems"},
	}}
	reporter := report.New(st, synth)

	require.NoError(t, reporter.Generate(ctx, sub.ID))
	require.Equal(t, sub.ID, synth.lastReq.SubmissionID)
	require.Len(t, synth.lastReq.Outcomes, 1)
	require.Equal(t, "algorithms", synth.lastReq.Outcomes[0].Topic)

	updated, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "Strong performance overall.", updated.DetailedReport["summary"])
}

func TestGenerateFailsWithoutPriorScore(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	snap, err := st.CreateSnapshot(ctx, store.NewSnapshot{
		ID:                 clock.NewID(),
		CompositionSpec:    map[string]interface{}{},
		QuestionIDs:        []string{},
		PointsByQuestion:   map[string]interface{}{},
		Questions:          []map[string]interface{}{},
		TotalPoints:        0,
		TimeLimitSeconds:   3600,
		GracePeriodSeconds: 120,
		ViolationLimit:     3,
	})
	require.NoError(t, err)
	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-2", SnapshotID: snap.ID, AccessCode: "HHHH8888",
	})
	require.NoError(t, err)

	reporter := report.New(st, &fakeSynthesizer{})
	err = reporter.Generate(ctx, sub.ID)
	require.ErrorIs(t, err, report.ErrNotScored)
}
