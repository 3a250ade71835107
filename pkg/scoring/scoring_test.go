package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/ent/evaluationrecord"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/scoring"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

type fakeRubricEvaluator struct {
	result scoring.RubricResult
	err    error
}

func (f *fakeRubricEvaluator) ScoreRubric(context.Context, scoring.RubricRequest) (scoring.RubricResult, error) {
	if f.err != nil {
		return scoring.RubricResult{}, f.err
	}
	return f.result, nil
}

func mustSnapshotWithQuestions(t *testing.T, st *store.Store, questions []map[string]interface{}, points map[string]interface{}) string {
	t.Helper()
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q["id"].(string)
	}
	snap, err := st.CreateSnapshot(context.Background(), store.NewSnapshot{
		ID:                 clock.NewID(),
		CompositionSpec:    map[string]interface{}{},
		QuestionIDs:        ids,
		PointsByQuestion:   points,
		Questions:          questions,
		TotalPoints:        len(questions),
		TimeLimitSeconds:   3600,
		GracePeriodSeconds: 120,
		ViolationLimit:     3,
	})
	require.NoError(t, err)
	return snap.ID
}

func TestScoreMCQDeterministic(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	mcqID := clock.NewID()
	questions := []map[string]interface{}{
		{"id": mcqID, "kind": "mcq", "answer_key": map[string]interface{}{"correct_option_id": "opt-a"}},
	}
	points := map[string]interface{}{mcqID: 10.0}
	snapshotID := mustSnapshotWithQuestions(t, st, questions, points)

	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-mcq", SnapshotID: snapshotID, AccessCode: "BBBB2222",
	})
	require.NoError(t, err)
	answers := map[string]interface{}{
		mcqID: map[string]interface{}{"submitted_option_id": "opt-a"},
	}
	_, err = st.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, store.SubmissionMutation{Answers: answers})
	require.NoError(t, err)

	scorer := scoring.New(st, nil, config.DefaultScoringConfig())
	record, err := scorer.Score(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, evaluationrecord.StatusCompleted, record.Status)
	require.Equal(t, 10.0, record.TotalAwarded)
	require.Equal(t, 10.0, record.TotalMax)
	require.Equal(t, 100.0, record.Percentage)
	require.Equal(t, 1, record.RunSequence)

	updated, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LatestEvaluationID)
	require.Equal(t, record.ID, *updated.LatestEvaluationID)
}

func TestScoreMCQWrongAnswerAwardsZero(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	mcqID := clock.NewID()
	questions := []map[string]interface{}{
		{"id": mcqID, "kind": "mcq", "answer_key": map[string]interface{}{"correct_option_id": "opt-a"}},
	}
	snapshotID := mustSnapshotWithQuestions(t, st, questions, map[string]interface{}{mcqID: 10.0})
	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-wrong", SnapshotID: snapshotID, AccessCode: "CCCC3333",
	})
	require.NoError(t, err)
	_, err = st.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, store.SubmissionMutation{
		Answers: map[string]interface{}{mcqID: map[string]interface{}{"submitted_option_id": "opt-b"}},
	})
	require.NoError(t, err)

	scorer := scoring.New(st, nil, config.DefaultScoringConfig())
	record, err := scorer.Score(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, record.TotalAwarded)
}

func TestScoreFreeTextUsesRubricEvaluator(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	qID := clock.NewID()
	questions := []map[string]interface{}{
		{"id": qID, "kind": "free_text", "stem": "Explain CAP theorem", "rubric": map[string]interface{}{}, "answer_key": map[string]interface{}{}},
	}
	snapshotID := mustSnapshotWithQuestions(t, st, questions, map[string]interface{}{qID: 20.0})
	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-free", SnapshotID: snapshotID, AccessCode: "DDDD4444",
	})
	require.NoError(t, err)
	_, err = st.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, store.SubmissionMutation{
		Answers: map[string]interface{}{qID: map[string]interface{}{"text": "a thorough answer"}},
	})
	require.NoError(t, err)

	evaluator := &fakeRubricEvaluator{result: scoring.RubricResult{PointsAwarded: 15, Feedback: "solid"}}
	scorer := scoring.New(st, evaluator, config.DefaultScoringConfig())
	record, err := scorer.Score(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, evaluationrecord.StatusCompleted, record.Status)
	require.Equal(t, 15.0, record.TotalAwarded)
	require.Equal(t, 20.0, record.TotalMax)
}

func TestScoreMarksEvaluatorErrorStatusOnFailure(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	qID := clock.NewID()
	questions := []map[string]interface{}{
		{"id": qID, "kind": "code", "stem": "Reverse a list", "rubric": map[string]interface{}{}, "answer_key": map[string]interface{}{}},
	}
	snapshotID := mustSnapshotWithQuestions(t, st, questions, map[string]interface{}{qID: 20.0})
	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-err", SnapshotID: snapshotID, AccessCode: "EEEE5555",
	})
	require.NoError(t, err)
	_, err = st.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, store.SubmissionMutation{
		Answers: map[string]interface{}{qID: map[string]interface{}{"source_code": "def f(): pass"}},
	})
	require.NoError(t, err)

	evaluator := &fakeRubricEvaluator{err: errors.New("llm timeout")}
	scorer := scoring.New(st, evaluator, config.DefaultScoringConfig())
	record, err := scorer.Score(ctx, sub.ID)
	require.NoError(t, err, "a per-question evaluator failure surfaces as record status, not a Score error")
	require.Equal(t, evaluationrecord.StatusEvaluatorError, record.Status)
	require.Equal(t, 0.0, record.TotalAwarded)
}

func TestScoreIsRescoreableWithIncrementingRunSequence(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	mcqID := clock.NewID()
	questions := []map[string]interface{}{
		{"id": mcqID, "kind": "mcq", "answer_key": map[string]interface{}{"correct_option_id": "opt-a"}},
	}
	snapshotID := mustSnapshotWithQuestions(t, st, questions, map[string]interface{}{mcqID: 10.0})
	sub, err := st.CreateSubmission(ctx, store.NewSubmission{
		ID: clock.NewID(), CandidateID: "candidate-rescore", SnapshotID: snapshotID, AccessCode: "FFFF6666",
	})
	require.NoError(t, err)
	_, err = st.UpdateSubmissionIfMatch(ctx, sub.ID, sub.Version, store.SubmissionMutation{
		Answers: map[string]interface{}{mcqID: map[string]interface{}{"submitted_option_id": "opt-a"}},
	})
	require.NoError(t, err)

	scorer := scoring.New(st, nil, config.DefaultScoringConfig())
	first, err := scorer.Score(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 1, first.RunSequence)

	second, err := scorer.Score(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 2, second.RunSequence)

	updated, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, *updated.LatestEvaluationID)
	require.Equal(t, 2, updated.LatestRunSequence)
}
