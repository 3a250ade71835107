// Package report implements the Report Synthesizer: given a completed
// EvaluationRecord, it conducts a two-turn LLM conversation (an analysis
// turn followed by a forward-looking recommendations turn, mirroring the
// scoring/missing-tools pattern) and stores a structured report on the
// Submission.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/assessment-platform/enginer/pkg/store"
)

// QuestionOutcome is one graded question, shaped for the synthesis prompt.
type QuestionOutcome struct {
	QuestionID    string
	Topic         string
	Stem          string
	Method        string
	MaxPoints     float64
	PointsAwarded float64
	Feedback      string
}

// Request is what Synthesize asks the LLM Report Adapter to produce a
// report from.
type Request struct {
	SubmissionID string
	RunSequence  int
	TotalAwarded float64
	TotalMax     float64
	Percentage   float64
	Outcomes     []QuestionOutcome
}

// Result is the structured report the adapter returns.
type Result struct {
	Summary     string
	Strengths   []string
	Weaknesses  []string
	PerQuestion []map[string]interface{}
	NextSteps   []string
}

// Synthesizer is the narrow view of pkg/evaluator's Report Adapter the
// Report Synthesizer needs, kept local to avoid a dependency on the
// evaluator package's gRPC plumbing.
type Synthesizer interface {
	SynthesizeReport(ctx context.Context, req Request) (Result, error)
}

// Reporter is the Report Synthesizer facade.
type Reporter struct {
	store       *store.Store
	synthesizer Synthesizer
}

// New constructs a Reporter.
func New(st *store.Store, synthesizer Synthesizer) *Reporter {
	return &Reporter{store: st, synthesizer: synthesizer}
}

// ErrNotScored is returned when Generate is asked to report on a
// submission that has no evaluation record yet.
var ErrNotScored = errors.New("report: submission has not been scored")

// Generate builds and persists a report for the submission's most recent
// evaluation run. Safe to call again after a rescore: it always reports
// against whatever LatestRunSequence currently points to.
func (r *Reporter) Generate(ctx context.Context, submissionID string) error {
	sub, err := r.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}
	if sub.LatestEvaluationID == nil {
		return ErrNotScored
	}

	record, err := r.store.GetEvaluationRecordByRun(ctx, submissionID, sub.LatestRunSequence)
	if err != nil {
		return fmt.Errorf("loading evaluation record: %w", err)
	}
	snap, err := r.store.GetSnapshot(ctx, sub.SnapshotID)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	outcomes := make([]QuestionOutcome, 0, len(record.Results))
	for _, res := range record.Results {
		qID, _ := res["question_id"].(string)
		q := findQuestion(snap.Questions, qID)
		outcomes = append(outcomes, QuestionOutcome{
			QuestionID:    qID,
			Topic:         stringField(q, "topic"),
			Stem:          stringField(q, "stem"),
			Method:        stringField(res, "method"),
			MaxPoints:     floatField(res, "max_points"),
			PointsAwarded: floatField(res, "points_awarded"),
			Feedback:      stringField(res, "feedback"),
		})
	}

	result, err := r.synthesizer.SynthesizeReport(ctx, Request{
		SubmissionID: submissionID,
		RunSequence:  record.RunSequence,
		TotalAwarded: record.TotalAwarded,
		TotalMax:     record.TotalMax,
		Percentage:   record.Percentage,
		Outcomes:     outcomes,
	})
	if err != nil {
		return fmt.Errorf("synthesizing report: %w", err)
	}

	return r.saveWithRetry(ctx, submissionID, result)
}

func (r *Reporter) saveWithRetry(ctx context.Context, submissionID string, result Result) error {
	report := map[string]interface{}{
		"summary":      result.Summary,
		"strengths":    result.Strengths,
		"weaknesses":   result.Weaknesses,
		"per_question": result.PerQuestion,
		"next_steps":   result.NextSteps,
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		sub, err := r.store.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		_, err = r.store.UpdateSubmissionIfMatch(ctx, submissionID, sub.Version, store.SubmissionMutation{
			DetailedReport: report,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return lastErr
}

func findQuestion(questions []map[string]interface{}, id string) map[string]interface{} {
	for _, q := range questions {
		if qID, _ := q["id"].(string); qID == id {
			return q
		}
	}
	return map[string]interface{}{}
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func floatField(m map[string]interface{}, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
