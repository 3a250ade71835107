// Package scoring implements Scoring Triage: partitions a submission's
// answers by question kind, scores MCQ answers deterministically in-process,
// fans LLM-graded answers out to a bounded-concurrency rubric evaluator, and
// aggregates the result into an append-only EvaluationRecord.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/evaluationrecord"
	"github.com/assessment-platform/enginer/ent/submission"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
)

// DefaultDescriptiveWeights are the rubric criterion weights applied to
// free-text answers absent a question-specific override. The remainder
// (1.0 - sum) is distributed across whatever additional criteria the
// question's own rubric names.
var DefaultDescriptiveWeights = map[string]float64{
	"communication":       0.20,
	"problem_solving":     0.20,
	"explanation_quality": 0.15,
}

// DefaultCodingWeights are the rubric criterion weights applied to code
// answers absent a question-specific override.
var DefaultCodingWeights = map[string]float64{
	"correctness": 0.30,
	"efficiency":  0.15,
	"explanation": 0.15,
}

// ExecutionOutcome augments a code rubric prompt with the candidate's most
// recent sandbox run, when one exists.
type ExecutionOutcome struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	TimedOut   bool
	DurationMs int
}

// RubricRequest is what Scoring Triage asks the LLM Rubric Adapter to
// grade.
type RubricRequest struct {
	QuestionID       string
	Kind             string // free_text | code
	Stem             string
	Answer           string
	Rubric           map[string]interface{}
	MaxPoints        float64
	DefaultWeights   map[string]float64
	ExecutionOutcome *ExecutionOutcome
}

// RubricResult is the graded outcome of one RubricRequest. The adapter is
// responsible for structured-output enforcement and the one-retry parse
// recovery described in 4.G; Scoring Triage only ever sees a parsed result
// or a terminal error.
type RubricResult struct {
	PointsAwarded float64
	Breakdown     map[string]interface{}
	Feedback      string
}

// RubricEvaluator is the narrow view of pkg/evaluator's LLM Rubric Adapter
// Scoring Triage needs, kept local to avoid a dependency on the evaluator
// package's gRPC/LLM plumbing.
type RubricEvaluator interface {
	ScoreRubric(ctx context.Context, req RubricRequest) (RubricResult, error)
}

// Scorer is the Scoring Triage facade.
type Scorer struct {
	store     *store.Store
	evaluator RubricEvaluator
	cfg       *config.ScoringConfig
}

// New constructs a Scorer.
func New(st *store.Store, evaluator RubricEvaluator, cfg *config.ScoringConfig) *Scorer {
	return &Scorer{store: st, evaluator: evaluator, cfg: cfg}
}

// ErrNoAnswers is returned when a submission has no recorded answers to
// grade.
var ErrNoAnswers = errors.New("scoring: submission has no answers")

// Score produces the next EvaluationRecord for a submission and updates the
// Submission's compact summary pointer. Safe to call again for the same
// submission (a rescore): the new record lands at LatestRunSequence+1.
func (sc *Scorer) Score(ctx context.Context, submissionID string) (*ent.EvaluationRecord, error) {
	sub, err := sc.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("loading submission: %w", err)
	}
	snap, err := sc.store.GetSnapshot(ctx, sub.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	// A crash between CreateEvaluationRecord and updateSummaryWithRetry,
	// followed by an orphan-requeue, would otherwise re-run scoring from
	// scratch and append a second record: the table's latest run outruns
	// what the Submission's summary pointer ever saw committed. Recover the
	// dangling record instead of producing a duplicate.
	if tableLatest, err := sc.store.LatestRunSequence(ctx, submissionID); err != nil {
		return nil, fmt.Errorf("resolving run sequence: %w", err)
	} else if tableLatest > sub.LatestRunSequence {
		if dangling, derr := sc.store.GetEvaluationRecordByRun(ctx, submissionID, tableLatest); derr == nil {
			if err := sc.updateSummaryWithRetry(ctx, submissionID, dangling); err != nil {
				return dangling, fmt.Errorf("recovering dangling evaluation record: %w", err)
			}
			return dangling, nil
		}
	}

	results := make([]store.QuestionResult, len(snap.QuestionIDs))
	var llmIndexes []int

	for i, qID := range snap.QuestionIDs {
		qMap := findQuestion(snap.Questions, qID)
		maxPoints := pointsFor(snap.PointsByQuestion, qID)
		answer, _ := sub.Answers[qID].(map[string]interface{})
		kind, _ := qMap["kind"].(string)

		if kind == "mcq" {
			results[i] = scoreMCQ(qMap, answer, maxPoints)
			continue
		}
		llmIndexes = append(llmIndexes, i)
	}

	anyEvaluatorError := false
	if len(llmIndexes) > 0 {
		if sc.evaluator == nil {
			return nil, fmt.Errorf("scoring: no rubric evaluator configured")
		}
		concurrency := sc.cfg.MaxConcurrentPerSubmission
		if concurrency <= 0 {
			concurrency = 1
		}
		sem := make(chan struct{}, concurrency)
		var wg sync.WaitGroup
		var mu sync.Mutex

		for _, idx := range llmIndexes {
			idx := idx
			qID := snap.QuestionIDs[idx]
			qMap := findQuestion(snap.Questions, qID)
			maxPoints := pointsFor(snap.PointsByQuestion, qID)
			answer, _ := sub.Answers[qID].(map[string]interface{})

			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				res, failed := sc.scoreRubric(ctx, submissionID, qMap, answer, maxPoints)
				mu.Lock()
				results[idx] = res
				if failed {
					anyEvaluatorError = true
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
	}

	var totalAwarded, totalMax float64
	for _, r := range results {
		totalAwarded += r.PointsAwarded
		totalMax += r.MaxPoints
	}
	percentage := 0.0
	if totalMax > 0 {
		percentage = 100 * totalAwarded / totalMax
	}

	runSeq, err := sc.store.LatestRunSequence(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("resolving run sequence: %w", err)
	}
	runSeq++

	recordStatus := evaluationrecord.StatusCompleted
	if anyEvaluatorError {
		recordStatus = evaluationrecord.StatusEvaluatorError
	}

	record, err := sc.store.CreateEvaluationRecord(ctx, store.NewEvaluationRecord{
		ID:           clock.NewID(),
		SubmissionID: submissionID,
		RunSequence:  runSeq,
		Results:      results,
		TotalAwarded: totalAwarded,
		TotalMax:     totalMax,
		Percentage:   percentage,
		Status:       recordStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting evaluation record: %w", err)
	}

	if err := sc.updateSummaryWithRetry(ctx, submissionID, record); err != nil {
		return record, fmt.Errorf("updating submission summary: %w", err)
	}
	return record, nil
}

// updateSummaryWithRetry applies the submission's compact summary pointer,
// refetching and retrying a bounded number of times on ETag conflict.
func (sc *Scorer) updateSummaryWithRetry(ctx context.Context, submissionID string, record *ent.EvaluationRecord) error {
	const maxAttempts = 3
	completed := submission.ScoringStatusCompleted

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		sub, err := sc.store.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}

		evalID := record.ID
		_, err = sc.store.UpdateSubmissionIfMatch(ctx, submissionID, sub.Version, store.SubmissionMutation{
			ScoringStatus:      &completed,
			LatestEvaluationID: &evalID,
			LatestRunSequence:  &record.RunSequence,
			TotalAwarded:       &record.TotalAwarded,
			TotalMax:           &record.TotalMax,
			Percentage:         &record.Percentage,
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

func (sc *Scorer) scoreRubric(ctx context.Context, submissionID string, qMap, answer map[string]interface{}, maxPoints float64) (store.QuestionResult, bool) {
	qID, _ := qMap["id"].(string)
	kind, _ := qMap["kind"].(string)
	stem, _ := qMap["stem"].(string)
	rubric, _ := qMap["rubric"].(map[string]interface{})
	answerKey, _ := qMap["answer_key"].(map[string]interface{})

	var answerText string
	var execOutcome *ExecutionOutcome
	weights := DefaultDescriptiveWeights
	method := "llm_rubric"

	switch kind {
	case "code":
		weights = DefaultCodingWeights
		method = "llm_rubric"
		answerText, _ = answer["source_code"].(string)
		if log, err := sc.store.GetLatestCodeExecutionLog(ctx, submissionID, qID); err == nil {
			execOutcome = &ExecutionOutcome{
				Stdout:   log.Stdout,
				Stderr:   log.Stderr,
				TimedOut: log.TimedOut,
			}
			if log.ExitCode != nil {
				execOutcome.ExitCode = *log.ExitCode
			}
			if log.DurationMs != nil {
				execOutcome.DurationMs = *log.DurationMs
			}
		}
	default:
		answerText, _ = answer["text"].(string)
	}

	result, err := sc.evaluator.ScoreRubric(ctx, RubricRequest{
		QuestionID:       qID,
		Kind:             kind,
		Stem:             stem,
		Answer:           answerText,
		Rubric:           rubric,
		MaxPoints:        maxPoints,
		DefaultWeights:   weights,
		ExecutionOutcome: execOutcome,
	})
	if err != nil {
		return store.QuestionResult{
			QuestionID:    qID,
			Method:        method,
			MaxPoints:     maxPoints,
			PointsAwarded: 0,
			Feedback:      fmt.Sprintf("evaluator_error: %v", err),
			GradedAgainst: answerKey,
		}, true
	}

	return store.QuestionResult{
		QuestionID:      qID,
		Method:          method,
		MaxPoints:       maxPoints,
		PointsAwarded:   result.PointsAwarded,
		RubricBreakdown: result.Breakdown,
		Feedback:        result.Feedback,
		GradedAgainst:   answerKey,
	}, false
}

// scoreMCQ is a pure function over the snapshot's frozen answer key: no I/O,
// no LLM call.
func scoreMCQ(qMap, answer map[string]interface{}, maxPoints float64) store.QuestionResult {
	qID, _ := qMap["id"].(string)
	answerKey, _ := qMap["answer_key"].(map[string]interface{})
	correct, _ := answerKey["correct_option_id"].(string)
	submitted, _ := answer["submitted_option_id"].(string)

	awarded := 0.0
	if submitted != "" && submitted == correct {
		awarded = maxPoints
	}
	return store.QuestionResult{
		QuestionID:    qID,
		Method:        "mcq_deterministic",
		MaxPoints:     maxPoints,
		PointsAwarded: awarded,
		GradedAgainst: answerKey,
	}
}

func findQuestion(questions []map[string]interface{}, id string) map[string]interface{} {
	for _, q := range questions {
		if qID, _ := q["id"].(string); qID == id {
			return q
		}
	}
	return map[string]interface{}{}
}

func pointsFor(pointsByQuestion map[string]interface{}, id string) float64 {
	v, ok := pointsByQuestion[id]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
