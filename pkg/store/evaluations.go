package store

import (
	"context"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/evaluationrecord"
)

// QuestionResult is one question's outcome within an EvaluationRecord.
// Stored as an element of the record's results JSON array.
type QuestionResult struct {
	QuestionID      string                 `json:"question_id"`
	Method          string                 `json:"method"`
	MaxPoints       float64                `json:"max_points"`
	PointsAwarded   float64                `json:"points_awarded"`
	RubricBreakdown map[string]interface{} `json:"rubric_breakdown,omitempty"`
	Feedback        string                 `json:"feedback,omitempty"`
	GradedAgainst   map[string]interface{} `json:"graded_against,omitempty"`
}

// NewEvaluationRecord is the input to CreateEvaluationRecord.
type NewEvaluationRecord struct {
	ID           string
	SubmissionID string
	RunSequence  int
	Results      []QuestionResult
	TotalAwarded float64
	TotalMax     float64
	Percentage   float64
	Status       evaluationrecord.Status
}

// CreateEvaluationRecord persists one completed scoring pass. Records are
// append-only: a rescore is a new row at RunSequence+1, never a mutation of
// a prior run.
func (s *Store) CreateEvaluationRecord(ctx context.Context, in NewEvaluationRecord) (*ent.EvaluationRecord, error) {
	results := make([]map[string]interface{}, 0, len(in.Results))
	for _, r := range in.Results {
		results = append(results, map[string]interface{}{
			"question_id":      r.QuestionID,
			"method":           r.Method,
			"max_points":       r.MaxPoints,
			"points_awarded":   r.PointsAwarded,
			"rubric_breakdown": r.RubricBreakdown,
			"feedback":         r.Feedback,
			"graded_against":   r.GradedAgainst,
		})
	}
	status := in.Status
	if status == "" {
		status = evaluationrecord.StatusCompleted
	}

	var out *ent.EvaluationRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.EvaluationRecord.Create().
			SetID(in.ID).
			SetSubmissionID(in.SubmissionID).
			SetRunSequence(in.RunSequence).
			SetResults(results).
			SetTotalAwarded(in.TotalAwarded).
			SetTotalMax(in.TotalMax).
			SetPercentage(in.Percentage).
			SetStatus(status).
			Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// LatestRunSequence returns the highest run_sequence recorded for a
// submission, or 0 if none exists, so Scoring Triage can compute the next
// rescore's sequence number.
func (s *Store) LatestRunSequence(ctx context.Context, submissionID string) (int, error) {
	var out int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.EvaluationRecord.Query().
			Where(evaluationrecord.SubmissionID(submissionID)).
			Order(ent.Desc(evaluationrecord.FieldRunSequence)).
			First(ctx)
		if err != nil {
			if ent.IsNotFound(err) {
				out = 0
				return nil
			}
			return err
		}
		out = row.RunSequence
		return nil
	})
	return out, mapErr(err)
}

// GetEvaluationRecordByRun fetches one submission's evaluation at a
// specific run_sequence.
func (s *Store) GetEvaluationRecordByRun(ctx context.Context, submissionID string, runSequence int) (*ent.EvaluationRecord, error) {
	var out *ent.EvaluationRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.EvaluationRecord.Query().
			Where(
				evaluationrecord.SubmissionID(submissionID),
				evaluationrecord.RunSequence(runSequence),
			).
			Only(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// GetLatestEvaluationRecord fetches a submission's most recent scoring run.
func (s *Store) GetLatestEvaluationRecord(ctx context.Context, submissionID string) (*ent.EvaluationRecord, error) {
	var out *ent.EvaluationRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.EvaluationRecord.Query().
			Where(evaluationrecord.SubmissionID(submissionID)).
			Order(ent.Desc(evaluationrecord.FieldRunSequence)).
			First(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// ListEvaluationRecordsBySubmission returns every scoring run for a
// submission, oldest first.
func (s *Store) ListEvaluationRecordsBySubmission(ctx context.Context, submissionID string) ([]*ent.EvaluationRecord, error) {
	var out []*ent.EvaluationRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.EvaluationRecord.Query().
			Where(evaluationrecord.SubmissionID(submissionID)).
			Order(ent.Asc(evaluationrecord.FieldRunSequence)).
			All(ctx)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, mapErr(err)
}
