package store

import (
	"context"

	"github.com/assessment-platform/enginer/ent"
)

// NewSnapshot is the input to CreateSnapshot.
type NewSnapshot struct {
	ID                     string
	CompositionSpec        map[string]interface{}
	QuestionIDs            []string
	PointsByQuestion       map[string]interface{}
	Questions              []map[string]interface{}
	TotalPoints            int
	TimeLimitSeconds       int
	GracePeriodSeconds     int
	ViolationLimit         int
	UsedFallbackGeneration bool
}

// CreateSnapshot freezes a composed assessment. AssessmentSnapshot rows are
// never updated after creation; every field but the ID is set at insert
// time.
func (s *Store) CreateSnapshot(ctx context.Context, in NewSnapshot) (*ent.AssessmentSnapshot, error) {
	var out *ent.AssessmentSnapshot
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.AssessmentSnapshot.Create().
			SetID(in.ID).
			SetCompositionSpec(in.CompositionSpec).
			SetQuestionIDs(in.QuestionIDs).
			SetPointsByQuestion(in.PointsByQuestion).
			SetQuestions(in.Questions).
			SetTotalPoints(in.TotalPoints).
			SetTimeLimitSeconds(in.TimeLimitSeconds).
			SetGracePeriodSeconds(in.GracePeriodSeconds).
			SetViolationLimit(in.ViolationLimit).
			SetUsedFallbackGeneration(in.UsedFallbackGeneration).
			Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// GetSnapshot fetches a frozen assessment composition by ID.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*ent.AssessmentSnapshot, error) {
	var out *ent.AssessmentSnapshot
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.AssessmentSnapshot.Get(ctx, id)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}
