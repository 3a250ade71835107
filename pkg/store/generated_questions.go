package store

import (
	"context"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/generatedquestion"
)

// NewGeneratedQuestion is the input to CreateGeneratedQuestion.
type NewGeneratedQuestion struct {
	ID                string
	Topic             string
	Difficulty        generatedquestion.Difficulty
	Kind              generatedquestion.Kind
	Stem              string
	Choices           []string
	AnswerKey         map[string]interface{}
	Rubric            map[string]interface{}
	Embedding         []float32
	ContentHash       string
	PromptFingerprint string
	GeneratorModel    string
}

// CreateGeneratedQuestion caches a freshly-generated question.
func (s *Store) CreateGeneratedQuestion(ctx context.Context, in NewGeneratedQuestion) (*ent.GeneratedQuestion, error) {
	var out *ent.GeneratedQuestion
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.GeneratedQuestion.Create().
			SetID(in.ID).
			SetTopic(in.Topic).
			SetDifficulty(in.Difficulty).
			SetKind(in.Kind).
			SetStem(in.Stem).
			SetAnswerKey(in.AnswerKey).
			SetContentHash(in.ContentHash).
			SetPromptFingerprint(in.PromptFingerprint).
			SetGeneratorModel(in.GeneratorModel)
		if in.Choices != nil {
			b.SetChoices(in.Choices)
		}
		if in.Rubric != nil {
			b.SetRubric(in.Rubric)
		}
		if in.Embedding != nil {
			b.SetEmbedding(in.Embedding)
		}
		q, err := b.Save(ctx)
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, mapErr(err)
}

// FindCachedGeneratedQuestion looks for a previously-generated question for
// the given topic/difficulty that has not yet been used in this
// composition run, letting the composer avoid a redundant generator call.
func (s *Store) FindCachedGeneratedQuestion(ctx context.Context, topic string, difficulty generatedquestion.Difficulty, excludeIDs []string) (*ent.GeneratedQuestion, error) {
	var out *ent.GeneratedQuestion
	err := s.withRetry(ctx, func(ctx context.Context) error {
		q := s.db.GeneratedQuestion.Query().
			Where(
				generatedquestion.Topic(topic),
				generatedquestion.DifficultyEQ(difficulty),
				generatedquestion.PromotedQuestionIDIsNil(),
			)
		if len(excludeIDs) > 0 {
			q = q.Where(generatedquestion.IDNotIn(excludeIDs...))
		}
		row, err := q.First(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// FindGeneratedQuestionByFingerprint looks up a cached generation by its
// prompt fingerprint (skill/type/difficulty shape key), independent of stem
// content. Used by check_duplicate's exact_fingerprint branch.
func (s *Store) FindGeneratedQuestionByFingerprint(ctx context.Context, fingerprint string) (*ent.GeneratedQuestion, error) {
	var out *ent.GeneratedQuestion
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.GeneratedQuestion.Query().
			Where(generatedquestion.PromptFingerprint(fingerprint)).
			First(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// FindGeneratedQuestionByContentHash looks up a cached generation whose stem
// content hash matches, used by check_duplicate's exact_text branch.
func (s *Store) FindGeneratedQuestionByContentHash(ctx context.Context, contentHash string) (*ent.GeneratedQuestion, error) {
	var out *ent.GeneratedQuestion
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.GeneratedQuestion.Query().
			Where(generatedquestion.ContentHash(contentHash)).
			First(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// PromoteGeneratedQuestion marks a cached generation as promoted into the
// catalog proper, recording the new Question's ID for traceability.
func (s *Store) PromoteGeneratedQuestion(ctx context.Context, id, questionID string) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.GeneratedQuestion.UpdateOneID(id).
			SetPromotedQuestionID(questionID).
			Exec(ctx)
	}))
}
