package store

import (
	"context"
	"errors"
	"time"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/question"
)

// NewQuestion is the input to CreateQuestion.
type NewQuestion struct {
	ID          string
	Topic       string
	Kind        question.Kind
	Difficulty  question.Difficulty
	Stem        string
	Choices     []string
	AnswerKey   map[string]interface{}
	Rubric      map[string]interface{}
	Tags        []string
	Source      question.Source
	ContentHash string
	Embedding   []float32
}

// CreateQuestion inserts a new catalog entry.
func (s *Store) CreateQuestion(ctx context.Context, in NewQuestion) (*ent.Question, error) {
	var out *ent.Question
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.Question.Create().
			SetID(in.ID).
			SetTopic(in.Topic).
			SetKind(in.Kind).
			SetDifficulty(in.Difficulty).
			SetStem(in.Stem).
			SetAnswerKey(in.AnswerKey).
			SetContentHash(in.ContentHash).
			SetSource(in.Source)
		if in.Choices != nil {
			b.SetChoices(in.Choices)
		}
		if in.Rubric != nil {
			b.SetRubric(in.Rubric)
		}
		if in.Tags != nil {
			b.SetTags(in.Tags)
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

// GetQuestion fetches a question by ID. Soft-deleted questions are still
// returned: callers that should honor the tombstone check DeletedAt
// themselves (e.g. the catalog browsing path), while the composer may
// legitimately need a deleted question's history.
func (s *Store) GetQuestion(ctx context.Context, id string) (*ent.Question, error) {
	var out *ent.Question
	err := s.withRetry(ctx, func(ctx context.Context) error {
		q, err := s.db.Question.Get(ctx, id)
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, mapErr(err)
}

// QuestionFilter narrows ListQuestions by topic/difficulty/kind. Zero
// values are treated as "don't filter on this field".
type QuestionFilter struct {
	Topic            string
	Difficulty       question.Difficulty
	Kind             question.Kind
	ExcludeSoftDeleted bool
	Limit            int
}

// ListQuestions returns curated catalog entries matching the filter,
// ordered by usage_count ascending so the composer's curated-first tier
// naturally favors under-used questions.
func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter) ([]*ent.Question, error) {
	var out []*ent.Question
	err := s.withRetry(ctx, func(ctx context.Context) error {
		q := s.db.Question.Query()
		if f.Topic != "" {
			q = q.Where(question.Topic(f.Topic))
		}
		if f.Difficulty != "" {
			q = q.Where(question.DifficultyEQ(f.Difficulty))
		}
		if f.Kind != "" {
			q = q.Where(question.KindEQ(f.Kind))
		}
		if f.ExcludeSoftDeleted {
			q = q.Where(question.DeletedAtIsNil())
		}
		q = q.Order(ent.Asc(question.FieldUsageCount))
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		rows, err := q.All(ctx)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, mapErr(err)
}

// FindQuestionByContentHash locates a catalog entry with a matching
// normalized-stem hash, used by the catalog's duplicate check before a
// generated question is ever considered.
func (s *Store) FindQuestionByContentHash(ctx context.Context, hash string) (*ent.Question, error) {
	var out *ent.Question
	err := s.withRetry(ctx, func(ctx context.Context) error {
		q, err := s.db.Question.Query().Where(question.ContentHash(hash)).Only(ctx)
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, mapErr(err)
}

// IncrementQuestionUsage bumps usage_count and version for a question that
// was just composed into a snapshot. Uses update_if_match semantics against
// the caller's observed version to avoid racing a concurrent composition
// run against the same question.
func (s *Store) IncrementQuestionUsage(ctx context.Context, id string, expectedVersion int) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		n, err := s.db.Question.Update().
			Where(question.ID(id), question.Version(expectedVersion)).
			AddUsageCount(1).
			AddVersion(1).
			Save(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
		return nil
	}))
}

// SoftDeleteQuestion sets deleted_at, removing the question from future
// catalog compositions without losing its evaluation history.
func (s *Store) SoftDeleteQuestion(ctx context.Context, id string, deletedAt time.Time) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.Question.UpdateOneID(id).
			SetDeletedAt(deletedAt).
			AddVersion(1).
			Exec(ctx)
	}))
}

// PurgeSoftDeletedQuestions permanently deletes questions whose deleted_at
// is older than cutoff, in batches of at most limit. Run well after
// SoftDeleteQuestion so any snapshot still referencing the question by ID
// has had time to finish scoring.
func (s *Store) PurgeSoftDeletedQuestions(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var n int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		ids, err := s.db.Question.Query().
			Where(question.DeletedAtNotNil(), question.DeletedAtLT(cutoff)).
			Limit(limit).
			IDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		deleted, err := s.db.Question.Delete().
			Where(question.IDIn(ids...)).
			Exec(ctx)
		if err != nil {
			return err
		}
		n = deleted
		return nil
	})
	return n, mapErr(err)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) {
		return ErrConflict
	}
	if ent.IsNotFound(err) {
		return ErrNotFound
	}
	if ent.IsConstraintError(err) {
		return ErrDuplicate
	}
	return err
}
