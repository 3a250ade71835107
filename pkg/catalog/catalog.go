// Package catalog implements the Question Catalog: normalization, duplicate
// detection, and browsing over the curated question bank, sitting directly
// on top of pkg/store.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/rag"
	"github.com/assessment-platform/enginer/pkg/store"
)

// Catalog is the Question Catalog facade.
type Catalog struct {
	store    *store.Store
	embedder rag.Embedder
	cfg      *config.RAGConfig
}

// New constructs a Catalog over store, using embedder for semantic
// duplicate checks per cfg's similarity threshold.
func New(st *store.Store, embedder rag.Embedder, cfg *config.RAGConfig) *Catalog {
	return &Catalog{store: st, embedder: embedder, cfg: cfg}
}

// Normalize canonicalizes a question stem for duplicate detection: folds
// case, collapses whitespace. Two stems that normalize to the same string
// are exact duplicates regardless of formatting differences.
func Normalize(stem string) string {
	fields := strings.Fields(strings.ToLower(stem))
	return strings.Join(fields, " ")
}

// ContentHash returns the hash of a normalized stem used as the catalog's
// exact-duplicate key.
func ContentHash(stem string) string {
	sum := sha256.Sum256([]byte(Normalize(stem)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint derives the shape-only cache key for a generated-question
// lookup: SHA-256(skill|kind|difficulty), independent of stem content. Two
// generation requests for the same skill/kind/difficulty collide here even
// if their stems differ, which is exactly the generator-cache's dedup key.
func Fingerprint(skill string, kind question.Kind, difficulty question.Difficulty) string {
	sum := sha256.Sum256([]byte(Normalize(skill) + "|" + string(kind) + "|" + string(difficulty)))
	return hex.EncodeToString(sum[:])
}

// DuplicateCheck is the outcome of CheckDuplicate. ExactFingerprintID and
// ExactTextID are independent axes: a generation can collide on shape
// (fingerprint) without colliding on content, and vice versa.
type DuplicateCheck struct {
	IsDuplicate        bool
	ExactFingerprintID string
	ExactTextID        string
	SemanticMatchID    string
	Similarity         float64
}

// CheckDuplicate runs the Question Catalog's three-way duplicate scan:
// an exact prompt-fingerprint match against the generated-question cache,
// an exact content-hash match against curated questions and the
// generated-question cache, and (only when no exact content-hash match was
// found) a semantic similarity scan against curated questions in the same
// topic. A fingerprint match alone does not skip the semantic scan.
func (c *Catalog) CheckDuplicate(ctx context.Context, skill string, kind question.Kind, difficulty question.Difficulty, stem string) (DuplicateCheck, error) {
	var result DuplicateCheck

	fp := Fingerprint(skill, kind, difficulty)
	if cached, err := c.store.FindGeneratedQuestionByFingerprint(ctx, fp); err == nil {
		result.IsDuplicate = true
		result.ExactFingerprintID = cached.ID
	} else if err != store.ErrNotFound {
		return DuplicateCheck{}, fmt.Errorf("fingerprint lookup: %w", err)
	}

	hash := ContentHash(stem)
	if existing, err := c.store.FindQuestionByContentHash(ctx, hash); err == nil {
		result.IsDuplicate = true
		result.ExactTextID = existing.ID
		result.Similarity = 1.0
	} else if err != store.ErrNotFound {
		return DuplicateCheck{}, fmt.Errorf("content hash lookup: %w", err)
	} else if cached, err := c.store.FindGeneratedQuestionByContentHash(ctx, hash); err == nil {
		result.IsDuplicate = true
		result.ExactTextID = cached.ID
		result.Similarity = 1.0
	} else if err != store.ErrNotFound {
		return DuplicateCheck{}, fmt.Errorf("content hash lookup: %w", err)
	}

	if result.ExactTextID != "" || c.embedder == nil {
		return result, nil
	}

	candidates, err := c.embeddedCandidates(ctx, skill)
	if err != nil {
		return DuplicateCheck{}, err
	}
	if len(candidates) == 0 {
		return result, nil
	}

	idx := rag.NewIndex(c.embedder, candidates)
	matches, err := idx.Query(ctx, stem, 1)
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("similarity scan: %w", err)
	}
	if len(matches) == 0 {
		return result, nil
	}

	best := matches[0]
	if best.Similarity > result.Similarity {
		result.Similarity = best.Similarity
	}
	if best.Similarity >= c.cfg.SimilarityThreshold {
		result.IsDuplicate = true
		result.SemanticMatchID = best.ID
	}
	return result, nil
}

func (c *Catalog) embeddedCandidates(ctx context.Context, topic string) ([]rag.Candidate, error) {
	rows, err := c.store.ListQuestions(ctx, store.QuestionFilter{Topic: topic, ExcludeSoftDeleted: true})
	if err != nil {
		return nil, err
	}
	candidates := make([]rag.Candidate, 0, len(rows))
	for _, q := range rows {
		if len(q.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, rag.Candidate{ID: q.ID, Embedding: q.Embedding})
	}
	return candidates, nil
}

// NewQuestionInput describes a curated question to add to the catalog.
type NewQuestionInput struct {
	Topic      string
	Kind       question.Kind
	Difficulty question.Difficulty
	Stem       string
	Choices    []string
	AnswerKey  map[string]interface{}
	Rubric     map[string]interface{}
	Tags       []string
}

// Create adds a curated question after embedding its stem for future
// duplicate checks.
func (c *Catalog) Create(ctx context.Context, in NewQuestionInput) (string, error) {
	var embedding []float32
	if c.embedder != nil {
		emb, err := c.embedder.Embed(ctx, in.Stem)
		if err == nil {
			embedding = emb
		}
	}

	id := clock.NewID()
	_, err := c.store.CreateQuestion(ctx, store.NewQuestion{
		ID:          id,
		Topic:       in.Topic,
		Kind:        in.Kind,
		Difficulty:  in.Difficulty,
		Stem:        in.Stem,
		Choices:     in.Choices,
		AnswerKey:   in.AnswerKey,
		Rubric:      in.Rubric,
		Tags:        in.Tags,
		Source:      question.SourceCurated,
		ContentHash: ContentHash(in.Stem),
		Embedding:   embedding,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Query browses the curated catalog by topic/difficulty/kind, ordered by
// usage_count ascending (see ListQuestions).
func (c *Catalog) Query(ctx context.Context, f store.QuestionFilter) ([]*ent.Question, error) {
	return c.store.ListQuestions(ctx, f)
}
