// Package composer implements the Assessment Composer: tiered fallback
// question selection (curated -> generated cache -> live generation) that
// freezes its picks into an immutable AssessmentSnapshot.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/generatedquestion"
	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/catalog"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/retry"
	"github.com/assessment-platform/enginer/pkg/store"
)

// SourcePreference controls which tiers an entry is allowed to draw from.
type SourcePreference string

const (
	PreferenceHybrid      SourcePreference = "hybrid"
	PreferenceCuratedOnly SourcePreference = "curated_only"
	PreferenceAIOnly      SourcePreference = "ai_only"
)

// Entry is one line item of a composition request: N questions of a given
// topic/kind/difficulty, drawn per SourcePreference.
type Entry struct {
	Topic            string
	Kind             question.Kind
	Difficulty       question.Difficulty
	Count            int
	SourcePreference SourcePreference
}

// Spec is the full input to Compose.
type Spec struct {
	Entries            []Entry
	TimeLimitSeconds   int
	GracePeriodSeconds int
	ViolationLimit     int
}

// GeneratedBody is what the Question Generator Adapter returns for one
// freshly-generated question.
type GeneratedBody struct {
	Stem      string
	Choices   []string
	AnswerKey map[string]interface{}
	Rubric    map[string]interface{}
	Embedding []float32
	Model     string
}

// Generator is the narrow view of pkg/evaluator's Question Generator
// Adapter the composer needs, kept local to avoid a dependency on the
// evaluator package's gRPC plumbing.
type Generator interface {
	Probe(ctx context.Context) error
	Generate(ctx context.Context, topic string, difficulty question.Difficulty, kind question.Kind) (GeneratedBody, error)
}

// ErrGeneratorUnavailable is returned when composition needs a live
// generation and the generator health probe failed.
var ErrGeneratorUnavailable = fmt.Errorf("composer: generator unavailable")

// ErrAssessmentIncomplete is returned when a composition's total question
// count falls short of MIN_QUESTIONS_REQUIRED, whether because an entry ran
// out of fallback tiers or because strict mode refused to use one.
var ErrAssessmentIncomplete = fmt.Errorf("composer: assessment incomplete")

// Composer is the Assessment Composer facade.
type Composer struct {
	store     *store.Store
	catalog   *catalog.Catalog
	generator Generator
	clock     clock.Clock
	cfg       *config.SessionConfig
}

// New constructs a Composer.
func New(st *store.Store, cat *catalog.Catalog, gen Generator, clk clock.Clock, cfg *config.SessionConfig) *Composer {
	return &Composer{store: st, catalog: cat, generator: gen, clock: clk, cfg: cfg}
}

type pick struct {
	questionID string
	source     string // curated | cache | ai
}

// Compose runs the tiered fallback algorithm over spec and freezes the
// result into an AssessmentSnapshot, returning its ID.
func (c *Composer) Compose(ctx context.Context, spec Spec) (string, error) {
	if spec.TimeLimitSeconds == 0 {
		spec.TimeLimitSeconds = c.cfg.DefaultTimeLimitSeconds
	}
	if spec.GracePeriodSeconds == 0 {
		spec.GracePeriodSeconds = c.cfg.DefaultGracePeriodSeconds
	}
	if spec.ViolationLimit == 0 {
		spec.ViolationLimit = c.cfg.DefaultViolationLimit
	}

	var picks []pick
	usedFallback := false
	needsGeneration := false
	for _, e := range spec.Entries {
		if e.SourcePreference == PreferenceHybrid || e.SourcePreference == PreferenceAIOnly {
			needsGeneration = true
		}
	}

	if needsGeneration && c.generator != nil {
		if err := c.probeGenerator(ctx); err != nil {
			// Only a hard failure if some entry actually requires AI
			// picks; step 1/2 may still satisfy everything.
			slog.WarnContext(ctx, "generator probe failed before composition", "error", err)
		}
	}

	for _, e := range spec.Entries {
		remaining := e.Count

		if remaining > 0 && e.SourcePreference != PreferenceAIOnly {
			curated, err := c.catalog.Query(ctx, store.QuestionFilter{
				Topic: e.Topic, Difficulty: e.Difficulty, Kind: e.Kind,
				ExcludeSoftDeleted: true, Limit: remaining,
			})
			if err != nil {
				return "", fmt.Errorf("querying curated bank: %w", err)
			}
			for _, q := range curated {
				picks = append(picks, pick{questionID: q.ID, source: "curated"})
				remaining--
			}
		}

		if remaining > 0 && e.SourcePreference != PreferenceCuratedOnly {
			exclude := make([]string, 0, len(picks))
			for remaining > 0 {
				cached, err := c.store.FindCachedGeneratedQuestion(ctx, e.Topic, generatedDifficulty(e.Difficulty), exclude)
				if err != nil {
					break
				}
				promotedID, err := c.promoteCached(ctx, cached)
				if err != nil {
					return "", fmt.Errorf("promoting cached generation: %w", err)
				}
				picks = append(picks, pick{questionID: promotedID, source: "cache"})
				exclude = append(exclude, cached.ID)
				remaining--
			}
		}

		if remaining > 0 && e.SourcePreference != PreferenceCuratedOnly {
			if c.cfg.StrictMode && e.SourcePreference == PreferenceHybrid {
				return "", fmt.Errorf("%w: strict mode disallows live generation for hybrid entry %q: %d short", ErrAssessmentIncomplete, e.Topic, remaining)
			}
			if c.generator == nil {
				return "", fmt.Errorf("%w: no generator configured", ErrGeneratorUnavailable)
			}
			if err := c.probeGenerator(ctx); err != nil {
				return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
			}
			for remaining > 0 {
				id, err := c.generateOne(ctx, e.Topic, e.Difficulty, e.Kind)
				if err != nil {
					return "", fmt.Errorf("generating question: %w", err)
				}
				picks = append(picks, pick{questionID: id, source: "ai"})
				usedFallback = true
				remaining--
			}
		}

		if remaining > 0 {
			return "", fmt.Errorf("composer: could not satisfy entry for topic %q: %d short", e.Topic, remaining)
		}
	}

	if len(picks) < c.cfg.MinQuestionsRequired {
		return "", fmt.Errorf("%w: %d picks, need at least %d", ErrAssessmentIncomplete, len(picks), c.cfg.MinQuestionsRequired)
	}

	// Best-effort usage bump; failures are logged, composition proceeds.
	questionIDs := make([]string, 0, len(picks))
	pointsByQuestion := make(map[string]interface{}, len(picks))
	deepCopies := make([]map[string]interface{}, 0, len(picks))
	for _, p := range picks {
		q, err := c.store.GetQuestion(ctx, p.questionID)
		if err != nil {
			return "", fmt.Errorf("reloading composed question %s: %w", p.questionID, err)
		}

		questionIDs = append(questionIDs, p.questionID)
		pointsByQuestion[p.questionID] = 1.0
		deepCopies = append(deepCopies, map[string]interface{}{
			"id":         q.ID,
			"topic":      q.Topic,
			"kind":       string(q.Kind),
			"difficulty": string(q.Difficulty),
			"stem":       q.Stem,
			"choices":    q.Choices,
			"answer_key": q.AnswerKey,
			"rubric":     q.Rubric,
			"source":     p.source,
		})

		if p.source == "curated" || p.source == "cache" {
			if err := c.store.IncrementQuestionUsage(ctx, p.questionID, q.Version); err != nil {
				slog.WarnContext(ctx, "usage counter bump failed", "question_id", p.questionID, "error", err)
			}
		}
	}

	snap, err := c.store.CreateSnapshot(ctx, store.NewSnapshot{
		ID:                     clock.NewID(),
		CompositionSpec:        specToMap(spec),
		QuestionIDs:            questionIDs,
		PointsByQuestion:       pointsByQuestion,
		Questions:              deepCopies,
		TotalPoints:            len(questionIDs),
		TimeLimitSeconds:       spec.TimeLimitSeconds,
		GracePeriodSeconds:     spec.GracePeriodSeconds,
		ViolationLimit:         spec.ViolationLimit,
		UsedFallbackGeneration: usedFallback,
	})
	if err != nil {
		return "", fmt.Errorf("persisting snapshot: %w", err)
	}

	return snap.ID, nil
}

func (c *Composer) probeGenerator(ctx context.Context) error {
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    8 * time.Second,
		Classify:    retry.ClassifyError,
	}
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		return c.generator.Probe(ctx)
	})
}

// generateOne requests a single live generation, caches it, and immediately
// promotes it into the curated catalog: a generation produced for this
// composition run is consumed exactly once, so there is no benefit to
// leaving it unpromoted in the cache.
func (c *Composer) generateOne(ctx context.Context, topic string, difficulty question.Difficulty, kind question.Kind) (string, error) {
	body, err := c.generator.Generate(ctx, topic, difficulty, kind)
	if err != nil {
		return "", err
	}

	genID := clock.NewID()
	hash := catalog.ContentHash(body.Stem)
	fingerprint := catalog.Fingerprint(topic, kind, difficulty)
	cached, err := c.store.CreateGeneratedQuestion(ctx, store.NewGeneratedQuestion{
		ID:                genID,
		Topic:             topic,
		Difficulty:        generatedDifficulty(difficulty),
		Kind:              generatedquestion.Kind(kind),
		Stem:              body.Stem,
		Choices:           body.Choices,
		AnswerKey:         body.AnswerKey,
		Rubric:            body.Rubric,
		Embedding:         body.Embedding,
		ContentHash:       hash,
		PromptFingerprint: fingerprint,
		GeneratorModel:    body.Model,
	})
	if err != nil {
		return "", err
	}

	return c.promoteCached(ctx, cached)
}

// promoteCached copies a generated-question cache entry into the curated
// Question catalog and marks the cache row as promoted so it is never
// selected again by FindCachedGeneratedQuestion.
func (c *Composer) promoteCached(ctx context.Context, cached *ent.GeneratedQuestion) (string, error) {
	questionID := clock.NewID()
	_, err := c.store.CreateQuestion(ctx, store.NewQuestion{
		ID:          questionID,
		Topic:       cached.Topic,
		Kind:        question.Kind(cached.Kind),
		Difficulty:  question.Difficulty(cached.Difficulty),
		Stem:        cached.Stem,
		Choices:     cached.Choices,
		AnswerKey:   cached.AnswerKey,
		Rubric:      cached.Rubric,
		Source:      question.SourceGenerated,
		ContentHash: cached.ContentHash,
		Embedding:   cached.Embedding,
	})
	if err != nil {
		return "", fmt.Errorf("creating promoted question: %w", err)
	}
	if err := c.store.PromoteGeneratedQuestion(ctx, cached.ID, questionID); err != nil {
		return "", fmt.Errorf("marking generation promoted: %w", err)
	}
	return questionID, nil
}

func specToMap(spec Spec) map[string]interface{} {
	entries := make([]map[string]interface{}, 0, len(spec.Entries))
	for _, e := range spec.Entries {
		entries = append(entries, map[string]interface{}{
			"topic":             e.Topic,
			"kind":              string(e.Kind),
			"difficulty":        string(e.Difficulty),
			"count":             e.Count,
			"source_preference": string(e.SourcePreference),
		})
	}
	return map[string]interface{}{
		"entries":              entries,
		"time_limit_seconds":   spec.TimeLimitSeconds,
		"grace_period_seconds": spec.GracePeriodSeconds,
		"violation_limit":      spec.ViolationLimit,
	}
}

func generatedDifficulty(d question.Difficulty) generatedquestion.Difficulty {
	return generatedquestion.Difficulty(d)
}
