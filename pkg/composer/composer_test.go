package composer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/catalog"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

type fakeGenerator struct {
	probeErr   error
	generated  int
	generateFn func(topic string, difficulty question.Difficulty, kind question.Kind) (composer.GeneratedBody, error)
}

func (f *fakeGenerator) Probe(context.Context) error { return f.probeErr }

func (f *fakeGenerator) Generate(_ context.Context, topic string, difficulty question.Difficulty, kind question.Kind) (composer.GeneratedBody, error) {
	f.generated++
	if f.generateFn != nil {
		return f.generateFn(topic, difficulty, kind)
	}
	return composer.GeneratedBody{
		Stem:      "generated stem for " + topic,
		Choices:   []string{"a", "b", "c"},
		AnswerKey: map[string]interface{}{"correct": "a"},
		Rubric:    map[string]interface{}{"criteria": []interface{}{}},
		Model:     "fake-model",
	}, nil
}

func newTestComposer(t *testing.T, gen composer.Generator) (*composer.Composer, *store.Store, *catalog.Catalog) {
	t.Helper()
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	clk := clock.SystemClock{}
	cfg := config.DefaultSessionConfig()
	return composer.New(st, cat, gen, clk, cfg), st, cat
}

func TestComposeCuratedOnlySatisfiesFromBank(t *testing.T) {
	comp, _, cat := newTestComposer(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cat.Create(ctx, catalog.NewQuestionInput{
			Topic:      "algorithms",
			Kind:       question.KindMultipleChoice,
			Difficulty: question.DifficultyMedium,
			Stem:       "curated stem " + clock.NewID(),
			Choices:    []string{"a", "b"},
			AnswerKey:  map[string]interface{}{"correct": "a"},
		})
		require.NoError(t, err)
	}

	snapshotID, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "algorithms",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyMedium,
			Count:            2,
			SourcePreference: composer.PreferenceCuratedOnly,
		}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, snapshotID)
}

func TestComposeCuratedOnlyFailsWhenBankShort(t *testing.T) {
	comp, _, _ := newTestComposer(t, nil)
	ctx := context.Background()

	_, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "nonexistent-topic",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyMedium,
			Count:            1,
			SourcePreference: composer.PreferenceCuratedOnly,
		}},
	})
	require.Error(t, err)
}

func TestComposeAIOnlyFallsThroughToGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	comp, st, _ := newTestComposer(t, gen)
	ctx := context.Background()

	snapshotID, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "databases",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyHard,
			Count:            2,
			SourcePreference: composer.PreferenceAIOnly,
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, gen.generated, "every AI-only pick must come from a fresh generation")

	snap, err := st.GetSnapshot(ctx, snapshotID)
	require.NoError(t, err)
	require.True(t, snap.UsedFallbackGeneration)
	require.Len(t, snap.QuestionIDs, 2)
}

func TestComposeAIOnlyWithoutGeneratorFails(t *testing.T) {
	comp, _, _ := newTestComposer(t, nil)
	ctx := context.Background()

	_, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "databases",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyHard,
			Count:            1,
			SourcePreference: composer.PreferenceAIOnly,
		}},
	})
	require.ErrorIs(t, err, composer.ErrGeneratorUnavailable)
}

func TestComposeHybridPrefersCuratedBeforeGenerating(t *testing.T) {
	gen := &fakeGenerator{}
	comp, _, cat := newTestComposer(t, gen)
	ctx := context.Background()

	_, err := cat.Create(ctx, catalog.NewQuestionInput{
		Topic:      "networking",
		Kind:       question.KindMultipleChoice,
		Difficulty: question.DifficultyEasy,
		Stem:       "curated networking stem",
		Choices:    []string{"a", "b"},
		AnswerKey:  map[string]interface{}{"correct": "a"},
	})
	require.NoError(t, err)

	snapshotID, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "networking",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyEasy,
			Count:            2,
			SourcePreference: composer.PreferenceHybrid,
		}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, snapshotID)
	require.Equal(t, 1, gen.generated, "the one curated question on hand should not be regenerated")
}

func TestComposeFailsAssessmentIncompleteBelowMinimum(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	clk := clock.SystemClock{}
	cfg := config.DefaultSessionConfig()
	cfg.MinQuestionsRequired = 5
	comp := composer.New(st, cat, nil, clk, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cat.Create(ctx, catalog.NewQuestionInput{
			Topic:      "algorithms",
			Kind:       question.KindMultipleChoice,
			Difficulty: question.DifficultyMedium,
			Stem:       "curated stem " + clock.NewID(),
			Choices:    []string{"a", "b"},
			AnswerKey:  map[string]interface{}{"correct": "a"},
		})
		require.NoError(t, err)
	}

	_, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "algorithms",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyMedium,
			Count:            2,
			SourcePreference: composer.PreferenceCuratedOnly,
		}},
	})
	require.ErrorIs(t, err, composer.ErrAssessmentIncomplete,
		"2 total picks must fail MIN_QUESTIONS_REQUIRED=5 even though the one entry was individually satisfied")
}

func TestComposeStrictModeDisallowsGenerationFallbackForHybrid(t *testing.T) {
	gen := &fakeGenerator{}
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	clk := clock.SystemClock{}
	cfg := config.DefaultSessionConfig()
	cfg.StrictMode = true
	comp := composer.New(st, cat, gen, clk, cfg)
	ctx := context.Background()

	_, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "unstocked-topic",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyMedium,
			Count:            1,
			SourcePreference: composer.PreferenceHybrid,
		}},
	})
	require.ErrorIs(t, err, composer.ErrAssessmentIncomplete)
	require.Zero(t, gen.generated, "strict mode must refuse the live-generation tier for hybrid entries, not merely skip it silently")
}

func TestComposeSurfacesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{probeErr: errors.New("generator unreachable")}
	comp, _, _ := newTestComposer(t, gen)
	ctx := context.Background()

	_, err := comp.Compose(ctx, composer.Spec{
		Entries: []composer.Entry{{
			Topic:            "security",
			Kind:             question.KindMultipleChoice,
			Difficulty:       question.DifficultyHard,
			Count:            1,
			SourcePreference: composer.PreferenceAIOnly,
		}},
	})
	require.ErrorIs(t, err, composer.ErrGeneratorUnavailable)
}
