package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/ent/generatedquestion"
	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/catalog"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/rag"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

func TestCheckDuplicateFindsExactContentHash(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	ctx := context.Background()

	id, err := cat.Create(ctx, catalog.NewQuestionInput{
		Topic:      "algorithms",
		Kind:       question.KindMultipleChoice,
		Difficulty: question.DifficultyEasy,
		Stem:       "What is the time complexity of binary search?",
		Choices:    []string{"O(n)", "O(log n)"},
		AnswerKey:  map[string]interface{}{"correct_option_id": "O(log n)"},
	})
	require.NoError(t, err)

	check, err := cat.CheckDuplicate(ctx, "algorithms", question.KindMultipleChoice, question.DifficultyEasy, "  WHAT IS   the time complexity of Binary Search?  ")
	require.NoError(t, err)
	require.True(t, check.IsDuplicate)
	require.Equal(t, id, check.ExactTextID)
	require.Equal(t, 1.0, check.Similarity)
}

func TestCheckDuplicateNoMatchWithoutEmbedder(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	ctx := context.Background()

	_, err := cat.Create(ctx, catalog.NewQuestionInput{
		Topic:      "databases",
		Kind:       question.KindFreeText,
		Difficulty: question.DifficultyMedium,
		Stem:       "Explain ACID guarantees.",
		AnswerKey:  map[string]interface{}{},
	})
	require.NoError(t, err)

	// A differently worded stem with no embedder configured can only be
	// compared by exact content hash, which won't match.
	check, err := cat.CheckDuplicate(ctx, "databases", question.KindFreeText, question.DifficultyMedium, "What does the A in ACID stand for?")
	require.NoError(t, err)
	require.False(t, check.IsDuplicate)
}

func TestCheckDuplicateFindsSemanticMatchViaEmbedder(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	embedder := rag.NewMockEmbedder(16)
	cfg := config.DefaultRAGConfig()
	cfg.SimilarityThreshold = 0 // MockEmbedder's deterministic vectors don't reliably clear a high bar
	cat := catalog.New(st, embedder, cfg)
	ctx := context.Background()

	stem := "Describe how a hash table resolves collisions."
	id, err := cat.Create(ctx, catalog.NewQuestionInput{
		Topic:      "data-structures",
		Kind:       question.KindFreeText,
		Difficulty: question.DifficultyMedium,
		Stem:       stem,
		AnswerKey:  map[string]interface{}{},
	})
	require.NoError(t, err)

	// Swapping the final "." for "!" changes the normalized stem, so there is
	// no exact content-hash match and the semantic branch runs; under the
	// deterministic mock the two stems embed with cosine similarity of about
	// 0.99, well above the permissive threshold.
	check, err := cat.CheckDuplicate(ctx, "data-structures", question.KindFreeText, question.DifficultyMedium, "Describe how a hash table resolves collisions!")
	require.NoError(t, err)
	require.True(t, check.IsDuplicate)
	require.Equal(t, id, check.SemanticMatchID)
}

func TestCheckDuplicateFindsExactFingerprintAgainstGeneratedCache(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	ctx := context.Background()

	fp := catalog.Fingerprint("concurrency", question.KindFreeText, question.DifficultyHard)
	cached, err := st.CreateGeneratedQuestion(ctx, store.NewGeneratedQuestion{
		ID:                clock.NewID(),
		Topic:             "concurrency",
		Difficulty:        generatedquestion.DifficultyHard,
		Kind:              generatedquestion.KindFreeText,
		Stem:              "Explain a race condition in a producer/consumer queue.",
		AnswerKey:         map[string]interface{}{},
		ContentHash:       catalog.ContentHash("Explain a race condition in a producer/consumer queue."),
		PromptFingerprint: fp,
		GeneratorModel:    "fake-model",
	})
	require.NoError(t, err)

	// Same skill/type/difficulty shape, an entirely different stem: only the
	// fingerprint branch should fire, not the content-hash branch.
	check, err := cat.CheckDuplicate(ctx, "concurrency", question.KindFreeText, question.DifficultyHard, "Describe a deadlock scenario with two mutexes.")
	require.NoError(t, err)
	require.True(t, check.IsDuplicate)
	require.Equal(t, cached.ID, check.ExactFingerprintID)
	require.Empty(t, check.ExactTextID)
}

func TestQueryFiltersByTopic(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	cat := catalog.New(st, nil, config.DefaultRAGConfig())
	ctx := context.Background()

	_, err := cat.Create(ctx, catalog.NewQuestionInput{
		Topic: "networking", Kind: question.KindMultipleChoice, Difficulty: question.DifficultyEasy,
		Stem: "Which layer routes packets?", Choices: []string{"network", "transport"},
		AnswerKey: map[string]interface{}{"correct_option_id": "network"},
	})
	require.NoError(t, err)
	_, err = cat.Create(ctx, catalog.NewQuestionInput{
		Topic: "security", Kind: question.KindMultipleChoice, Difficulty: question.DifficultyEasy,
		Stem: "What does TLS provide?", Choices: []string{"confidentiality", "compression"},
		AnswerKey: map[string]interface{}{"correct_option_id": "confidentiality"},
	})
	require.NoError(t, err)

	rows, err := cat.Query(ctx, store.QuestionFilter{Topic: "networking", ExcludeSoftDeleted: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "networking", rows[0].Topic)
}

func TestNormalizeCollapsesCaseAndWhitespace(t *testing.T) {
	require.Equal(t, catalog.Normalize("  What   IS\tthis?  "), catalog.Normalize("what is this?"))
	require.NotEqual(t, catalog.ContentHash("a"), catalog.ContentHash("b"))
}
