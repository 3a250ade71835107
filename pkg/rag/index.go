package rag

import (
	"context"
	"math"
	"sort"
)

// Candidate is one item in a brute-force similarity scan.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Match is a scored Candidate returned from Query.
type Match struct {
	ID         string
	Similarity float64
}

// Index performs an in-memory cosine-similarity scan over a small
// candidate set (a topic's curated questions or knowledge documents). It is
// deliberately not backed by a dedicated vector database: the corpora this
// system searches are bounded by topic, so a linear scan over a few hundred
// vectors is cheap and avoids operating another stateful service.
type Index struct {
	embedder   Embedder
	candidates []Candidate
}

// NewIndex builds an Index over candidates using embedder for query-time
// embedding (candidates already carry their precomputed embeddings).
func NewIndex(embedder Embedder, candidates []Candidate) *Index {
	return &Index{embedder: embedder, candidates: candidates}
}

// Query embeds text and returns the topK nearest candidates by cosine
// similarity, highest first.
func (idx *Index) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	queryVec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return idx.QueryVector(queryVec, topK), nil
}

// QueryVector returns the topK nearest candidates to an already-embedded
// vector, highest similarity first.
func (idx *Index) QueryVector(queryVec []float32, topK int) []Match {
	matches := make([]Match, 0, len(idx.candidates))
	for _, c := range idx.candidates {
		matches = append(matches, Match{ID: c.ID, Similarity: cosineSimilarity(queryVec, c.Embedding)})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })

	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}

// cosineSimilarity returns the cosine similarity of two vectors, or 0 if
// either is the zero vector or they differ in length.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
