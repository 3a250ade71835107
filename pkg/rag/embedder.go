// Package rag implements the vector-search contract behind duplicate
// detection (generation is not grounded through it): an Embedder abstraction plus a
// brute-force cosine-similarity scan, explicitly sized for the small
// per-topic corpora this system handles rather than a dedicated vector
// database.
package rag

import "context"

// Embedder produces vector embeddings for text. Production deployments
// wire a real embedding backend; MockEmbedder below is the deterministic
// stand-in used in tests and in environments with no embedding service
// configured.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// hashString returns a deterministic hash for use as a token seed.
func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
