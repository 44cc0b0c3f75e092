package driven

import "context"

// VectorIndex provides nearest-neighbour search over the chunks of one
// document. An index is built once per document and read-only afterwards,
// which is what makes concurrent per-question searches safe.
type VectorIndex interface {
	// Add inserts a vector for the given chunk ID.
	// Vectors are normalised at insertion so inner product equals cosine.
	Add(ctx context.Context, chunkID int, embedding []float32) error

	// Search finds the k nearest neighbours to the query vector, ordered
	// by descending similarity with ties broken by ascending chunk ID.
	// k larger than the corpus returns every chunk exactly once.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID int

	// Similarity is the cosine similarity score (-1 to 1, typically 0-1).
	Similarity float64
}
