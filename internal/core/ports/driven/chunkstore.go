package driven

import (
	"context"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

// ChunkStore persists derived chunks and their embeddings keyed by document
// content identity, so a re-submitted document skips the embedding pass.
// Raw documents are never stored; only derived data survives a request.
type ChunkStore interface {
	// Get returns the stored chunks and embeddings for a document ID.
	// A miss is reported with domain.ErrNotFound.
	Get(ctx context.Context, docID string) ([]domain.Chunk, [][]float32, error)

	// Put stores chunks and embeddings for a document ID, replacing any
	// previous entry. Chunks and embeddings are aligned index-for-index.
	Put(ctx context.Context, docID string, chunks []domain.Chunk, embeddings [][]float32) error

	// Delete removes a document's derived data.
	Delete(ctx context.Context, docID string) error

	// Close releases resources.
	Close() error
}
