// Package index provides an exact flat vector index for chunk retrieval.
//
// The corpus for one document is small (hundreds of chunks), so an exact
// linear scan over normalised vectors is both the fastest practical option
// and the correctness reference the pipeline's accuracy guarantees rest on.
// Vectors are L2-normalised at insertion time, so the inner product with a
// normalised query equals cosine similarity.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// Ensure Flat implements the interface.
var _ driven.VectorIndex = (*Flat)(nil)

// entry pairs a chunk ID with its normalised vector.
type entry struct {
	chunkID int
	vector  []float32
}

// Flat is an exact inner-product index over normalised vectors.
// Writes happen during the one-time build; reads are concurrent afterwards.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	byID      map[int]struct{}
}

// NewFlat creates an empty flat index for vectors of the given dimension.
func NewFlat(dimension int) (*Flat, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	return &Flat{
		dimension: dimension,
		byID:      make(map[int]struct{}),
	}, nil
}

// Add inserts a vector for the given chunk ID, normalising it in place.
func (f *Flat) Add(_ context.Context, chunkID int, embedding []float32) error {
	if len(embedding) != f.dimension {
		return fmt.Errorf("%w: dimension mismatch: expected %d, got %d", domain.ErrInvalidInput, f.dimension, len(embedding))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.byID[chunkID]; dup {
		return fmt.Errorf("%w: chunk %d already indexed", domain.ErrInvalidInput, chunkID)
	}

	f.entries = append(f.entries, entry{chunkID: chunkID, vector: normalize(embedding)})
	f.byID[chunkID] = struct{}{}
	return nil
}

// Search returns the k most similar chunks, ordered by descending cosine
// similarity with ties broken by ascending chunk ID. k larger than the
// corpus returns every chunk exactly once.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("%w: dimension mismatch: expected %d, got %d", domain.ErrInvalidInput, f.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := normalize(query)

	f.mu.RLock()
	defer f.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(f.entries))
	for _, e := range f.entries {
		hits = append(hits, driven.VectorHit{
			ChunkID:    e.chunkID,
			Similarity: float64(dot(q, e.vector)),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Close releases resources. The flat index holds none beyond its slices.
func (f *Flat) Close() error {
	return nil
}

// normalize returns a unit-length copy of v. A zero vector is returned
// unchanged, which scores zero against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	mag := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
