package domain

import (
	"fmt"
	"time"
)

// Default pipeline settings. The re-rank weight and relevance floor are
// starting points validated against the accuracy scenarios in the test
// suite, not hard constants; both are tunable per deployment.
const (
	DefaultMaxChunkTokens       = 256
	DefaultChunkOverlapTokens   = 32
	DefaultTopKCandidates       = 20
	DefaultEvidenceCount        = 5
	DefaultRerankWeight         = 0.7
	DefaultRelevanceThreshold   = 0.3
	DefaultContextTokenBudget   = 1536
	DefaultNearDuplicateJaccard = 0.9
	DefaultMaxParallelQuestions = 4
	DefaultPerQuestionTimeout   = 45 * time.Second
	DefaultRequestTimeout       = 5 * time.Minute
	DefaultIndexCacheSize       = 8
)

// PipelineConfig holds every tunable the retrieval-and-synthesis pipeline
// consumes. Construct with DefaultPipelineConfig and override fields, then
// Validate before use; out-of-range values are rejected at construction
// time rather than surfacing as silent misbehaviour mid-request.
type PipelineConfig struct {
	// MaxChunkTokens is the chunk size ceiling. A single sentence longer
	// than this is still emitted whole as an oversized chunk.
	MaxChunkTokens int

	// ChunkOverlapTokens is the target overlap between adjacent chunks.
	ChunkOverlapTokens int

	// TopKCandidates is how many nearest neighbours the index returns
	// before re-ranking.
	TopKCandidates int

	// EvidenceCount is the re-ranked evidence list length handed to the
	// context assembler.
	EvidenceCount int

	// RerankWeight is the vector-score weight α in
	// final = α·vector + (1−α)·heuristic.
	RerankWeight float64

	// RelevanceThreshold is the minimum final score for a candidate to be
	// considered evidence. Below it, questions degrade to the sentinel
	// answer instead of synthesising over noise.
	RelevanceThreshold float64

	// ContextTokenBudget caps the combined token count of assembled context.
	ContextTokenBudget int

	// NearDuplicateJaccard is the token-set similarity above which two
	// chunks are treated as duplicates during assembly.
	NearDuplicateJaccard float64

	// MaxParallelQuestions bounds concurrent generation calls.
	MaxParallelQuestions int

	// PerQuestionTimeout bounds one question's retrieval and generation.
	PerQuestionTimeout time.Duration

	// RequestTimeout bounds the whole batch, index build included.
	RequestTimeout time.Duration

	// IndexCacheSize is the cross-request index cache capacity in
	// documents. Zero disables the cache.
	IndexCacheSize int
}

// DefaultPipelineConfig returns the default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxChunkTokens:       DefaultMaxChunkTokens,
		ChunkOverlapTokens:   DefaultChunkOverlapTokens,
		TopKCandidates:       DefaultTopKCandidates,
		EvidenceCount:        DefaultEvidenceCount,
		RerankWeight:         DefaultRerankWeight,
		RelevanceThreshold:   DefaultRelevanceThreshold,
		ContextTokenBudget:   DefaultContextTokenBudget,
		NearDuplicateJaccard: DefaultNearDuplicateJaccard,
		MaxParallelQuestions: DefaultMaxParallelQuestions,
		PerQuestionTimeout:   DefaultPerQuestionTimeout,
		RequestTimeout:       DefaultRequestTimeout,
		IndexCacheSize:       DefaultIndexCacheSize,
	}
}

// Validate checks the configuration for out-of-range values.
func (c PipelineConfig) Validate() error {
	if c.MaxChunkTokens <= 0 {
		return fmt.Errorf("%w: max chunk tokens must be positive, got %d", ErrInvalidInput, c.MaxChunkTokens)
	}
	if c.ChunkOverlapTokens < 0 || c.ChunkOverlapTokens >= c.MaxChunkTokens {
		return fmt.Errorf("%w: chunk overlap must be in [0, max chunk tokens), got %d", ErrInvalidInput, c.ChunkOverlapTokens)
	}
	if c.TopKCandidates <= 0 {
		return fmt.Errorf("%w: top-k candidates must be positive, got %d", ErrInvalidInput, c.TopKCandidates)
	}
	if c.EvidenceCount <= 0 || c.EvidenceCount > c.TopKCandidates {
		return fmt.Errorf("%w: evidence count must be in (0, top-k], got %d", ErrInvalidInput, c.EvidenceCount)
	}
	if c.RerankWeight < 0 || c.RerankWeight > 1 {
		return fmt.Errorf("%w: rerank weight must be in [0, 1], got %g", ErrInvalidInput, c.RerankWeight)
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("%w: relevance threshold must be in [0, 1], got %g", ErrInvalidInput, c.RelevanceThreshold)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("%w: context token budget must be positive, got %d", ErrInvalidInput, c.ContextTokenBudget)
	}
	if c.NearDuplicateJaccard <= 0 || c.NearDuplicateJaccard > 1 {
		return fmt.Errorf("%w: near-duplicate threshold must be in (0, 1], got %g", ErrInvalidInput, c.NearDuplicateJaccard)
	}
	if c.MaxParallelQuestions <= 0 {
		return fmt.Errorf("%w: max parallel questions must be positive, got %d", ErrInvalidInput, c.MaxParallelQuestions)
	}
	if c.PerQuestionTimeout <= 0 {
		return fmt.Errorf("%w: per-question timeout must be positive, got %s", ErrInvalidInput, c.PerQuestionTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive, got %s", ErrInvalidInput, c.RequestTimeout)
	}
	if c.IndexCacheSize < 0 {
		return fmt.Errorf("%w: index cache size must not be negative, got %d", ErrInvalidInput, c.IndexCacheSize)
	}
	return nil
}
