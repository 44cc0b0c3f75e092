package driven

import "github.com/parchmentlabs/clauseseek/internal/core/domain"

// Scorer is a single lexical heuristic in the clause matcher. Keeping each
// heuristic behind this interface lets negation, numeric matching and
// keyword overlap be unit-tested independently and composed with weights.
type Scorer interface {
	// Name returns the scorer name for logging and configuration.
	Name() string

	// Score rates how well a chunk answers the question, in [0, 1].
	Score(question string, chunk domain.Chunk) float64
}
