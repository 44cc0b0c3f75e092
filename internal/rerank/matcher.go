package rerank

import (
	"fmt"
	"sort"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/logger"
)

// scorerWeight pairs a heuristic scorer with its share of the heuristic
// blend. Weights sum to 1 so the heuristic score stays in [0, 1].
type scorerWeight struct {
	scorer driven.Scorer
	weight float64
}

// Matcher blends vector similarity with lexical heuristics into a final
// relevance score, then filters and truncates the candidate list.
type Matcher struct {
	scorers   []scorerWeight
	weight    float64 // vector share of the final blend
	threshold float64
	keep      int
}

// NewMatcher builds a matcher from pipeline settings. The default scorer
// set is keyword overlap, numeric agreement, and negation consistency.
func NewMatcher(cfg domain.PipelineConfig) *Matcher {
	return &Matcher{
		scorers: []scorerWeight{
			{KeywordScorer{}, 0.5},
			{NumericScorer{}, 0.3},
			{NegationScorer{}, 0.2},
		},
		weight:    cfg.RerankWeight,
		threshold: cfg.RelevanceThreshold,
		keep:      cfg.EvidenceCount,
	}
}

// Rerank re-scores the vector hits against the question and returns the
// surviving candidates ordered by final score, best first. Ties break on
// ascending chunk ID so repeated runs produce identical rankings. Hits
// referencing chunk IDs outside the corpus are a programming error and
// fail the whole call.
func (m *Matcher) Rerank(question string, hits []driven.VectorHit, chunks []domain.Chunk) ([]domain.EvidenceCandidate, error) {
	analysis := AnalyzeQuestion(question)

	candidates := make([]domain.EvidenceCandidate, 0, len(hits))
	for _, hit := range hits {
		if hit.ChunkID < 0 || hit.ChunkID >= len(chunks) {
			return nil, fmt.Errorf("%w: hit references chunk %d of %d", domain.ErrRetrieval, hit.ChunkID, len(chunks))
		}
		chunk := chunks[hit.ChunkID]

		heuristic := 0.0
		for _, sw := range m.scorers {
			var s float64
			if as, ok := sw.scorer.(analyzedScorer); ok {
				s = as.scoreAnalyzed(analysis, chunk)
			} else {
				s = sw.scorer.Score(question, chunk)
			}
			heuristic += sw.weight * clamp01(s)
		}

		vector := clamp01(hit.Similarity)
		candidates = append(candidates, domain.EvidenceCandidate{
			ChunkID:        hit.ChunkID,
			VectorScore:    vector,
			HeuristicScore: heuristic,
			FinalScore:     m.weight*vector + (1-m.weight)*heuristic,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})

	kept := candidates[:0]
	for _, c := range candidates {
		if c.FinalScore >= m.threshold {
			kept = append(kept, c)
		}
	}
	above := len(kept)
	if len(kept) > m.keep {
		kept = kept[:m.keep]
	}

	logger.Debug("rerank: %d hits, %d above threshold %.2f, keeping %d",
		len(hits), above, m.threshold, len(kept))

	return kept, nil
}
