// Package assembler selects the evidence that fits a model context window.
//
// Candidates arrive ranked best-first; the assembler keeps a prefix of
// distinct chunks whose combined token count fits the budget. Distinct means
// both by chunk ID and by text: near-duplicate chunks (overlap regions,
// boilerplate repeated across pages) waste budget without adding evidence,
// so they are dropped by Jaccard similarity over token sets.
package assembler

import (
	"strings"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/logger"
)

// Assembled is the context selection for one question.
type Assembled struct {
	// Evidence is the selected evidence in rank order.
	Evidence []domain.Evidence

	// Tokens is the combined estimated token count of the selection.
	Tokens int

	// Truncated reports that the top chunk alone exceeded the budget and
	// was included anyway. Candidates are never all dropped for size.
	Truncated bool
}

// Assembler packs ranked candidates into a token budget.
type Assembler struct {
	budget  int
	jaccard float64
}

// New builds an assembler from pipeline settings.
func New(cfg domain.PipelineConfig) *Assembler {
	return &Assembler{
		budget:  cfg.ContextTokenBudget,
		jaccard: cfg.NearDuplicateJaccard,
	}
}

// Assemble selects a budget-fitting prefix of the ranked candidates.
// chunks is the document's full chunk slice indexed by chunk ID; it is used
// to hydrate evidence and to build the one-chunk neighbourhood context.
// An empty candidate list yields an empty selection, never an error: the
// caller decides whether no evidence means a sentinel answer.
func (a *Assembler) Assemble(candidates []domain.EvidenceCandidate, chunks []domain.Chunk) Assembled {
	var out Assembled

	seen := make(map[int]struct{}, len(candidates))
	var keptTokens []map[string]struct{}

	for _, cand := range candidates {
		if cand.ChunkID < 0 || cand.ChunkID >= len(chunks) {
			continue
		}
		if _, dup := seen[cand.ChunkID]; dup {
			continue
		}
		chunk := chunks[cand.ChunkID]

		tokens := tokenSet(chunk.Text)
		if a.nearDuplicate(tokens, keptTokens) {
			logger.Debug("assembler: chunk %d near-duplicate of kept evidence, skipped", cand.ChunkID)
			continue
		}

		cost := chunk.TokenCount
		if cost <= 0 {
			cost = domain.CountTokens(chunk.Text)
		}

		if out.Tokens+cost > a.budget {
			if len(out.Evidence) == 0 {
				// The selection is never empty while candidates exist,
				// even when the top chunk alone exceeds the budget.
				out.Truncated = true
			} else {
				break
			}
		}

		seen[cand.ChunkID] = struct{}{}
		keptTokens = append(keptTokens, tokens)
		out.Evidence = append(out.Evidence, domain.Evidence{
			Chunk:   chunk,
			Score:   cand.FinalScore,
			Context: neighbourhood(chunks, cand.ChunkID),
		})
		out.Tokens += cost

		if out.Truncated {
			break
		}
	}

	logger.Debug("assembler: %d candidates, kept %d (%d tokens of %d budget)",
		len(candidates), len(out.Evidence), out.Tokens, a.budget)

	return out
}

// nearDuplicate reports whether tokens is Jaccard-similar to any kept set.
func (a *Assembler) nearDuplicate(tokens map[string]struct{}, kept []map[string]struct{}) bool {
	for _, k := range kept {
		if jaccard(tokens, k) >= a.jaccard {
			return true
		}
	}
	return false
}

// neighbourhood joins a chunk with its immediate neighbours, giving the
// model enough surrounding text to resolve references like "such period".
func neighbourhood(chunks []domain.Chunk, id int) string {
	var parts []string
	if id > 0 {
		parts = append(parts, chunks[id-1].Text)
	}
	parts = append(parts, chunks[id].Text)
	if id < len(chunks)-1 {
		parts = append(parts, chunks[id+1].Text)
	}
	return strings.Join(parts, "\n")
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |A∩B| / |A∪B| over token sets. Two empty sets count as
// identical so empty chunks cannot be kept twice.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
