package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

func mkChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{ID: i, Text: t, Page: 1, TokenCount: domain.CountTokens(t)}
	}
	return chunks
}

func mkCandidates(ids ...int) []domain.EvidenceCandidate {
	out := make([]domain.EvidenceCandidate, len(ids))
	for i, id := range ids {
		out[i] = domain.EvidenceCandidate{ChunkID: id, FinalScore: 1.0 - float64(i)*0.1}
	}
	return out
}

func cfgWithBudget(budget int) domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()
	cfg.ContextTokenBudget = budget
	return cfg
}

func TestAssemblePreservesRankOrder(t *testing.T) {
	chunks := mkChunks(
		"The premium is payable annually in advance.",
		"A grace period of thirty days applies to renewal premium payment.",
		"Claims must be notified within seven days of hospitalisation.",
	)
	a := New(cfgWithBudget(1000))

	out := a.Assemble(mkCandidates(1, 2, 0), chunks)
	require.Len(t, out.Evidence, 3)
	assert.Equal(t, 1, out.Evidence[0].Chunk.ID)
	assert.Equal(t, 2, out.Evidence[1].Chunk.ID)
	assert.Equal(t, 0, out.Evidence[2].Chunk.ID)
	assert.False(t, out.Truncated)
}

func TestAssembleStopsAtBudget(t *testing.T) {
	chunks := mkChunks(
		strings.Repeat("coverage terms apply ", 10),
		strings.Repeat("exclusion clauses differ ", 10),
		strings.Repeat("renewal conditions vary ", 10),
	)
	// Each chunk is 30 words = 40 estimated tokens. Budget fits two.
	a := New(cfgWithBudget(85))

	out := a.Assemble(mkCandidates(0, 1, 2), chunks)
	assert.Len(t, out.Evidence, 2)
	assert.LessOrEqual(t, out.Tokens, 85)
	assert.False(t, out.Truncated)
}

func TestAssembleOversizedTopChunkIncludedAlone(t *testing.T) {
	chunks := mkChunks(
		strings.Repeat("the insurer shall indemnify the insured person ", 30),
		"Short trailing clause.",
	)
	a := New(cfgWithBudget(50))

	out := a.Assemble(mkCandidates(0, 1), chunks)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, 0, out.Evidence[0].Chunk.ID)
	assert.True(t, out.Truncated)
}

func TestAssembleDedupesByChunkID(t *testing.T) {
	chunks := mkChunks("The sum insured is stated in the policy schedule.")
	a := New(cfgWithBudget(1000))

	out := a.Assemble(mkCandidates(0, 0, 0), chunks)
	assert.Len(t, out.Evidence, 1)
}

func TestAssembleDropsNearDuplicateText(t *testing.T) {
	chunks := mkChunks(
		"Pre-existing diseases are covered after thirty six months of continuous coverage under the policy.",
		"Pre-existing diseases are covered after thirty six months of continuous coverage under the policy. Yes.",
		"Room rent is limited to one percent of the sum insured per day.",
	)
	a := New(cfgWithBudget(1000))

	out := a.Assemble(mkCandidates(0, 1, 2), chunks)
	require.Len(t, out.Evidence, 2)
	assert.Equal(t, 0, out.Evidence[0].Chunk.ID)
	assert.Equal(t, 2, out.Evidence[1].Chunk.ID)
}

func TestAssembleEmptyCandidates(t *testing.T) {
	a := New(cfgWithBudget(1000))
	out := a.Assemble(nil, mkChunks("anything"))
	assert.Empty(t, out.Evidence)
	assert.Zero(t, out.Tokens)
	assert.False(t, out.Truncated)
}

func TestAssembleNeighbourhoodContext(t *testing.T) {
	chunks := mkChunks("First clause.", "Second clause.", "Third clause.")
	a := New(cfgWithBudget(1000))

	out := a.Assemble(mkCandidates(1), chunks)
	require.Len(t, out.Evidence, 1)
	ctx := out.Evidence[0].Context
	assert.Contains(t, ctx, "First clause.")
	assert.Contains(t, ctx, "Second clause.")
	assert.Contains(t, ctx, "Third clause.")
}
