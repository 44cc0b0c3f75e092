package driving

import (
	"context"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

// QueryRequest is one batch of questions against one document.
// Either DocumentBytes or DocumentURL must be set; bytes win when both are.
type QueryRequest struct {
	// DocumentBytes is the raw document content, when the caller already
	// holds it.
	DocumentBytes []byte

	// DocumentURL is the document location for the fetcher.
	DocumentURL string

	// FormatHint overrides MIME detection when non-empty ("pdf", "docx",
	// "txt" or a full MIME type).
	FormatHint string

	// Questions are answered in order; the response aligns 1:1 with them.
	Questions []string
}

// QueryService answers a batch of natural-language questions against a
// single document. The returned slice always has exactly one AnswerRecord
// per question, in input order, even when individual questions degrade.
type QueryService interface {
	// Answer runs the full pipeline for one request.
	// Document load or index build failures abort the request; per-question
	// generation failures degrade that question only.
	Answer(ctx context.Context, req QueryRequest) ([]domain.AnswerRecord, error)
}

// IndexStats describes a built document index, for verbose CLI output.
type IndexStats struct {
	// DocumentID is the content identity of the indexed document.
	DocumentID string

	// Chunks is the number of indexed chunks.
	Chunks int

	// Pages is the number of distinct pages chunks were drawn from.
	Pages int

	// MeanChunkTokens is the average estimated token count per chunk.
	MeanChunkTokens float64

	// Dimensions is the embedding dimension.
	Dimensions int
}
