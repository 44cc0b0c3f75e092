package driven

import (
	"context"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

// PostProcessor is one stage of the document-to-chunks transformation.
// A stage that creates chunks (the chunker) receives nil and returns a
// fresh set; a stage that reshapes them receives the previous stage's
// output.
type PostProcessor interface {
	// Name identifies the stage in logs and configuration.
	Name() string

	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs an ordered set of stages over a document
// and yields the chunks the index will embed.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
