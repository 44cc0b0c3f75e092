// Package postprocessors turns extracted documents into indexable chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// Pipeline runs an ordered sequence of processing stages over a document.
// The first stage sees nil chunks and produces the initial set; every
// later stage receives the output of the one before it. It satisfies
// the PostProcessorPipeline interface.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline builds a pipeline from the given stages, run in argument order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process feeds the document through every stage and returns the final
// chunk set. A stage failure aborts the run and reports which stage failed.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, stage.Name(), err)
		}
		chunks = out
	}

	return chunks, nil
}

// Add appends a stage to the end of the pipeline.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Len reports how many stages the pipeline holds.
func (p *Pipeline) Len() int {
	return len(p.stages)
}
