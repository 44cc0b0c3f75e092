package driven

import "context"

// EmbeddingService turns text into dense vectors. Question and clause
// embeddings must come from the same model or their similarities are
// meaningless, so one service instance is shared across the pipeline.
//
// Backed by the OpenAI embeddings API or a local Ollama server.
type EmbeddingService interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many texts in one call where the backend allows
	// it. Results are positionally aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector size the model produces. Stored indexes
	// built with a different size must be discarded.
	Dimensions() int

	// ModelName identifies the embedding model.
	ModelName() string

	// Close releases resources.
	Close() error
}
