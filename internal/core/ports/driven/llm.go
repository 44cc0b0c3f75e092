package driven

import "context"

// LLMService provides the generation call backing answer synthesis.
//
// Implementations may include:
//   - OpenAI (gpt-4o, gpt-4o-mini)
//   - Google Gemini (gemini-1.5-flash)
//   - Local models via OpenAI-compatible servers
//
// Failures are reported as *domain.GenerationError so the synthesizer can
// distinguish transient failures (one bounded retry) from fatal ones
// (no retry, sentinel answer immediately).
type LLMService interface {
	// Generate produces a text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour. The pipeline uses a
// deterministic, low-temperature configuration so repeated calls on
// identical input tend toward the same answer; exact determinism is not
// guaranteed when the backing model is itself non-deterministic.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// TopP is the nucleus sampling parameter. Zero means provider default.
	TopP float64
}
