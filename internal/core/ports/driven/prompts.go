package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may embed defaults in the binary or load overrides from
// disk, reloading when the files change.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names fall back to the built-in default for that name,
	// or return an error when no default exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAnswerSystem is the system preamble for answer synthesis.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser frames one question with its clause context.
	// The template expects two %s placeholders: question, then context.
	PromptAnswerUser = "answer_user"
)
