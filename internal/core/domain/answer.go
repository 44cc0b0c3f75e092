package domain

// SentinelAnswer is returned when no answer can be grounded in the document:
// the evidence fell below the relevance floor, the generation call failed, or
// the question was cancelled before completion. Callers always receive an
// answer for every question; this string marks the degraded entries.
const SentinelAnswer = "Unable to determine the answer from the provided document."

// EvidenceCandidate is a scored retrieval candidate for one question.
// Transient: produced during re-ranking, consumed by context assembly,
// never persisted.
type EvidenceCandidate struct {
	// ChunkID identifies the chunk within the queried document.
	ChunkID int

	// VectorScore is the cosine similarity from the embedding index.
	VectorScore float64

	// HeuristicScore is the lexical/domain score from the clause matcher.
	HeuristicScore float64

	// FinalScore is the blended ranking score.
	FinalScore float64
}

// Evidence is a candidate hydrated with its chunk, handed to the assembler
// and carried through to the answer for traceability.
type Evidence struct {
	Chunk Chunk

	// Score is the final blended score the candidate ranked with.
	Score float64

	// Context is a one-chunk neighbourhood of the evidence, used for
	// display and prompt construction.
	Context string
}

// AnswerRecord is the unit returned to the caller, one per question.
type AnswerRecord struct {
	// Question is the input question, verbatim.
	Question string

	// Answer is the synthesised answer, or SentinelAnswer when degraded.
	Answer string

	// SupportingChunkIDs are the chunks the answer was grounded in,
	// in the order they appeared in the prompt context.
	SupportingChunkIDs []int

	// Confidence is the final score of the top supporting chunk (0-1).
	// Zero for degraded answers.
	Confidence float64

	// Truncated is set when the single top chunk exceeded the context
	// budget and was included alone.
	Truncated bool

	// Degraded is set when Answer did not come from a generation call:
	// a sentinel (no relevant evidence, cancellation) or an extractive
	// fallback quoted from the top clause after a fatal generation failure.
	Degraded bool
}
