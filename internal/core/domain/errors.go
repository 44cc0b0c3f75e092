package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDocumentUnreadable indicates the document could not be fetched or
	// parsed. Fatal: no answers can be produced without a document.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrEmptyDocument indicates normalisation produced no text.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrUnsupportedType indicates an unknown document format.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrIndexBuild indicates embedding or index construction failed in a
	// way that affects index integrity. Fatal for the request.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexUnavailable indicates a retrieval was attempted before the
	// index was built. This is a programming invariant violation, not an
	// expected runtime condition.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrRetrieval indicates a retrieval invariant violation, such as the
	// index returning a chunk ID outside the queried document's corpus.
	// This signals a programming error, not an expected runtime condition.
	ErrRetrieval = errors.New("retrieval invariant violation")

	// ErrNoRelevantEvidence indicates every retrieval candidate fell below
	// the relevance floor. The question degrades to a sentinel answer.
	ErrNoRelevantEvidence = errors.New("no relevant evidence above threshold")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// GenerationError wraps a failed model generation call with its retry
// eligibility. Transient failures (network, timeout, rate limit) are eligible
// for a single bounded retry; fatal failures (content policy, auth) are not.
type GenerationError struct {
	// Op describes the failing operation, e.g. "chat completion".
	Op string

	// Transient marks the failure as retryable.
	Transient bool

	// Err is the underlying cause.
	Err error
}

// Error returns the error message.
func (e *GenerationError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("generation %s (%s): %v", e.Op, kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsTransientGeneration reports whether err is a retryable generation failure.
func IsTransientGeneration(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Transient
}
