package driven

import (
	"context"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

// RawDocument represents opaque fetched bytes before normalisation.
type RawDocument struct {
	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// Normaliser converts raw document bytes into a normalised Document with
// page structure. Format parsing is deliberately thin; the pipeline treats
// normalisers as collaborators that hand it clean text.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority orders normalisers when several claim the same MIME type.
	// Higher wins; plain text is the low-priority fallback.
	Priority() int

	// Normalise converts a raw document to a normalised document.
	Normalise(ctx context.Context, raw *RawDocument) (*domain.Document, error)
}

// NormaliserRegistry selects a normaliser for a raw document.
type NormaliserRegistry interface {
	// Register adds a normaliser to the registry.
	Register(n Normaliser)

	// ForMIMEType returns the highest-priority normaliser for the type,
	// or the fallback when nothing claims it.
	ForMIMEType(mimeType string) (Normaliser, error)
}

// Fetcher retrieves raw document bytes from a source location.
// This is the thin I/O shell collaborator; the core only consumes its output.
type Fetcher interface {
	// Fetch downloads the document at the given URL or reads a local path.
	// The format hint, when non-empty, overrides MIME detection.
	Fetch(ctx context.Context, source string, formatHint string) (*RawDocument, error)
}
