package plaintext

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents. It is the low-priority fallback
// for anything no other normaliser claims.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"text/html",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts raw text bytes to a normalised document. Form feeds
// mark page boundaries; text without them becomes a single page.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyDocument
	}

	var pages []domain.Page
	for _, text := range strings.Split(content, "\f") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{
			Number: len(pages) + 1,
			Text:   strings.TrimSpace(text),
		})
	}
	if len(pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return &domain.Document{
		ID:    domain.ContentID(raw.Content),
		URI:   raw.URI,
		Title: TitleFromURI(raw.URI),
		Pages: pages,
	}, nil
}

// TitleFromURI extracts a human-readable title from a URI.
func TitleFromURI(uri string) string {
	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
