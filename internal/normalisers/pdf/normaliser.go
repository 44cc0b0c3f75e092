package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound is returned when the pdftotext binary is not in PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command and returns its stdout.
// It exists so tests can substitute pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Normaliser handles PDF documents by shelling out to pdftotext.
type Normaliser struct {
	runner CommandRunner
}

// New creates a new PDF normaliser using pdftotext from PATH.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts page-structured text from a PDF. pdftotext keeps the
// form feed page separators, which become the Document's page boundaries.
func (n *Normaliser) Normalise(ctx context.Context, raw *driven.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("%w\n%s", ErrPDFToolNotFound, InstallInstructions())
	}

	tmp, err := os.CreateTemp("", "clauseseek-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	output, err := n.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext: %v", domain.ErrDocumentUnreadable, err)
	}

	pages := splitPages(string(output))
	if len(pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return &domain.Document{
		ID:    domain.ContentID(raw.Content),
		URI:   raw.URI,
		Title: plaintext.TitleFromURI(raw.URI),
		Pages: pages,
	}, nil
}

// splitPages splits pdftotext output on form feeds, numbering pages by
// their position in the PDF so citations survive blank-page skipping.
func splitPages(text string) []domain.Page {
	var pages []domain.Page
	for i, raw := range strings.Split(text, "\f") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: trimmed})
	}
	return pages
}

// InstallInstructions describes how to install pdftotext per platform.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install poppler for pdftotext: brew install poppler"
	case "linux":
		return "Install poppler-utils for pdftotext: apt install poppler-utils (or dnf install poppler-utils)"
	case "windows":
		return "Install poppler for pdftotext: https://github.com/oschwartz10612/poppler-windows"
	default:
		return "Install poppler to get the pdftotext binary"
	}
}
