package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a DOCX document to a normalised document. Paragraphs
// become blank-line separated text; explicit page breaks split pages.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip container: %v", domain.ErrDocumentUnreadable, err)
	}

	pages, err := extractPages(reader)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return &domain.Document{
		ID:    domain.ContentID(raw.Content),
		URI:   raw.URI,
		Title: extractTitle(reader, raw.URI),
		Pages: pages,
	}, nil
}

// extractPages extracts paragraph text from word/document.xml, splitting
// pages at explicit page break runs.
func extractPages(reader *zip.Reader) ([]domain.Page, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
		}

		return parseDocumentXML(content), nil
	}
	return nil, fmt.Errorf("%w: missing word/document.xml", domain.ErrDocumentUnreadable)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text   []textElement `xml:"t"`
	Breaks []breakMark   `xml:"br"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

type breakMark struct {
	Type string `xml:"type,attr"`
}

// parseDocumentXML extracts paragraph text and page boundaries.
func parseDocumentXML(content []byte) []domain.Page {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil
	}

	var pages []domain.Page
	var current []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n\n"))
		current = current[:0]
		if text == "" {
			return
		}
		pages = append(pages, domain.Page{Number: len(pages) + 1, Text: text})
	}

	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		pageBreak := false
		for _, r := range para.Runs {
			for _, br := range r.Breaks {
				if br.Type == "page" {
					pageBreak = true
				}
			}
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
		if pageBreak {
			flush()
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			current = append(current, line)
		}
	}
	flush()

	return pages
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml, falling back to the
// filename.
func extractTitle(reader *zip.Reader, uri string) string {
	for _, file := range reader.File {
		if file.Name != "docProps/core.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			break
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			break
		}

		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && core.Title != "" {
			return strings.TrimSpace(core.Title)
		}
		break
	}

	return plaintext.TitleFromURI(uri)
}
