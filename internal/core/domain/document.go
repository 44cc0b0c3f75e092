package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Document is the canonical representation of a source document after
// normalisation. It is immutable once built: the pipeline derives chunks,
// embeddings and answers from it but never writes back.
type Document struct {
	// ID is the content identity: the hex SHA-256 of the raw bytes the
	// document was normalised from. Two byte-identical fetches share an ID,
	// which is what makes index caching safe.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Pages is the ordered page sequence in reading order.
	Pages []Page
}

// Page is one page (or page-equivalent unit) of normalised text.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the normalised text of the page.
	Text string
}

// ContentID computes the content identity for raw document bytes.
func ContentID(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Chunk is a bounded span of document text, the unit of retrieval.
// Chunks are produced in a single deterministic pass: re-chunking the same
// document yields identical IDs and boundaries.
type Chunk struct {
	// ID is the chunk's position in document reading order, starting at 0.
	ID int

	// Text is the chunk content.
	Text string

	// Page is the 1-based page the chunk starts on.
	Page int

	// Section is the nearest preceding heading, if any.
	Section string

	// TokenCount is the estimated token count of Text.
	TokenCount int
}

// SourceRef is a human-readable pointer back into the document,
// used for citations in answers.
func (c Chunk) SourceRef() string {
	if c.Section != "" {
		return fmt.Sprintf("%s (page %d)", c.Section, c.Page)
	}
	return fmt.Sprintf("page %d", c.Page)
}
