// Package chunker provides a structure-aware text chunking processor.
//
// Chunks are packed paragraph-first: a paragraph that fits the token budget
// is never split, a paragraph that exceeds it falls back to sentence
// boundaries, and a single sentence longer than the budget is emitted
// verbatim as its own oversized chunk rather than truncated. The pass is
// deterministic, so byte-identical documents always produce identical chunk
// boundaries and IDs.
package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

// DefaultMaxTokens is the default chunk size ceiling in estimated tokens.
const DefaultMaxTokens = domain.DefaultMaxChunkTokens

// DefaultOverlapTokens is the default overlap carried between chunks.
const DefaultOverlapTokens = domain.DefaultChunkOverlapTokens

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit  = regexp.MustCompile(`(?s)[^.!?]+[.!?]+|[^.!?]+$`)

	// Heading patterns carried over from common policy document layouts:
	// ALL CAPS lines, numbered sections, and short title lines with a colon.
	headingAllCaps  = regexp.MustCompile(`^[A-Z][A-Z\s\d.,&-]+$`)
	headingNumbered = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s+[A-Z]`)
	headingColon    = regexp.MustCompile(`^[A-Z][\w\s]+:$`)
)

// Processor splits document pages into token-bounded chunks.
// It implements the PostProcessor interface.
type Processor struct {
	maxTokens     int
	overlapTokens int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the chunk size ceiling in estimated tokens.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap carried between adjacent chunks.
func WithOverlapTokens(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlapTokens = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for new content in every chunk
	if p.overlapTokens >= p.maxTokens {
		p.overlapTokens = p.maxTokens / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// segment is an unsplittable span of text: a whole paragraph when it fits
// the budget, otherwise one sentence of it.
type segment struct {
	text          string
	tokens        int
	page          int
	section       string
	newParagraph  bool
	oversizedUnit bool
}

// Process splits the document pages into chunks.
// Input chunks are ignored; this processor creates new chunks from page text.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	segments := p.segment(doc)
	if len(segments) == 0 {
		return nil, nil
	}

	return p.pack(segments), nil
}

// segment flattens the document into packable units in reading order.
func (p *Processor) segment(doc *domain.Document) []segment {
	var segments []segment
	section := ""

	for _, page := range doc.Pages {
		for _, para := range paragraphSplit.Split(page.Text, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}

			if isHeading(para) {
				section = para
			}

			tokens := domain.CountTokens(para)
			if tokens <= p.maxTokens {
				segments = append(segments, segment{
					text:         para,
					tokens:       tokens,
					page:         page.Number,
					section:      section,
					newParagraph: true,
				})
				continue
			}

			// Paragraph exceeds the budget: fall back to sentences.
			first := true
			for _, sentence := range sentenceSplit.FindAllString(para, -1) {
				sentence = strings.TrimSpace(sentence)
				if sentence == "" {
					continue
				}
				st := domain.CountTokens(sentence)
				segments = append(segments, segment{
					text:          sentence,
					tokens:        st,
					page:          page.Number,
					section:       section,
					newParagraph:  first,
					oversizedUnit: st > p.maxTokens,
				})
				first = false
			}
		}
	}

	return segments
}

// pack greedily fills chunks up to the token ceiling, carrying an overlap
// of whole trailing segments into each successor chunk.
func (p *Processor) pack(segments []segment) []domain.Chunk {
	var chunks []domain.Chunk
	var cur []segment
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(len(chunks), cur))

		// Seed the next chunk with trailing segments up to the overlap
		// budget so boundary context is present on both sides.
		var carry []segment
		carryTokens := 0
		for i := len(cur) - 1; i >= 0; i-- {
			if cur[i].oversizedUnit || carryTokens+cur[i].tokens > p.overlapTokens {
				break
			}
			carryTokens += cur[i].tokens
			carry = append([]segment{cur[i]}, carry...)
		}
		cur = carry
		curTokens = carryTokens
	}

	for i := 0; i < len(segments); i++ {
		seg := segments[i]

		// An oversized sentence becomes its own chunk, never truncated.
		if seg.oversizedUnit {
			if len(cur) > 0 {
				chunks = append(chunks, buildChunk(len(chunks), cur))
				cur, curTokens = nil, 0
			}
			chunks = append(chunks, buildChunk(len(chunks), []segment{seg}))
			continue
		}

		if curTokens+seg.tokens > p.maxTokens && len(cur) > 0 {
			flush()
		}
		cur = append(cur, seg)
		curTokens += seg.tokens
	}

	if len(cur) > 0 {
		chunks = append(chunks, buildChunk(len(chunks), cur))
	}

	return chunks
}

// buildChunk joins segments back into chunk text, restoring paragraph breaks.
func buildChunk(id int, segments []segment) domain.Chunk {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			if seg.newParagraph {
				sb.WriteString("\n\n")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(seg.text)
	}
	text := sb.String()

	return domain.Chunk{
		ID:         id,
		Text:       text,
		Page:       segments[0].page,
		Section:    segments[0].section,
		TokenCount: domain.CountTokens(text),
	}
}

// isHeading reports whether a paragraph looks like a section heading.
func isHeading(text string) bool {
	if len(text) > 100 || strings.Contains(text, "\n") {
		return false
	}
	return headingNumbered.MatchString(text) ||
		headingColon.MatchString(text) ||
		(headingAllCaps.MatchString(text) && strings.ToUpper(text) == text)
}
