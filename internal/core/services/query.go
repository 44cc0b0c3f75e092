// Package services wires the pipeline stages into the driving API:
// load and normalise a document, build or reuse its index, and answer
// each question through retrieval, re-ranking, assembly and synthesis.
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parchmentlabs/clauseseek/internal/assembler"
	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driving"
	"github.com/parchmentlabs/clauseseek/internal/logger"
	"github.com/parchmentlabs/clauseseek/internal/rerank"
	"github.com/parchmentlabs/clauseseek/internal/synthesizer"
)

// requestState tracks a request through the pipeline, for logging.
type requestState string

const (
	stateReceived  requestState = "received"
	stateLoading   requestState = "loading"
	stateIndexed   requestState = "indexed"
	stateAnswering requestState = "answering"
	stateCompleted requestState = "completed"
	stateFailed    requestState = "failed"
)

// Query is the pipeline orchestrator. It implements driving.QueryService.
type Query struct {
	fetcher     driven.Fetcher
	normalisers driven.NormaliserRegistry
	embedder    driven.EmbeddingService
	indexes     *IndexManager
	matcher     *rerank.Matcher
	assembler   *assembler.Assembler
	synth       *synthesizer.Synthesizer
	cfg         domain.PipelineConfig
}

var _ driving.QueryService = (*Query)(nil)

// NewQuery assembles the orchestrator from its collaborators.
func NewQuery(
	fetcher driven.Fetcher,
	normalisers driven.NormaliserRegistry,
	embedder driven.EmbeddingService,
	indexes *IndexManager,
	matcher *rerank.Matcher,
	asm *assembler.Assembler,
	synth *synthesizer.Synthesizer,
	cfg domain.PipelineConfig,
) *Query {
	return &Query{
		fetcher:     fetcher,
		normalisers: normalisers,
		embedder:    embedder,
		indexes:     indexes,
		matcher:     matcher,
		assembler:   asm,
		synth:       synth,
		cfg:         cfg,
	}
}

// Answer runs the full pipeline for one request. Load and index failures
// abort the request; failures inside a single question's answering path
// degrade that question to a sentinel answer and leave the rest untouched.
// The returned slice aligns 1:1 with req.Questions regardless of the order
// goroutines finish in.
func (q *Query) Answer(ctx context.Context, req driving.QueryRequest) ([]domain.AnswerRecord, error) {
	state := stateReceived
	reqID := shortID(uuid.NewString())
	logger.Section("query " + reqID)
	logger.Debug("request %s state: %s (%d questions)", reqID, state, len(req.Questions))

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.RequestTimeout)
	defer cancel()

	state = stateLoading
	logger.Debug("request %s state: %s", reqID, state)
	doc, err := q.load(ctx, req)
	if err != nil {
		state = stateFailed
		logger.Warn("request %s state: %s (load: %v)", reqID, state, err)
		return nil, fmt.Errorf("loading document: %w", err)
	}

	built, err := q.indexes.Get(ctx, doc)
	if err != nil {
		state = stateFailed
		logger.Warn("request %s state: %s (index: %v)", reqID, state, err)
		return nil, fmt.Errorf("indexing document: %w", err)
	}
	state = stateIndexed
	logger.Debug("request %s state: %s (%d chunks, %d dims)",
		reqID, state, built.Stats.Chunks, built.Stats.Dimensions)

	state = stateAnswering
	logger.Debug("request %s state: %s (%d questions, parallelism %d)",
		reqID, state, len(req.Questions), q.cfg.MaxParallelQuestions)

	results := make([]domain.AnswerRecord, len(req.Questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.cfg.MaxParallelQuestions)
	for i, question := range req.Questions {
		g.Go(func() error {
			results[i] = q.answerOne(gctx, question, built)
			return nil
		})
	}
	// Goroutines never return errors: per-question failures degrade in place.
	_ = g.Wait()

	state = stateCompleted
	logger.Debug("request %s state: %s", reqID, state)
	return results, nil
}

func validateRequest(req driving.QueryRequest) error {
	if len(req.Questions) == 0 {
		return fmt.Errorf("%w: no questions", domain.ErrInvalidInput)
	}
	if len(req.DocumentBytes) == 0 && strings.TrimSpace(req.DocumentURL) == "" {
		return fmt.Errorf("%w: no document source", domain.ErrInvalidInput)
	}
	return nil
}

// load fetches (or accepts inline) raw bytes and normalises them into a
// Document. Inline bytes win when both sources are set.
func (q *Query) load(ctx context.Context, req driving.QueryRequest) (*domain.Document, error) {
	var raw *driven.RawDocument
	if len(req.DocumentBytes) > 0 {
		raw = &driven.RawDocument{
			URI:      "inline",
			MIMEType: resolveMIMEType(req.FormatHint, req.DocumentBytes),
			Content:  req.DocumentBytes,
		}
	} else {
		var err error
		raw, err = q.fetcher.Fetch(ctx, req.DocumentURL, req.FormatHint)
		if err != nil {
			return nil, err
		}
	}

	n, err := q.normalisers.ForMIMEType(raw.MIMEType)
	if err != nil {
		return nil, err
	}
	doc, err := n.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// answerOne runs retrieval, re-ranking, assembly and synthesis for one
// question under its own timeout. It never returns an error: anything that
// prevents a grounded answer yields a sentinel record instead.
func (q *Query) answerOne(ctx context.Context, question string, built *BuiltIndex) domain.AnswerRecord {
	if strings.TrimSpace(question) == "" {
		return sentinelRecord(question)
	}
	if ctx.Err() != nil {
		logger.Warn("question cancelled before start: %q", question)
		return sentinelRecord(question)
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.PerQuestionTimeout)
	defer cancel()

	queryVec, err := q.embedder.Embed(ctx, question)
	if err != nil {
		logger.Warn("embedding question %q: %v", question, err)
		return sentinelRecord(question)
	}

	hits, err := built.Index.Search(ctx, queryVec, q.cfg.TopKCandidates)
	if err != nil {
		logger.Warn("searching for %q: %v", question, err)
		return sentinelRecord(question)
	}

	candidates, err := q.matcher.Rerank(question, hits, built.Chunks)
	if err != nil {
		logger.Warn("re-ranking for %q: %v", question, err)
		return sentinelRecord(question)
	}

	asm := q.assembler.Assemble(candidates, built.Chunks)
	return q.synth.Synthesize(ctx, question, asm.Evidence, asm.Truncated)
}

func sentinelRecord(question string) domain.AnswerRecord {
	return domain.AnswerRecord{
		Question: question,
		Answer:   domain.SentinelAnswer,
		Degraded: true,
	}
}

// resolveMIMEType maps a caller format hint to a MIME type, sniffing the
// content when no hint is given. Hints containing a slash are taken as
// full MIME types.
func resolveMIMEType(hint string, content []byte) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "":
		return sniffMIMEType(content)
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "txt", "text":
		return "text/plain"
	default:
		if strings.Contains(hint, "/") {
			return hint
		}
		return sniffMIMEType(content)
	}
}

// sniffMIMEType detects common document formats by signature. PDF and
// OOXML zip containers are recognised directly; everything else falls
// through to content sniffing, which covers plain text.
func sniffMIMEType(content []byte) string {
	if len(content) >= 5 && string(content[:5]) == "%PDF-" {
		return "application/pdf"
	}
	if len(content) >= 2 && content[0] == 'P' && content[1] == 'K' {
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	mt := http.DetectContentType(content)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
