package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/clauseseek/internal/assembler"
	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driving"
	"github.com/parchmentlabs/clauseseek/internal/postprocessors"
	"github.com/parchmentlabs/clauseseek/internal/postprocessors/chunker"
	"github.com/parchmentlabs/clauseseek/internal/rerank"
	"github.com/parchmentlabs/clauseseek/internal/synthesizer"
)

// bagEmbedder is a deterministic bag-of-words embedder: same text, same
// vector, and sharing words means non-zero cosine similarity. Good enough
// to drive retrieval in tests without a model.
type bagEmbedder struct {
	dims       int
	batchCalls atomic.Int64
	delay      time.Duration
}

func newBagEmbedder() *bagEmbedder { return &bagEmbedder{dims: 64} }

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:?!\"'()")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
	} else {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (e *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *bagEmbedder) Dimensions() int   { return e.dims }
func (e *bagEmbedder) ModelName() string { return "bag-of-words" }
func (e *bagEmbedder) Close() error      { return nil }

// scriptedLLM answers by echoing a marker plus the question it finds in the
// prompt, with optional per-question failures.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
	failFor string // questions containing this substring fail fatally
}

func (l *scriptedLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	l.mu.Unlock()
	question := questionLine(prompt)
	if l.failFor != "" && strings.Contains(question, l.failFor) {
		return "", &domain.GenerationError{Op: "generate", Transient: false, Err: errors.New("scripted failure")}
	}
	if question == "" {
		return "generated answer", nil
	}
	return "ANSWER to " + question, nil
}

func questionLine(prompt string) string {
	start := strings.Index(prompt, "QUESTION: ")
	if start < 0 {
		return ""
	}
	rest := prompt[start+len("QUESTION: "):]
	if end := strings.Index(rest, "\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func (l *scriptedLLM) ModelName() string { return "scripted" }
func (l *scriptedLLM) Close() error      { return nil }

func (l *scriptedLLM) promptFor(question string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.prompts {
		if strings.Contains(p, question) {
			return p
		}
	}
	return ""
}

type staticPrompts struct{}

func (staticPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptAnswerSystem:
		return "Answer from the clauses only.", nil
	case driven.PromptAnswerUser:
		return "QUESTION: %s\n\nCLAUSES:\n%s", nil
	}
	return "", fmt.Errorf("unknown prompt %s", name)
}
func (staticPrompts) Reload() {}

// textNormaliser turns raw bytes into a one-page document.
type textNormaliser struct{}

func (textNormaliser) SupportedMIMETypes() []string { return []string{"text/plain"} }
func (textNormaliser) Priority() int                { return 0 }
func (textNormaliser) Normalise(_ context.Context, raw *driven.RawDocument) (*domain.Document, error) {
	text := strings.TrimSpace(string(raw.Content))
	if text == "" {
		return nil, domain.ErrEmptyDocument
	}
	return &domain.Document{
		ID:    domain.ContentID(raw.Content),
		URI:   raw.URI,
		Pages: []domain.Page{{Number: 1, Text: text}},
	}, nil
}

type singleRegistry struct{ n driven.Normaliser }

func (r singleRegistry) Register(driven.Normaliser) {}
func (r singleRegistry) ForMIMEType(string) (driven.Normaliser, error) {
	return r.n, nil
}

type failingFetcher struct{ err error }

func (f failingFetcher) Fetch(context.Context, string, string) (*driven.RawDocument, error) {
	return nil, f.err
}

const policyText = `PREMIUM PAYMENT

The premium is payable annually in advance on or before the due date.

GRACE PERIOD

A grace period of thirty days is provided for premium payment after the due date. Coverage continues during the grace period.

MATERNITY BENEFIT

Maternity expenses are covered after twenty four months of continuous coverage under the policy.

EXCLUSIONS

Cosmetic surgery is not covered under this policy. Claims arising from cosmetic procedures are excluded.`

func newTestQuery(t *testing.T, llm driven.LLMService, embedder driven.EmbeddingService) *Query {
	t.Helper()
	cfg := domain.DefaultPipelineConfig()
	cfg.RelevanceThreshold = 0.05
	cfg.PerQuestionTimeout = 5 * time.Second
	cfg.RequestTimeout = 30 * time.Second

	pipeline := postprocessors.NewPipeline(chunker.New(
		chunker.WithMaxTokens(cfg.MaxChunkTokens),
		chunker.WithOverlapTokens(cfg.ChunkOverlapTokens),
	))
	indexes := NewIndexManager(embedder, pipeline, nil, cfg.IndexCacheSize)
	t.Cleanup(func() { _ = indexes.Close() })

	return NewQuery(
		failingFetcher{err: errors.New("no fetcher in tests")},
		singleRegistry{n: textNormaliser{}},
		embedder,
		indexes,
		rerank.NewMatcher(cfg),
		assembler.New(cfg),
		synthesizer.New(llm, staticPrompts{}, synthesizer.WithRetryDelay(time.Millisecond)),
		cfg,
	)
}

func TestAnswerGracePeriodScenario(t *testing.T) {
	llm := &scriptedLLM{}
	q := newTestQuery(t, llm, newBagEmbedder())

	records, err := q.Answer(context.Background(), driving.QueryRequest{
		DocumentBytes: []byte(policyText),
		Questions:     []string{"What is the grace period for premium payment?"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.False(t, rec.Degraded)
	assert.NotEqual(t, domain.SentinelAnswer, rec.Answer)
	assert.NotEmpty(t, rec.SupportingChunkIDs)
	assert.Greater(t, rec.Confidence, 0.0)

	prompt := llm.promptFor("grace period")
	require.NotEmpty(t, prompt, "the model should have been called with the question")
	assert.Contains(t, prompt, "thirty days", "the grace period clause must reach the prompt")
}

func TestAnswerPreservesQuestionOrder(t *testing.T) {
	llm := &scriptedLLM{}
	q := newTestQuery(t, llm, newBagEmbedder())

	questions := []string{
		"What is the grace period for premium payment?",
		"Does the policy cover maternity expenses?",
		"Is cosmetic surgery covered?",
		"When is the premium payable?",
	}
	records, err := q.Answer(context.Background(), driving.QueryRequest{
		DocumentBytes: []byte(policyText),
		Questions:     questions,
	})
	require.NoError(t, err)
	require.Len(t, records, len(questions))
	for i, question := range questions {
		assert.Equal(t, question, records[i].Question, "answers must align with input order")
	}
}

func TestAnswerPerQuestionFailureIsIsolated(t *testing.T) {
	llm := &scriptedLLM{failFor: "maternity"}
	q := newTestQuery(t, llm, newBagEmbedder())

	records, err := q.Answer(context.Background(), driving.QueryRequest{
		DocumentBytes: []byte(policyText),
		Questions: []string{
			"Does the policy cover maternity expenses?",
			"What is the grace period for premium payment?",
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].Degraded, "failing question degrades")
	assert.False(t, records[1].Degraded, "other questions are unaffected")
}

func TestAnswerValidation(t *testing.T) {
	q := newTestQuery(t, &scriptedLLM{}, newBagEmbedder())

	_, err := q.Answer(context.Background(), driving.QueryRequest{
		DocumentBytes: []byte(policyText),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = q.Answer(context.Background(), driving.QueryRequest{
		Questions: []string{"Anything?"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswerLoadFailureAbortsRequest(t *testing.T) {
	q := newTestQuery(t, &scriptedLLM{}, newBagEmbedder())

	_, err := q.Answer(context.Background(), driving.QueryRequest{
		DocumentURL: "https://example.invalid/policy.pdf",
		Questions:   []string{"What is covered?"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading document")
}

func TestAnswerEmptyQuestionGetsSentinel(t *testing.T) {
	q := newTestQuery(t, &scriptedLLM{}, newBagEmbedder())

	records, err := q.Answer(context.Background(), driving.QueryRequest{
		DocumentBytes: []byte(policyText),
		Questions:     []string{"  ", "What is the grace period for premium payment?"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.SentinelAnswer, records[0].Answer)
	assert.True(t, records[0].Degraded)
	assert.False(t, records[1].Degraded)
}

func TestAnswerSameDocumentBuildsIndexOnce(t *testing.T) {
	embedder := newBagEmbedder()
	embedder.delay = 20 * time.Millisecond
	q := newTestQuery(t, &scriptedLLM{}, embedder)

	req := driving.QueryRequest{
		DocumentBytes: []byte(policyText),
		Questions:     []string{"What is the grace period for premium payment?"},
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Answer(context.Background(), req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), embedder.batchCalls.Load(),
		"concurrent requests for one document must share a single index build")
}
