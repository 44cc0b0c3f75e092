// Package synthesizer turns assembled evidence into an answer.
//
// One generation call per question, with at most one bounded retry when the
// failure is transient. A failed question degrades to a fallback answer
// rather than propagating an error: one bad question must not abort the
// rest of the batch.
package synthesizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/logger"
)

const (
	answerMaxTokens   = 500
	answerTemperature = 0.1
	answerTopP        = 0.9

	// fallbackMaxWords bounds the extractive fallback taken from the top
	// clause when the model call fails fatally.
	fallbackMaxWords = 60

	defaultRetryDelay = 500 * time.Millisecond
)

// Synthesizer produces one AnswerRecord per question from its evidence.
type Synthesizer struct {
	llm        driven.LLMService
	prompts    driven.PromptStore
	retryDelay time.Duration
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithRetryDelay overrides the pause before the single transient retry.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Synthesizer) { s.retryDelay = d }
}

// New builds a synthesizer on the given generation backend and prompt store.
func New(llm driven.LLMService, prompts driven.PromptStore, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		llm:        llm,
		prompts:    prompts,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize answers one question from its assembled evidence. It never
// returns an error: failures degrade to the sentinel answer (no evidence,
// cancellation) or to an extractive fallback built from the top clause
// (fatal generation failure with evidence in hand).
func (s *Synthesizer) Synthesize(ctx context.Context, question string, evidence []domain.Evidence, truncated bool) domain.AnswerRecord {
	record := domain.AnswerRecord{
		Question:  question,
		Truncated: truncated,
	}

	if len(evidence) == 0 {
		record.Answer = domain.SentinelAnswer
		record.Degraded = true
		return record
	}

	for _, ev := range evidence {
		record.SupportingChunkIDs = append(record.SupportingChunkIDs, ev.Chunk.ID)
	}

	prompt := s.buildPrompt(question, evidence)
	opts := driven.GenerateOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
		TopP:        answerTopP,
	}

	text, err := s.llm.Generate(ctx, prompt, opts)
	if err != nil && domain.IsTransientGeneration(err) && ctx.Err() == nil {
		logger.Warn("generation failed transiently, retrying once: %v", err)
		select {
		case <-time.After(s.retryDelay):
			text, err = s.llm.Generate(ctx, prompt, opts)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("generation cancelled: %v", err)
			record.Answer = domain.SentinelAnswer
			record.Degraded = true
			return record
		}
		logger.Warn("generation failed, using extractive fallback: %v", err)
		record.Answer = extractiveFallback(evidence[0])
		record.Confidence = evidence[0].Score / 2
		record.Degraded = true
		return record
	}

	answer := strings.TrimSpace(text)
	if answer == "" {
		record.Answer = domain.SentinelAnswer
		record.Degraded = true
		return record
	}

	record.Answer = answer
	record.Confidence = evidence[0].Score
	return record
}

// buildPrompt lays the evidence out as numbered clauses under the analyst
// preamble. Prompt templates come from the store, falling back to the
// built-in defaults if loading fails.
func (s *Synthesizer) buildPrompt(question string, evidence []domain.Evidence) string {
	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		logger.Warn("loading %s prompt: %v", driven.PromptAnswerSystem, err)
		system = defaultSystemPrompt
	}
	user, err := s.prompts.Load(driven.PromptAnswerUser)
	if err != nil {
		logger.Warn("loading %s prompt: %v", driven.PromptAnswerUser, err)
		user = defaultUserPrompt
	}

	var b strings.Builder
	for i, ev := range evidence {
		fmt.Fprintf(&b, "Clause %d (Relevance: %.2f):\nSource: %s\nContent: %s\n\n",
			i+1, ev.Score, ev.Chunk.SourceRef(), ev.Chunk.Text)
	}

	return system + "\n\n" + fmt.Sprintf(user, question, strings.TrimRight(b.String(), "\n"))
}

var sentenceEnd = regexp.MustCompile(`(?s)[^.!?]+[.!?]+|[^.!?]+$`)

// extractiveFallback quotes the leading sentences of the top clause, capped
// at fallbackMaxWords, when no generated answer is available.
func extractiveFallback(top domain.Evidence) string {
	var quoted []string
	words := 0
	for _, sentence := range sentenceEnd.FindAllString(top.Chunk.Text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		quoted = append(quoted, sentence)
		words += len(strings.Fields(sentence))
		if words >= fallbackMaxWords {
			break
		}
	}
	if len(quoted) == 0 {
		return domain.SentinelAnswer
	}
	return fmt.Sprintf("Based on the policy document (%s): %s",
		top.Chunk.SourceRef(), strings.Join(quoted, " "))
}
