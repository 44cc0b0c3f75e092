// Package openai embeds text through the OpenAI embeddings API, or any
// compatible endpoint reachable at a custom base URL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "text-embedding-3-small"
	DefaultTimeout           = 60 * time.Second
	DefaultRequestsPerSecond = 5
)

// modelDimensions maps known models to their native vector sizes.
// Unknown models fall back to 1536 unless Config.Dimensions is set.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds settings for the OpenAI embedding client. Only APIKey is
// required; BaseURL can point at Azure OpenAI or another compatible API.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64

	// Dimensions overrides the model's native size. Only the
	// text-embedding-3-* models honour the override server-side.
	Dimensions int
}

// EmbeddingService batches texts into single API calls and rate-limits
// outbound requests.
type EmbeddingService struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// NewEmbeddingService validates the config and builds the client.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	dims := cfg.Dimensions
	if dims == 0 {
		if native, ok := modelDimensions[cfg.Model]; ok {
			dims = native
		} else {
			dims = 1536
		}
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dims,
	}, nil
}

// Embed returns the vector for a single text via a one-element batch.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("openai: %w: no embedding returned", domain.ErrEmbeddingUnavailable)
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one API call. An empty input makes no
// request at all.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("openai: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	body, status, err := s.post(ctx, texts)
	if err != nil {
		return nil, err
	}
	return s.decodeVectors(body, status, len(texts))
}

// post sends the embeddings request and returns the raw response body
// with its HTTP status.
func (s *EmbeddingService) post(ctx context.Context, texts []string) ([]byte, int, error) {
	payload := struct {
		Model      string   `json:"model"`
		Input      []string `json:"input"`
		Dimensions int      `json:"dimensions,omitempty"`
	}{Model: s.model, Input: texts}

	// Only text-embedding-3-* models accept a dimensions override.
	if s.model == "text-embedding-3-small" || s.model == "text-embedding-3-large" {
		payload.Dimensions = s.dimensions
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: %w: reading response: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

// decodeVectors parses the response and places each vector at the index
// the API reports, since results are not guaranteed to arrive in input
// order.
func (s *EmbeddingService) decodeVectors(body []byte, status, want int) ([][]float32, error) {
	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai: %w: decoding response: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai: %w: %s", domain.ErrEmbeddingUnavailable, parsed.Error.Message)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openai: %w: status %d: %s", domain.ErrEmbeddingUnavailable, status, string(body))
	}

	vecs := make([][]float32, want)
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= want {
			return nil, fmt.Errorf("openai: %w: embedding index %d out of range", domain.ErrEmbeddingUnavailable, item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vecs[item.Index] = vec
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai: %w: missing embedding for input %d", domain.ErrEmbeddingUnavailable, i)
		}
	}
	return vecs, nil
}

// Dimensions returns the vector size requests are made with.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Close is a no-op; the client holds no persistent connections.
func (s *EmbeddingService) Close() error { return nil }
