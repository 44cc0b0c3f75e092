package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

// DefaultConfigDir is the directory under the user's home that holds the
// config file and prompt templates.
const DefaultConfigDir = ".clauseseek"

// AppConfig is the on-disk configuration shape. Zero values mean "use the
// built-in default" throughout.
type AppConfig struct {
	Verbose bool `toml:"verbose"`

	Embedding ProviderConfig   `toml:"embedding"`
	LLM       ProviderConfig   `toml:"llm"`
	Pipeline  PipelineSettings `toml:"pipeline"`
	Storage   StorageSettings  `toml:"storage"`
}

// ProviderConfig selects and configures one model provider.
type ProviderConfig struct {
	// Provider is the backend name: "openai", "ollama" or "gemini".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates against the provider. Environment variables
	// take precedence so keys need not live in the file.
	APIKey string `toml:"api_key"`

	// RequestsPerSecond caps outbound calls to the provider.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// PipelineSettings mirrors domain.PipelineConfig with TOML keys.
type PipelineSettings struct {
	MaxChunkTokens       int     `toml:"max_chunk_tokens"`
	ChunkOverlapTokens   int     `toml:"chunk_overlap_tokens"`
	TopKCandidates       int     `toml:"top_k_candidates"`
	EvidenceCount        int     `toml:"evidence_count"`
	RerankWeight         float64 `toml:"rerank_weight"`
	RelevanceThreshold   float64 `toml:"relevance_threshold"`
	ContextTokenBudget   int     `toml:"context_token_budget"`
	NearDuplicateJaccard float64 `toml:"near_duplicate_jaccard"`
	MaxParallelQuestions int     `toml:"max_parallel_questions"`
	PerQuestionTimeout   string  `toml:"per_question_timeout"`
	RequestTimeout       string  `toml:"request_timeout"`
	IndexCacheSize       int     `toml:"index_cache_size"`
}

// StorageSettings configures the persistent chunk cache.
type StorageSettings struct {
	// Path is the SQLite database path. Empty uses the config directory.
	Path string `toml:"path"`

	// Disabled turns the persistent cache off entirely.
	Disabled bool `toml:"disabled"`
}

// DefaultConfigPath returns ~/.clauseseek/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, "config.toml"), nil
}

// LoadConfig reads the TOML config at path, then applies environment
// variable overrides. A missing file is not an error; it yields the
// defaults with env overrides applied.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets environment variables override file values, so API keys
// can stay out of the config file.
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if c.Embedding.Provider == "" || c.Embedding.Provider == "openai" {
			c.Embedding.APIKey = v
		}
		if c.LLM.Provider == "" || c.LLM.Provider == "openai" {
			c.LLM.APIKey = v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.Provider == "gemini" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CLAUSESEEK_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("CLAUSESEEK_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

// PipelineConfig converts the file settings into a validated
// domain.PipelineConfig, with zero values falling back to defaults.
func (c *AppConfig) PipelineConfig() (domain.PipelineConfig, error) {
	out := domain.DefaultPipelineConfig()
	p := c.Pipeline

	if p.MaxChunkTokens > 0 {
		out.MaxChunkTokens = p.MaxChunkTokens
	}
	if p.ChunkOverlapTokens > 0 {
		out.ChunkOverlapTokens = p.ChunkOverlapTokens
	}
	if p.TopKCandidates > 0 {
		out.TopKCandidates = p.TopKCandidates
	}
	if p.EvidenceCount > 0 {
		out.EvidenceCount = p.EvidenceCount
	}
	if p.RerankWeight > 0 {
		out.RerankWeight = p.RerankWeight
	}
	if p.RelevanceThreshold > 0 {
		out.RelevanceThreshold = p.RelevanceThreshold
	}
	if p.ContextTokenBudget > 0 {
		out.ContextTokenBudget = p.ContextTokenBudget
	}
	if p.NearDuplicateJaccard > 0 {
		out.NearDuplicateJaccard = p.NearDuplicateJaccard
	}
	if p.MaxParallelQuestions > 0 {
		out.MaxParallelQuestions = p.MaxParallelQuestions
	}
	if p.IndexCacheSize > 0 {
		out.IndexCacheSize = p.IndexCacheSize
	}
	if p.PerQuestionTimeout != "" {
		d, err := time.ParseDuration(p.PerQuestionTimeout)
		if err != nil {
			return out, fmt.Errorf("%w: per_question_timeout: %v", domain.ErrInvalidInput, err)
		}
		out.PerQuestionTimeout = d
	}
	if p.RequestTimeout != "" {
		d, err := time.ParseDuration(p.RequestTimeout)
		if err != nil {
			return out, fmt.Errorf("%w: request_timeout: %v", domain.ErrInvalidInput, err)
		}
		out.RequestTimeout = d
	}

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// StoragePath resolves the SQLite cache path, defaulting to
// <config dir>/cache.db next to the config file.
func (c *AppConfig) StoragePath(configPath string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(filepath.Dir(configPath), "cache.db")
}

// WriteDefault writes a commented starter config to path if none exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	content := `# clauseseek configuration

verbose = false

[embedding]
provider = "openai"            # openai | ollama
# model = "text-embedding-3-small"
# api_key is read from OPENAI_API_KEY when unset

[llm]
provider = "openai"            # openai | gemini
# model = "gpt-4o-mini"

[pipeline]
# max_chunk_tokens = 256
# chunk_overlap_tokens = 32
# top_k_candidates = 20
# evidence_count = 5
# rerank_weight = 0.7
# relevance_threshold = 0.3
# context_token_budget = 1536
# max_parallel_questions = 4
# per_question_timeout = "45s"
# request_timeout = "5m"
# index_cache_size = 8

[storage]
# path = ""                    # defaults to cache.db next to this file
# disabled = false
`
	return os.WriteFile(path, []byte(content), 0o600)
}
