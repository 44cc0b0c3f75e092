// Package cli implements the cobra command tree. Commands talk to the core
// exclusively through driving ports; all wiring of driven adapters happens
// here, at the edge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parchmentlabs/clauseseek/internal/adapters/driven/config/file"
	"github.com/parchmentlabs/clauseseek/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/parchmentlabs/clauseseek/internal/adapters/driven/embedding/openai"
	"github.com/parchmentlabs/clauseseek/internal/adapters/driven/fetch"
	"github.com/parchmentlabs/clauseseek/internal/adapters/driven/llm/gemini"
	openaillm "github.com/parchmentlabs/clauseseek/internal/adapters/driven/llm/openai"
	"github.com/parchmentlabs/clauseseek/internal/adapters/driven/storage/sqlite"
	"github.com/parchmentlabs/clauseseek/internal/assembler"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/core/services"
	"github.com/parchmentlabs/clauseseek/internal/logger"
	"github.com/parchmentlabs/clauseseek/internal/normalisers"
	"github.com/parchmentlabs/clauseseek/internal/normalisers/docx"
	"github.com/parchmentlabs/clauseseek/internal/normalisers/pdf"
	"github.com/parchmentlabs/clauseseek/internal/normalisers/plaintext"
	"github.com/parchmentlabs/clauseseek/internal/postprocessors"
	"github.com/parchmentlabs/clauseseek/internal/rerank"
	"github.com/parchmentlabs/clauseseek/internal/synthesizer"

	"github.com/parchmentlabs/clauseseek/internal/core/ports/driving"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// queryService is wired by initServices before a command that needs it runs.
var queryService driving.QueryService

// cleanups run after the command finishes, closing whatever initServices
// opened.
var cleanups []func()

var rootCmd = &cobra.Command{
	Use:   "clauseseek",
	Short: "Answer questions against policy and contract documents",
	Long: `clauseseek retrieves the clauses of a document most relevant to each
question and synthesises grounded answers from them. It reads PDF, DOCX
and plain-text documents from local paths or URLs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.clauseseek/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	defer runCleanups()
	return rootCmd.Execute()
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// initServices loads configuration and wires the full pipeline behind the
// QueryService port. Safe to call more than once; later calls are no-ops.
func initServices() error {
	if queryService != nil {
		return nil
	}

	path := cfgPath
	if path == "" {
		var err error
		path, err = file.DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	cfg, err := file.LoadConfig(path)
	if err != nil {
		return err
	}
	logger.SetVerbose(verbose || cfg.Verbose)

	pipeline, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	registry := normalisers.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(docx.New())
	registry.Register(pdf.New())

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return err
	}
	if err := prompts.Watch(); err != nil {
		logger.Warn("prompt reload disabled: %v", err)
	} else {
		cleanups = append(cleanups, func() { prompts.Close() })
	}

	var store driven.ChunkStore
	if !cfg.Storage.Disabled {
		s, err := sqlite.NewStore(cfg.StoragePath(path))
		if err != nil {
			// The cache is an optimisation; run without it.
			logger.Warn("chunk cache unavailable: %v", err)
		} else {
			store = s
			cleanups = append(cleanups, func() { s.Close() })
		}
	}

	stages := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(stages)
	chunkStage, err := stages.Build("chunker", map[string]any{
		"max_tokens":     pipeline.MaxChunkTokens,
		"overlap_tokens": pipeline.ChunkOverlapTokens,
	})
	if err != nil {
		return err
	}

	procs := postprocessors.NewPipeline(chunkStage)
	indexes := services.NewIndexManager(embedder, procs, store, pipeline.IndexCacheSize)
	cleanups = append(cleanups, func() { indexes.Close() })

	queryService = services.NewQuery(
		fetch.New(fetch.Config{}),
		registry,
		embedder,
		indexes,
		rerank.NewMatcher(pipeline),
		assembler.New(pipeline),
		synthesizer.New(llm, prompts),
		pipeline,
	)
	return nil
}

func buildEmbedder(cfg *file.AppConfig) (driven.EmbeddingService, error) {
	p := cfg.Embedding
	switch p.Provider {
	case "", "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            p.APIKey,
			BaseURL:           p.BaseURL,
			Model:             p.Model,
			RequestsPerSecond: p.RequestsPerSecond,
		})
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", p.Provider)
	}
}

func buildLLM(cfg *file.AppConfig) (driven.LLMService, error) {
	p := cfg.LLM
	switch p.Provider {
	case "", "openai":
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:            p.APIKey,
			BaseURL:           p.BaseURL,
			Model:             p.Model,
			RequestsPerSecond: p.RequestsPerSecond,
		})
	case "gemini":
		return gemini.NewLLMService(gemini.Config{
			APIKey:            p.APIKey,
			BaseURL:           p.BaseURL,
			Model:             p.Model,
			RequestsPerSecond: p.RequestsPerSecond,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", p.Provider)
	}
}
