package postprocessors

import (
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/postprocessors/chunker"
)

// RegisterDefaults registers the built-in stages. Call once at startup
// before building pipelines from configuration.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// buildChunker assembles the token-window chunker. Recognised settings:
//
//	max_tokens      estimated tokens per chunk
//	overlap_tokens  tokens shared between adjacent chunks
func buildChunker(settings map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size := intSetting(settings, "max_tokens"); size > 0 {
		opts = append(opts, chunker.WithMaxTokens(size))
	}
	if _, ok := settings["overlap_tokens"]; ok {
		opts = append(opts, chunker.WithOverlapTokens(intSetting(settings, "overlap_tokens")))
	}

	return chunker.New(opts...), nil
}

// intSetting reads an integer setting, tolerating the numeric types TOML
// and JSON decoders produce.
func intSetting(settings map[string]any, key string) int {
	switch v := settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
