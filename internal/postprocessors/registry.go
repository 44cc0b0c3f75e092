package postprocessors

import (
	"fmt"
	"sort"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// Builder constructs a processing stage from its settings map. Settings
// come from user configuration, so value types reflect TOML decoding.
type Builder func(settings map[string]any) (driven.PostProcessor, error)

// Registry resolves stage names from configuration to Builders, so the
// chunking pipeline can be assembled without hard-coding stage types.
type Registry struct {
	byName map[string]Builder
}

// NewRegistry returns an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Builder)}
}

// Register binds a builder to a stage name. The name must match what the
// built stage reports from Name(). Re-registering replaces the builder.
func (r *Registry) Register(name string, build Builder) {
	r.byName[name] = build
}

// Build constructs the named stage with the given settings.
func (r *Registry) Build(name string, settings map[string]any) (driven.PostProcessor, error) {
	build, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processing stage %q", domain.ErrInvalidInput, name)
	}
	return build(settings)
}

// Has reports whether a stage name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names lists all registered stage names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
