package normalisers

import (
	"fmt"
	"sync"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a normaliser for a MIME type by priority.
type Registry struct {
	mu       sync.RWMutex
	byMIME   map[string][]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Register adds a normaliser for every MIME type it supports. The lowest
// priority registrant doubles as the fallback for unclaimed types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range n.SupportedMIMETypes() {
		r.byMIME[mt] = append(r.byMIME[mt], n)
	}
	if r.fallback == nil || n.Priority() < r.fallback.Priority() {
		r.fallback = n
	}
}

// ForMIMEType returns the highest-priority normaliser claiming the type,
// or the fallback when nothing claims it.
func (r *Registry) ForMIMEType(mimeType string) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.byMIME[mimeType]
	if len(candidates) == 0 {
		if r.fallback != nil {
			return r.fallback, nil
		}
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedType, mimeType)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Priority() > best.Priority() {
			best = c
		}
	}
	return best, nil
}
