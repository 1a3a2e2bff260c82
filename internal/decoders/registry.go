package decoders

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.DecoderRegistry = (*Registry)(nil)

// Registry maps MIME subtypes to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]driven.Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]driven.Decoder),
	}
}

// Register adds decoder under each of its subtypes.
func (r *Registry) Register(decoder driven.Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, subtype := range decoder.Subtypes() {
		r.decoders[strings.ToLower(subtype)] = decoder
	}
}

// Lookup returns the decoder registered for subtype.
func (r *Registry) Lookup(subtype string) (driven.Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decoder, ok := r.decoders[strings.ToLower(subtype)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnexpectedFormat, subtype)
	}
	if !decoder.Supported() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, subtype)
	}
	return decoder, nil
}

// Subtypes returns all registered subtypes, sorted.
func (r *Registry) Subtypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subtypes := make([]string, 0, len(r.decoders))
	for subtype := range r.decoders {
		subtypes = append(subtypes, subtype)
	}
	sort.Strings(subtypes)
	return subtypes
}
