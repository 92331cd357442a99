package engine

import (
	"github.com/lifectx/engine/pkg/llm"
	"github.com/lifectx/engine/pkg/reference"
	"github.com/lifectx/engine/pkg/signal"
)

// Registry holds pluggable providers by id. It is built at startup and
// passed into the engine explicitly so tests can substitute deterministic
// fakes; there is no package-level default.
type Registry struct {
	llms      map[string]llm.Client
	signals   map[string]signal.Source
	searchers map[string]reference.Searcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		llms:      make(map[string]llm.Client),
		signals:   make(map[string]signal.Source),
		searchers: make(map[string]reference.Searcher),
	}
}

// RegisterLLM adds a language-model provider under id.
func (r *Registry) RegisterLLM(id string, client llm.Client) {
	r.llms[id] = client
}

// LLM returns the provider registered under id.
func (r *Registry) LLM(id string) (llm.Client, bool) {
	c, ok := r.llms[id]
	return c, ok
}

// RegisterSignalSource adds a signal source plugin.
func (r *Registry) RegisterSignalSource(src signal.Source) {
	r.signals[src.Name()] = src
}

// SignalSources returns all registered signal sources.
func (r *Registry) SignalSources() []signal.Source {
	sources := make([]signal.Source, 0, len(r.signals))
	for _, s := range r.signals {
		sources = append(sources, s)
	}
	return sources
}

// RegisterSearcher adds a reference-search plugin under id.
func (r *Registry) RegisterSearcher(id string, s reference.Searcher) {
	r.searchers[id] = s
}

// Searcher returns the reference searcher registered under id.
func (r *Registry) Searcher(id string) (reference.Searcher, bool) {
	s, ok := r.searchers[id]
	return s, ok
}
