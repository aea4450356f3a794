// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

type Option func(*options)

type options struct {
	provider llm.Provider
	store    *store.Store
}

// WithProvider injects a completion provider implementation. Primarily used
// in tests to avoid reaching a real completion service.
func WithProvider(provider llm.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithStore injects an already-open store instead of opening one from the
// configured path.
func WithStore(st *store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}
