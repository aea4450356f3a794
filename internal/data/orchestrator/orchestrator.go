// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	agentproviders "github.com/Nireus79/Socrates2-sub000/internal/agent/providers"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
	"github.com/Nireus79/Socrates2-sub000/internal/pipeline"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// Orchestrator wires together the store, the completion provider, the
// capability registry and the commit pipeline, and exposes accessors for the
// API layer.
type Orchestrator struct {
	cfg Config

	store    *store.Store
	provider llm.Provider
	registry *agent.Registry
	pipeline *pipeline.Pipeline

	ownsStore bool
}

// New constructs an orchestrator from the provided configuration and optional
// overrides. All capability providers are registered before New returns.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	st := settings.store
	ownsStore := false
	if st == nil {
		opened, err := store.OpenWithConfig(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = opened
		ownsStore = true
	}

	provider := settings.provider
	if provider == nil {
		provider = llm.NewProvider()
	}

	registry := agent.NewRegistry()
	quality := agentproviders.NewQualityProvider(provider, cfg.QualityThreshold)
	toRegister := []agent.Provider{
		agentproviders.NewProjectProvider(st),
		agentproviders.NewQuestionProvider(st, provider, quality),
		agentproviders.NewExtractionProvider(provider),
		agentproviders.NewConflictProvider(st, provider),
		quality,
		agentproviders.NewExportProvider(st),
	}
	for _, p := range toRegister {
		if err := registry.Register(p); err != nil {
			if ownsStore {
				st.Close()
			}
			return nil, fmt.Errorf("register provider %q: %w", p.Name(), err)
		}
	}

	orch := &Orchestrator{
		cfg:       cfg,
		store:     st,
		provider:  provider,
		registry:  registry,
		pipeline:  pipeline.New(registry, st, cfg.StageTimeout),
		ownsStore: ownsStore,
	}
	common.Logger().Info("orchestrator: ready", "providers", len(toRegister), "db_path", cfg.Store.Path)
	return orch, nil
}

// Store exposes the durable store.
func (o *Orchestrator) Store() *store.Store {
	if o == nil {
		return nil
	}
	return o.store
}

// Registry exposes the capability registry.
func (o *Orchestrator) Registry() *agent.Registry {
	if o == nil {
		return nil
	}
	return o.registry
}

// Pipeline exposes the commit pipeline.
func (o *Orchestrator) Pipeline() *pipeline.Pipeline {
	if o == nil {
		return nil
	}
	return o.pipeline
}

// Provider exposes the configured completion provider.
func (o *Orchestrator) Provider() llm.Provider {
	if o == nil {
		return nil
	}
	return o.provider
}

// Close releases resources owned by the orchestrator. Stores injected via
// WithStore stay open; their lifetime belongs to the caller.
func (o *Orchestrator) Close() error {
	if o == nil || !o.ownsStore {
		return nil
	}
	return o.store.Close()
}
