// File path: internal/agent/registry.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Nireus79/Socrates2-sub000/internal/common"
)

var (
	ErrDuplicateProvider = errors.New("provider already registered")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// Payload is the loosely-typed argument map handed to provider operations.
type Payload map[string]interface{}

// HandlerFunc executes a single provider operation.
type HandlerFunc func(ctx context.Context, payload Payload) Result

// Provider is a pluggable capability provider. Capabilities declare the
// operations a provider supports; Handler maps an operation name to its
// typed handler. Every declared capability must resolve to a handler, which
// the registry verifies at registration time.
type Provider interface {
	Name() string
	Capabilities() []string
	Handler(operation string) (HandlerFunc, bool)
}

type registration struct {
	provider     Provider
	capabilities map[string]struct{}

	received  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// Registry routes operations to registered providers. Registration happens
// once during startup; after that the provider map is only read, so dispatch
// takes no lock beyond the per-provider atomic counters.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registration
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*registration)}
}

// Register adds a provider under its declared name. The first registration
// for a name stays authoritative.
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("%w: nil provider", ErrInvalidProvider)
	}
	name := strings.TrimSpace(provider.Name())
	if name == "" {
		return fmt.Errorf("%w: empty provider name", ErrInvalidProvider)
	}
	capabilities := provider.Capabilities()
	if len(capabilities) == 0 {
		return fmt.Errorf("%w: provider %q declares no capabilities", ErrInvalidProvider, name)
	}
	declared := make(map[string]struct{}, len(capabilities))
	for _, capability := range capabilities {
		capability = strings.TrimSpace(capability)
		if capability == "" {
			return fmt.Errorf("%w: provider %q declares an empty capability", ErrInvalidProvider, name)
		}
		handler, ok := provider.Handler(capability)
		if !ok || handler == nil {
			return fmt.Errorf("%w: provider %q has no handler for %q", ErrInvalidProvider, name, capability)
		}
		declared[capability] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.providers[name] = &registration{provider: provider, capabilities: declared}
	common.Logger().Info("agent: provider registered", "provider", name, "capabilities", len(declared))
	return nil
}

// Unregister removes a provider by name.
func (r *Registry) Unregister(name string) error {
	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	delete(r.providers, name)
	common.Logger().Info("agent: provider unregistered", "provider", name)
	return nil
}

// Providers returns the sorted names of every registered provider.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the sorted capability list of one provider.
func (r *Registry) Capabilities(name string) ([]string, error) {
	r.mu.RLock()
	reg, ok := r.providers[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	capabilities := make([]string, 0, len(reg.capabilities))
	for capability := range reg.capabilities {
		capabilities = append(capabilities, capability)
	}
	sort.Strings(capabilities)
	return capabilities, nil
}

// Dispatch routes an operation to a provider and returns its result. Dispatch
// is total: unknown providers, undeclared operations and provider panics all
// come back as structured failure results, never as Go errors or panics.
func (r *Registry) Dispatch(ctx context.Context, providerID, operation string, payload Payload) Result {
	logger := common.Logger()
	providerID = strings.TrimSpace(providerID)
	operation = strings.TrimSpace(operation)

	r.mu.RLock()
	reg, ok := r.providers[providerID]
	r.mu.RUnlock()
	if !ok {
		known := r.Providers()
		logger.Warn("agent: dispatch to unknown provider", "provider", providerID, "operation", operation)
		return Fail(CodeUnknownAgent, "unknown agent %q (registered: %s)", providerID, strings.Join(known, ", "))
	}
	reg.received.Add(1)
	if _, declared := reg.capabilities[operation]; !declared {
		reg.failed.Add(1)
		capabilities, _ := r.Capabilities(providerID)
		logger.Warn("agent: unsupported operation", "provider", providerID, "operation", operation)
		return Fail(CodeUnsupportedAction, "agent %q does not support %q (capabilities: %s)",
			providerID, operation, strings.Join(capabilities, ", "))
	}
	handler, ok := reg.provider.Handler(operation)
	if !ok || handler == nil {
		reg.failed.Add(1)
		return Fail(CodeDispatchError, "agent %q lost handler for %q", providerID, operation)
	}
	result := r.invoke(ctx, providerID, operation, handler, payload)
	if result.Success {
		reg.succeeded.Add(1)
	} else {
		reg.failed.Add(1)
		logger.Debug("agent: dispatch failed", "provider", providerID, "operation", operation, "code", result.ErrorCode)
	}
	return result
}

func (r *Registry) invoke(ctx context.Context, providerID, operation string, handler HandlerFunc, payload Payload) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			common.Logger().Error("agent: provider panicked", "provider", providerID, "operation", operation, "panic", recovered)
			result = Fail(CodeDispatchError, "agent %q operation %q failed: %v", providerID, operation, recovered)
		}
	}()
	if err := ctx.Err(); err != nil {
		return Fail(CodeDispatchError, "agent %q operation %q: %v", providerID, operation, err)
	}
	return handler(ctx, payload)
}

// ProviderStats is the counter snapshot for one provider.
type ProviderStats struct {
	Requests  int64 `json:"requests"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Stats summarises registry usage. Read-only; no counters move.
type Stats struct {
	ProviderCount int                      `json:"provider_count"`
	TotalRequests int64                    `json:"total_requests"`
	Providers     map[string]ProviderStats `json:"providers"`
}

// Stats returns a snapshot of per-provider dispatch counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Stats{
		ProviderCount: len(r.providers),
		Providers:     make(map[string]ProviderStats, len(r.providers)),
	}
	for name, reg := range r.providers {
		snapshot := ProviderStats{
			Requests:  reg.received.Load(),
			Succeeded: reg.succeeded.Load(),
			Failed:    reg.failed.Load(),
		}
		stats.Providers[name] = snapshot
		stats.TotalRequests += snapshot.Requests
	}
	return stats
}
