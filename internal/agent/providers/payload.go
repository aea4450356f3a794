// File path: internal/agent/providers/payload.go
package providers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
)

// operationSet carries the shared provider plumbing: a name plus the map from
// declared capability to handler.
type operationSet struct {
	name string
	ops  map[string]agent.HandlerFunc
}

func (o *operationSet) Name() string {
	return o.name
}

func (o *operationSet) Capabilities() []string {
	capabilities := make([]string, 0, len(o.ops))
	for capability := range o.ops {
		capabilities = append(capabilities, capability)
	}
	sort.Strings(capabilities)
	return capabilities
}

func (o *operationSet) Handler(operation string) (agent.HandlerFunc, bool) {
	handler, ok := o.ops[operation]
	return handler, ok
}

func stringField(payload agent.Payload, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func floatField(payload agent.Payload, key string) float64 {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return 0
	}
}

// decodeInto converts a payload field to a typed value. Fields arrive either
// as typed Go values (in-process dispatch) or as generic JSON shapes (HTTP
// dispatch); a marshal round trip handles both.
func decodeInto(value interface{}, target interface{}) error {
	if value == nil {
		return fmt.Errorf("missing value")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode payload field: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode payload field: %w", err)
	}
	return nil
}

// stripCodeFence removes a surrounding markdown code fence from LLM output.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
