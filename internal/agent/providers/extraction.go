// File path: internal/agent/providers/extraction.go
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
)

// ExtractionProvider turns a free-text answer into structured candidate
// specifications via the completion service.
type ExtractionProvider struct {
	operationSet
	provider llm.Provider
}

func NewExtractionProvider(provider llm.Provider) *ExtractionProvider {
	p := &ExtractionProvider{provider: provider}
	p.operationSet = operationSet{
		name: "extraction",
		ops: map[string]agent.HandlerFunc{
			"extract_specifications": p.extract,
		},
	}
	return p
}

type extractedCandidate struct {
	Category   string  `json:"category"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Supersedes []string `json:"supersedes"`
}

func (p *ExtractionProvider) extract(ctx context.Context, payload agent.Payload) agent.Result {
	answer := stringField(payload, "answer")
	if answer == "" {
		return agent.Fail(agent.CodeValidationError, "answer is required")
	}
	question := stringField(payload, "question")
	category := stringField(payload, "category")
	if p.provider == nil {
		return agent.Fail(agent.CodeExtractionError, "no completion provider configured")
	}

	messages := []llm.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: buildExtractionPrompt(question, category, answer)},
	}
	raw, err := p.provider.Chat(ctx, messages)
	if err != nil {
		return agent.Fail(agent.CodeExtractionError, "extraction completion failed: %v", err)
	}
	candidates, err := parseCandidates(raw, category)
	if err != nil {
		common.Logger().Warn("extraction: unparseable completion", "error", err)
		return agent.Fail(agent.CodeExtractionError, "extraction output invalid: %v", err)
	}
	common.Logger().Debug("extraction: candidates produced", "count", len(candidates))
	return agent.OK(agent.Payload{"candidates": candidates, "count": len(candidates)})
}

const extractionSystemPrompt = "You extract requirement statements from user answers while building " +
	"a software specification. Respond with a JSON array only. Each element has the fields " +
	`"category", "content", "confidence" (0 to 1), "reasoning", and optionally "supersedes" ` +
	"(ids of existing specifications this statement replaces). Return [] when the answer " +
	"contains no specification-worthy statement."

func buildExtractionPrompt(question, category, answer string) string {
	var builder strings.Builder
	if category != "" {
		fmt.Fprintf(&builder, "Question category: %s\n", category)
	}
	if question != "" {
		fmt.Fprintf(&builder, "Question: %s\n", question)
	}
	fmt.Fprintf(&builder, "Answer: %s\n", answer)
	builder.WriteString("Known categories: ")
	names := make([]string, 0, len(spec.Categories()))
	for _, c := range spec.Categories() {
		names = append(names, string(c))
	}
	builder.WriteString(strings.Join(names, ", "))
	return builder.String()
}

func parseCandidates(raw, fallbackCategory string) ([]spec.Candidate, error) {
	cleaned := stripCodeFence(raw)
	var extracted []extractedCandidate
	if err := json.Unmarshal([]byte(cleaned), &extracted); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	candidates := make([]spec.Candidate, 0, len(extracted))
	for _, item := range extracted {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		category, ok := spec.ParseCategory(item.Category)
		if !ok {
			category, ok = spec.ParseCategory(fallbackCategory)
			if !ok {
				category = spec.CategoryFunctional
			}
		}
		candidates = append(candidates, spec.Candidate{
			Category:   category,
			Content:    content,
			Confidence: clamp01(item.Confidence),
			Reasoning:  strings.TrimSpace(item.Reasoning),
			Supersedes: item.Supersedes,
		})
	}
	return candidates, nil
}
