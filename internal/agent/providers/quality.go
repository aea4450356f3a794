// File path: internal/agent/providers/quality.go
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

// QualityVerdict is the screening outcome for one piece of text.
type QualityVerdict struct {
	Score        float64  `json:"score"`
	IsBlocking   bool     `json:"is_blocking"`
	Reason       string   `json:"reason,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// QualityScreener screens generated or extracted text for quality and bias.
// The question provider consumes the screener directly rather than routing
// back through the registry.
type QualityScreener interface {
	Screen(ctx context.Context, text string) (QualityVerdict, error)
}

// QualityProvider scores candidate specifications and generated questions.
// Scores below the blocking threshold reject the gated operation.
type QualityProvider struct {
	operationSet
	provider  llm.Provider
	threshold float64
}

func NewQualityProvider(provider llm.Provider, blockingThreshold float64) *QualityProvider {
	if blockingThreshold <= 0 || blockingThreshold >= 1 {
		blockingThreshold = 0.3
	}
	p := &QualityProvider{provider: provider, threshold: blockingThreshold}
	p.operationSet = operationSet{
		name: "quality",
		ops: map[string]agent.HandlerFunc{
			"check_quality": p.check,
		},
	}
	return p
}

func (p *QualityProvider) check(ctx context.Context, payload agent.Payload) agent.Result {
	text := stringField(payload, "text")
	if text == "" {
		var candidates []spec.Candidate
		if err := decodeInto(payload["candidates"], &candidates); err == nil && len(candidates) > 0 {
			parts := make([]string, 0, len(candidates))
			for _, candidate := range candidates {
				parts = append(parts, candidate.Content)
			}
			text = strings.Join(parts, "\n")
		}
	}
	if strings.TrimSpace(text) == "" {
		return agent.Fail(agent.CodeValidationError, "text or candidates required")
	}
	verdict, err := p.Screen(ctx, text)
	if err != nil {
		return agent.Fail(agent.CodeQualityCheckFailed, "quality screening failed: %v", err)
	}
	return agent.OK(agent.Payload{
		"score":        verdict.Score,
		"is_blocking":  verdict.IsBlocking,
		"reason":       verdict.Reason,
		"alternatives": verdict.Alternatives,
	})
}

type qualityResponse struct {
	Score        float64  `json:"score"`
	Reason       string   `json:"reason"`
	Alternatives []string `json:"alternatives"`
	Biased       bool     `json:"biased"`
}

// Screen asks the completion service for a quality/bias judgment. When the
// response cannot be parsed the heuristic score stands in, so an offline
// provider degrades rather than blocking every submission.
func (p *QualityProvider) Screen(ctx context.Context, text string) (QualityVerdict, error) {
	if p.provider == nil {
		return QualityVerdict{}, fmt.Errorf("no completion provider configured")
	}
	raw, err := p.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: qualitySystemPrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		return QualityVerdict{}, err
	}
	cleaned := stripCodeFence(raw)
	var decoded qualityResponse
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		score := heuristicScore(text)
		common.Logger().Warn("quality: unparseable completion, using heuristic", "score", score)
		return QualityVerdict{
			Score:      score,
			IsBlocking: score < p.threshold,
			Reason:     fmt.Sprintf("screener output unparseable, length heuristic scored %.1f", score),
		}, nil
	}
	score := clamp01(decoded.Score)
	verdict := QualityVerdict{
		Score:        score,
		IsBlocking:   decoded.Biased || score < p.threshold,
		Reason:       strings.TrimSpace(decoded.Reason),
		Alternatives: decoded.Alternatives,
	}
	return verdict, nil
}

const qualitySystemPrompt = "You screen specification text for quality and leading or biased phrasing. " +
	`Respond with a JSON object only: {"score" (0 to 1), "biased" (bool), "reason", ` +
	`"alternatives" (suggested rewrites, optional)}. Score below 0.3 means the text ` +
	"is too vague or contradictory to keep."

// heuristicScore is a crude length/specificity fallback used when the
// completion service answers with prose instead of JSON.
func heuristicScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	words := len(strings.Fields(trimmed))
	switch {
	case words == 0:
		return 0
	case words < 3:
		return 0.2
	case words < 8:
		return 0.5
	default:
		return 0.7
	}
}
