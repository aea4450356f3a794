// File path: internal/llm/providers/ollama_client.go
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/Nireus79/Socrates2-sub000/internal/common"
)

// OllamaProvider serves completions from a local Ollama instance through
// langchaingo.
type OllamaProvider struct {
	model *ollama.LLM
	name  string
}

func NewOllamaProvider(serverURL, modelName string) (*OllamaProvider, error) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "llama3"
	}
	opts := []ollama.Option{ollama.WithModel(modelName)}
	if trimmed := strings.TrimSpace(serverURL); trimmed != "" {
		opts = append(opts, ollama.WithServerURL(trimmed))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama: %w", err)
	}
	common.Logger().Info("llm: ollama provider configured", "model", modelName, "server", serverURL)
	return &OllamaProvider{model: model, name: modelName}, nil
}

func (o *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o.model == nil {
		return "", fmt.Errorf("nil ollama model")
	}
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}
	resp, err := o.model.GenerateContent(ctx, content)
	if err != nil {
		common.Logger().Error("llm: ollama completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}

func chatMessageType(role string) llms.ChatMessageType {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
