// File path: internal/llm/llm.go
package llm

import (
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProvider selects a completion provider from the environment: OpenAI when
// an API key is present, Ollama when OLLAMA_HOST or OLLAMA_MODEL is set, and
// the deterministic local stub otherwise.
func NewProvider() Provider {
	logger := common.Logger()
	if apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
			timeout, err := time.ParseDuration(timeoutStr)
			if err != nil {
				logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
			} else {
				opts = append(opts, option.WithRequestTimeout(timeout))
			}
		}
		if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
			logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
			opts = append(opts, option.WithBaseURL(endpoint))
		}
		client := openai.NewClient(opts...)
		logger.Info("llm: OpenAI provider selected")
		return providers.NewOpenAIProvider(client)
	}
	host := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	model := strings.TrimSpace(os.Getenv("OLLAMA_MODEL"))
	if host != "" || model != "" {
		provider, err := providers.NewOllamaProvider(host, model)
		if err != nil {
			logger.Warn("llm: ollama provider unavailable, falling back to local stub", "error", err)
		} else {
			logger.Info("llm: ollama provider selected")
			return provider
		}
	}
	logger.Warn("llm: no completion service configured; using local provider")
	return providers.NewLocalProvider()
}
