// Package llm talks to chat-completion providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/padraicbc/wagergenie/config"
)

// ErrUpstream wraps every failure reported by a provider.
var ErrUpstream = errors.New("completion provider failed")

// Prompt is one single-turn exchange: fixed instructions plus the user turn.
type Prompt struct {
	System string
	User   string
}

// Completer returns free text for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// StructuredCompleter can additionally constrain the reply to a JSON schema.
// The returned bytes are the raw JSON document; callers validate it.
type StructuredCompleter interface {
	Completer
	CompleteJSON(ctx context.Context, p Prompt, name string, schema *jsonschema.Schema) ([]byte, error)
}

// Options are the sampling settings shared by all providers.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// New builds the provider selected by cfg.LLMProvider.
func New(cfg *config.Config) (StructuredCompleter, error) {
	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIKey, Options{
			Model:       cfg.OpenAIModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		}, hc), nil
	case "ollama":
		return NewOllama(cfg.OllamaHost, Options{
			Model:       cfg.OllamaModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		}, hc)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func defaultHTTPClient(hc *http.Client) *http.Client {
	if hc != nil {
		return hc
	}
	return &http.Client{Timeout: 60 * time.Second}
}
