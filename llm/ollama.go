package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/ollama/ollama/api"
)

// Ollama calls a local Ollama server's chat endpoint.
type Ollama struct {
	client *api.Client
	opts   Options
}

// NewOllama connects to host, or to OLLAMA_HOST when host is empty.
func NewOllama(host string, opts Options, hc *http.Client) (*Ollama, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		return &Ollama{client: client, opts: opts}, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	return &Ollama{client: api.NewClient(u, defaultHTTPClient(hc)), opts: opts}, nil
}

// Complete returns the model's reply.
func (o *Ollama) Complete(ctx context.Context, p Prompt) (string, error) {
	return o.chat(ctx, p, nil)
}

// CompleteJSON passes schema as the response format.
func (o *Ollama) CompleteJSON(ctx context.Context, p Prompt, _ string, schema *jsonschema.Schema) ([]byte, error) {
	format, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	out, err := o.chat(ctx, p, format)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (o *Ollama) chat(ctx context.Context, p Prompt, format json.RawMessage) (string, error) {
	req := &api.ChatRequest{
		Model: o.opts.Model,
		Messages: []api.Message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Stream: new(bool), // false
		Format: format,
		Options: map[string]any{
			"temperature": o.opts.Temperature,
		},
	}
	if o.opts.MaxTokens > 0 {
		req.Options["num_predict"] = o.opts.MaxTokens
	}

	var reply strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat: %w", ErrUpstream, err)
	}
	return reply.String(), nil
}
