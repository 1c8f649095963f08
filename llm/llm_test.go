package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/wagergenie/config"
)

func TestOpenAIComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Event: Lakers vs Warriors"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/", "sk-test", Options{Model: "gpt-test", Temperature: 0.7, MaxTokens: 500}, nil)
	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "Context: {}\n\nUser Query: hi"})
	require.NoError(t, err)
	assert.Equal(t, "Event: Lakers vs Warriors", out)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenAICompleteJSONSendsSchema(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"message\":\"ok\",\"pick\":null}"}}]}`))
	}))
	defer srv.Close()

	schema := &jsonschema.Schema{Type: "object", Required: []string{"message"}}
	out, err := NewOpenAI(srv.URL, "k", Options{Model: "m"}, nil).
		CompleteJSON(context.Background(), Prompt{User: "hi"}, "reply", schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"ok","pick":null}`, string(out))

	rf, ok := raw["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "reply", js["name"])
	assert.Equal(t, false, js["strict"])
	assert.Equal(t, "object", js["schema"].(map[string]any)["type"])
}

func TestOpenAIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "k", Options{}, nil).Complete(context.Background(), Prompt{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "k", Options{}, nil).Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestOllamaChat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"Prediction: Over 8.5"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, Options{Model: "llama3.1", Temperature: 0.7, MaxTokens: 200}, nil)
	require.NoError(t, err)

	out, err := o.Complete(context.Background(), Prompt{System: "sys", User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Prediction: Over 8.5", out)
	assert.Equal(t, "llama3.1", got["model"])
	assert.Equal(t, false, got["stream"])
	opts := got["options"].(map[string]any)
	assert.Equal(t, 200.0, opts["num_predict"])
}

func TestNewSelectsProvider(t *testing.T) {
	c, err := New(&config.Config{LLMProvider: "openai", OpenAIBaseURL: "https://api.openai.com", OpenAIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	c, err = New(&config.Config{LLMProvider: "ollama", OllamaHost: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	_, err = New(&config.Config{LLMProvider: "bard"})
	assert.Error(t, err)
}
