package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/divination/internal/config"
)

func collect(t *testing.T, m ModelCapability, prompt string) (string, error) {
	t.Helper()
	var b strings.Builder
	for chunk, err := range m.Generate(context.Background(), prompt) {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func writeSSE(w io.Writer, event string, v any) {
	if event != "" {
		_, _ = io.WriteString(w, "event: "+event+"\n")
	}
	b, _ := json.Marshal(v)
	_, _ = io.WriteString(w, "data: ")
	_, _ = w.Write(b)
	_, _ = io.WriteString(w, "\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func openAIMock(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models/gpt-4o-mini"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"gpt-4o-mini","object":"model","created":1700000000,"owned_by":"openai"}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["stream"] != true {
				http.Error(w, "expected stream", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			for _, c := range chunks {
				writeSSE(w, "", map[string]any{
					"id":      "chatcmpl-1",
					"object":  "chat.completion.chunk",
					"created": 1700000000,
					"model":   "gpt-4o-mini",
					"choices": []any{map[string]any{
						"index":         0,
						"delta":         map[string]any{"content": c},
						"finish_reason": nil,
					}},
				})
			}
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIModel(t *testing.T) {
	srv := openAIMock(t, []string{"The tower ", "falls."})
	m := NewOpenAIModel(config.AIConfig{OpenAIAPIKey: "sk-test", BaseURL: srv.URL + "/v1"})

	assert.True(t, m.Available())
	require.NoError(t, m.Initialize(context.Background()))

	text, err := collect(t, m, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "The tower falls.", text)
}

func TestOpenAIModelErrors(t *testing.T) {
	srv := openAIMock(t, nil)

	assert.False(t, NewOpenAIModel(config.AIConfig{}).Available())

	m := NewOpenAIModel(config.AIConfig{OpenAIAPIKey: "sk-wrong", BaseURL: srv.URL + "/v1"})
	assert.Error(t, m.Initialize(context.Background()))
	_, err := collect(t, m, "prompt")
	assert.Error(t, err)

	m = NewOpenAIModel(config.AIConfig{OpenAIAPIKey: "sk-test", Model: "gpt-missing", BaseURL: srv.URL + "/v1"})
	assert.Error(t, m.Initialize(context.Background()))
}

func anthropicMock(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models/claude-3-5-haiku-latest"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"claude-3-5-haiku-latest","type":"model","display_name":"Claude Haiku","created_at":"2024-10-22T00:00:00Z"}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			writeSSE(w, "message_start", map[string]any{"type": "message_start", "message": map[string]any{}})
			writeSSE(w, "content_block_start", map[string]any{
				"type":          "content_block_start",
				"index":         0,
				"content_block": map[string]any{"type": "text", "text": ""},
			})
			for _, c := range chunks {
				writeSSE(w, "content_block_delta", map[string]any{
					"type":  "content_block_delta",
					"index": 0,
					"delta": map[string]any{"type": "text_delta", "text": c},
				})
			}
			writeSSE(w, "content_block_stop", map[string]any{"type": "content_block_stop", "index": 0})
			writeSSE(w, "message_delta", map[string]any{
				"type":  "message_delta",
				"delta": map[string]any{"stop_reason": "end_turn", "stop_sequence": nil},
				"usage": map[string]any{"output_tokens": 4},
			})
			writeSSE(w, "message_stop", map[string]any{"type": "message_stop"})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicModel(t *testing.T) {
	srv := anthropicMock(t, []string{"Still water ", "runs deep."})
	m := NewAnthropicModel(config.AIConfig{AnthropicAPIKey: "sk-ant-test", BaseURL: srv.URL})

	assert.True(t, m.Available())
	require.NoError(t, m.Initialize(context.Background()))

	text, err := collect(t, m, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Still water runs deep.", text)
}

func TestAnthropicModelErrors(t *testing.T) {
	srv := anthropicMock(t, nil)

	assert.False(t, NewAnthropicModel(config.AIConfig{}).Available())

	m := NewAnthropicModel(config.AIConfig{AnthropicAPIKey: "sk-ant-wrong", BaseURL: srv.URL})
	assert.Error(t, m.Initialize(context.Background()))
	_, err := collect(t, m, "prompt")
	assert.Error(t, err)
}

func TestGeminiModelWithoutKey(t *testing.T) {
	m, err := NewGeminiModel(context.Background(), config.AIConfig{}, discardLogger())
	require.NoError(t, err)

	assert.False(t, m.Available())
	assert.ErrorIs(t, m.Initialize(context.Background()), ErrModelUnavailable)
	_, err = collect(t, m, "prompt")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.NoError(t, m.Close())
}

func TestNewModelCapability(t *testing.T) {
	ctx := context.Background()

	m, err := NewModelCapability(ctx, config.AIConfig{Provider: "OpenAI", OpenAIAPIKey: "sk-test"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, m)

	m, err = NewModelCapability(ctx, config.AIConfig{Provider: "anthropic"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicModel{}, m)
	assert.False(t, m.Available())

	m, err = NewModelCapability(ctx, config.AIConfig{}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &GeminiModel{}, m)

	_, err = NewModelCapability(ctx, config.AIConfig{Provider: "oracle"}, discardLogger())
	assert.Error(t, err)
}

func TestInterpreterWithOpenAI(t *testing.T) {
	long := strings.Repeat("The cards speak softly. ", 12)
	srv := openAIMock(t, []string{long[:100], long[100:]})
	m := NewOpenAIModel(config.AIConfig{OpenAIAPIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	o := NewInterpreter(m, testAIConfig(), discardLogger())

	in := o.Interpret(context.Background(), Draw{Kind: ReadingTarot, Question: "q", Traditional: "traditional"})
	require.NoError(t, in.Err)
	assert.Equal(t, SourceAI, in.Source)
	assert.Equal(t, strings.TrimSpace(long), in.Text)
}
