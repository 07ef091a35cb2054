package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"gwi.com/divination/internal/config"
)

const (
	defaultGeminiModelName    = "gemini-1.5-flash-latest"
	defaultOpenAIModelName    = "gpt-4o-mini"
	defaultAnthropicModelName = "claude-3-5-haiku-latest"
	defaultMaxOutputTokens    = 1024

	interpretSystemInstruction = "You are an experienced diviner. Interpret the reading you are given in flowing prose. " +
		"Stay close to the meanings provided, address the question directly and end with a complete sentence. " +
		"Do not repeat the prompt."
)

// NewModelCapability builds the adapter for the configured provider. A
// missing API key yields a capability that reports itself unavailable.
func NewModelCapability(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (ModelCapability, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIModel(cfg), nil
	case "anthropic":
		return NewAnthropicModel(cfg), nil
	case "gemini", "":
		return NewGeminiModel(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// GeminiModel streams completions from the Gemini API.
type GeminiModel struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiModel(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*GeminiModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &GeminiModel{modelName: cfg.Model, logger: logger}
	if m.modelName == "" {
		m.modelName = defaultGeminiModelName
	}
	if cfg.GeminiAPIKey == "" {
		return m, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.GeminiAPIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	m.client = client
	return m, nil
}

func (m *GeminiModel) Available() bool {
	return m.client != nil
}

// Initialize checks that the configured model exists.
func (m *GeminiModel) Initialize(ctx context.Context) error {
	if m.client == nil {
		return ErrModelUnavailable
	}
	if _, err := m.client.GenerativeModel(m.modelName).Info(ctx); err != nil {
		return fmt.Errorf("gemini model lookup failed: %w", err)
	}
	return nil
}

func (m *GeminiModel) Generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if m.client == nil {
			yield("", ErrModelUnavailable)
			return
		}
		model := m.client.GenerativeModel(m.modelName)
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(interpretSystemInstruction)},
		}
		model.SetMaxOutputTokens(defaultMaxOutputTokens)

		it := model.GenerateContentStream(ctx, genai.Text(prompt))
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("gemini stream failed: %w", err))
				return
			}
			if text := geminiText(resp); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func (m *GeminiModel) Close() error {
	if m.client == nil {
		return nil
	}
	if err := m.client.Close(); err != nil {
		return fmt.Errorf("failed to close GenAI client: %w", err)
	}
	m.logger.Debug("GenAI client closed")
	return nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
