package core

import (
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	"gwi.com/divination/internal/config"
)

// OpenAIModel streams chat completions from OpenAI or any compatible
// endpoint set through AI_BASE_URL.
type OpenAIModel struct {
	client    openai.Client
	modelName string
	enabled   bool
}

func NewOpenAIModel(cfg config.AIConfig) *OpenAIModel {
	m := &OpenAIModel{modelName: cfg.Model, enabled: cfg.OpenAIAPIKey != ""}
	if m.modelName == "" {
		m.modelName = defaultOpenAIModelName
	}
	opts := []ooption.RequestOption{ooption.WithAPIKey(cfg.OpenAIAPIKey), ooption.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, ooption.WithBaseURL(cfg.BaseURL))
	}
	m.client = openai.NewClient(opts...)
	return m
}

func (m *OpenAIModel) Available() bool {
	return m.enabled
}

func (m *OpenAIModel) Initialize(ctx context.Context) error {
	if _, err := m.client.Models.Get(ctx, m.modelName); err != nil {
		return fmt.Errorf("openai model lookup failed: %w", err)
	}
	return nil
}

func (m *OpenAIModel) Generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := m.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(m.modelName),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(interpretSystemInstruction),
				openai.UserMessage(prompt),
			},
			MaxCompletionTokens: openai.Int(defaultMaxOutputTokens),
		})
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai stream failed: %w", err))
		}
	}
}
