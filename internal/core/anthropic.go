package core

import (
	"context"
	"fmt"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"gwi.com/divination/internal/config"
)

// AnthropicModel streams message completions from the Anthropic API.
type AnthropicModel struct {
	client    anthropic.Client
	modelName string
	enabled   bool
}

func NewAnthropicModel(cfg config.AIConfig) *AnthropicModel {
	m := &AnthropicModel{modelName: cfg.Model, enabled: cfg.AnthropicAPIKey != ""}
	if m.modelName == "" {
		m.modelName = defaultAnthropicModelName
	}
	opts := []aoption.RequestOption{aoption.WithAPIKey(cfg.AnthropicAPIKey), aoption.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, aoption.WithBaseURL(cfg.BaseURL))
	}
	m.client = anthropic.NewClient(opts...)
	return m
}

func (m *AnthropicModel) Available() bool {
	return m.enabled
}

func (m *AnthropicModel) Initialize(ctx context.Context) error {
	if _, err := m.client.Models.Get(ctx, m.modelName, anthropic.ModelGetParams{}); err != nil {
		return fmt.Errorf("anthropic model lookup failed: %w", err)
	}
	return nil
}

func (m *AnthropicModel) Generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := m.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(m.modelName),
			MaxTokens: defaultMaxOutputTokens,
			System:    []anthropic.TextBlockParam{{Text: interpretSystemInstruction}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			variant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := variant.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			if !yield(delta.Text, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("anthropic stream failed: %w", err))
		}
	}
}
