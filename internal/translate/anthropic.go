package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// implements Translator using Anthropic Claude
type AnthropicTranslator struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicTranslator(
	ctx context.Context,
	apiKey string,
	opts Options,
	reqOpts ...option.RequestOption,
) (*AnthropicTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)...)

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicTranslator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (t *AnthropicTranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return translateInBatches(ctx, items, t.options.BatchSize, t.options.Concurrency, t.translateBatch)
}

func (t *AnthropicTranslator) translateBatch(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	message, err := t.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     t.model,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(BuildPrompt(t.options, items)),
				),
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	return parseAnthropicResponse(message, len(items))
}

func parseAnthropicResponse(
	message *anthropic.Message,
	expectedCount int,
) ([]TranslationResult, error) {
	if message == nil || len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from Anthropic")
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText.WriteString(block.Text)
		}
	}

	if responseText.Len() == 0 {
		return nil, fmt.Errorf("no text in Anthropic response")
	}

	return decodeResults(responseText.String(), expectedCount)
}
