package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Translator using OpenAI Chat Completions
type OpenAITranslator struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAITranslator(
	ctx context.Context,
	apiKey string,
	opts Options,
	reqOpts ...option.RequestOption,
) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)...)

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAITranslator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (t *OpenAITranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return translateInBatches(ctx, items, t.options.BatchSize, t.options.Concurrency, t.translateBatch)
}

func (t *OpenAITranslator) translateBatch(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	completion, err := t.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(BuildPrompt(t.options, items)),
			},
			Model: t.model,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	return parseOpenAIResponse(completion, len(items))
}

func parseOpenAIResponse(
	completion *openai.ChatCompletion,
	expectedCount int,
) ([]TranslationResult, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := completion.Choices[0].Message.Content
	if responseText == "" {
		return nil, fmt.Errorf("no text in OpenAI response")
	}

	return decodeResults(responseText, expectedCount)
}
