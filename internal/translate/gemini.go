package translate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// implements Translator using Google Gemini
type GeminiTranslator struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiTranslator(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiTranslator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (t *GeminiTranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return translateInBatches(ctx, items, t.options.BatchSize, t.options.Concurrency, t.translateBatch)
}

func (t *GeminiTranslator) translateBatch(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(BuildPrompt(t.options, items)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	return parseGeminiResponse(result, len(items))
}

func parseGeminiResponse(
	result *genai.GenerateContentResponse,
	expectedCount int,
) ([]TranslationResult, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
		if responseText.Len() > 0 {
			break
		}
	}

	if responseText.Len() == 0 {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	return decodeResults(responseText.String(), expectedCount)
}
