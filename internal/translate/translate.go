package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mgpai22/trimcap/internal/subtitle"
)

// single text item to translate
type TranslationItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// translated text item
type TranslationResult struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// interface for text translation
type Translator interface {
	Translate(
		ctx context.Context,
		items []TranslationItem,
	) ([]TranslationResult, error)
}

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ParseProvider accepts provider names case-insensitively.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported translation provider: %q", name)
	}
}

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
	BatchSize      int // items per API request (default 50)
	Concurrency    int // batches in flight (default 3)
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranslator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicTranslator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// Captions translates the text of every entry. Timing is carried over
// untouched and the result has the same length and order as entries.
func Captions(
	ctx context.Context,
	tr Translator,
	entries []subtitle.Entry,
) ([]subtitle.Entry, error) {
	if len(entries) == 0 {
		return []subtitle.Entry{}, nil
	}

	items := make([]TranslationItem, len(entries))
	for i, e := range entries {
		items[i] = TranslationItem{Index: i, Text: e.Text}
	}

	results, err := tr.Translate(ctx, items)
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]string, len(results))
	for _, r := range results {
		byIndex[r.Index] = r.Text
	}

	out := make([]subtitle.Entry, len(entries))
	for i, e := range entries {
		text, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("missing translation for caption %d", i)
		}
		e.Text = strings.TrimSpace(text)
		out[i] = e
	}

	return out, nil
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []TranslationItem) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s subtitle texts to %s.\n\n",
			opts.InputLanguage,
			opts.TargetLanguage,
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"Translate the following subtitle texts to %s.\n\n",
			opts.TargetLanguage,
		))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString(
		"1. Translate ONLY the text content, preserving the meaning.\n",
	)
	sb.WriteString(
		"2. Keep each caption short; it is shown on screen for a few seconds.\n",
	)
	sb.WriteString("3. Preserve line breaks in the same positions.\n")
	sb.WriteString("4. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("5. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString(
		"6. The 'index' values must match the input indices exactly.\n",
	)
	sb.WriteString("7. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(
			fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt),
		)
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}
