package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgpai22/trimcap/internal/subtitle"
)

// transcription result
type Result struct {
	Text     string
	Segments []subtitle.Segment
	Language string
	Duration float64 // seconds, 0 when unknown
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ParseProvider accepts provider names case-insensitively.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported transcription provider: %q", name)
	}
}

// transcription options
type Options struct {
	Language           string // Source language of audio
	TranscriptLanguage string // Output language for transcript (default: "native")
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// joins segment texts into one transcript
func joinText(segments []subtitle.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
