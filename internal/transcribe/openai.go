package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/subtitle"
)

// implements Transcriber interface using OpenAI Audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
	probe   func(ctx context.Context, path string) (float64, error)
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
	reqOpts ...option.RequestOption,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)...)

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:  client,
		model:   model,
		options: opts,
		probe:   audio.GetDuration,
	}, nil
}

// transcribes single audio file
func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	duration, _ := t.probe(ctx, audioPath)

	if t.shouldUseTranslation() {
		return t.transcribeWithTranslation(ctx, file, duration)
	}

	return t.transcribeWithTimestamps(ctx, file, duration)
}

func (t *OpenAITranscriber) shouldUseTranslation() bool {
	lang := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage))
	return lang == "english" || lang == "en"
}

func (t *OpenAITranscriber) transcribeWithTranslation(
	ctx context.Context,
	file *os.File,
	duration float64,
) (*Result, error) {
	params := openai.AudioTranslationNewParams{
		File:           file,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
	}

	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Translations.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	result := t.buildResult(resp.RawJSON(), resp.Text, duration)
	result.Language = "en"
	return result, nil
}

func (t *OpenAITranscriber) transcribeWithTimestamps(
	ctx context.Context,
	file *os.File,
	duration float64,
) (*Result, error) {
	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}

	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}

	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	return t.buildResult(resp.RawJSON(), resp.Text, duration), nil
}

// falls back to one whole-file segment when the verbose body is unusable
func (t *OpenAITranscriber) buildResult(rawJSON, text string, duration float64) *Result {
	result := &Result{
		Text:     strings.TrimSpace(text),
		Language: t.options.Language,
		Duration: duration,
	}

	segments, err := t.parseVerboseJSONResponse(rawJSON, duration)
	if err != nil {
		if result.Text != "" {
			segments = []subtitle.Segment{{Start: 0, End: duration, Text: result.Text}}
		}
	}
	result.Segments = segments

	var verbose whisperVerboseResponse
	if json.Unmarshal([]byte(rawJSON), &verbose) == nil {
		if result.Text == "" {
			result.Text = strings.TrimSpace(verbose.Text)
		}
		if result.Language == "" {
			result.Language = verbose.Language
		}
		if result.Duration <= 0 && verbose.Duration > 0 {
			result.Duration = verbose.Duration
		}
	}
	if result.Text == "" {
		result.Text = joinText(segments)
	}

	return result
}

func (t *OpenAITranscriber) parseVerboseJSONResponse(
	rawJSON string,
	fallbackDuration float64,
) ([]subtitle.Segment, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(verboseResp.Segments) == 0 {
		if verboseResp.Text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		dur := fallbackDuration
		if verboseResp.Duration > 0 {
			dur = verboseResp.Duration
		}
		return []subtitle.Segment{{
			Start: 0,
			End:   dur,
			Text:  strings.TrimSpace(verboseResp.Text),
		}}, nil
	}

	segments := make([]subtitle.Segment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, subtitle.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}

	return segments, nil
}
