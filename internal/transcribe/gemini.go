package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/subtitle"
)

// implements Transcriber interface using Google Gemini
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
	probe   func(ctx context.Context, path string) (float64, error)
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
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

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
		probe:   audio.GetDuration,
	}, nil
}

// transcribes single audio file
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	uploadedFile, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}

	defer func() {
		_, _ = t.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(t.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, err := parseTranscriptionResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	duration, _ := t.probe(ctx, audioPath)

	return &Result{
		Text:     joinText(segments),
		Segments: segments,
		Language: t.options.Language,
		Duration: duration,
	}, nil
}

// creates the prompt for transcription
func (t *GeminiTranscriber) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if t.options.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", t.options.Language))
	}

	if t.options.TranscriptLanguage != "" && t.options.TranscriptLanguage != "native" {
		sb.WriteString(fmt.Sprintf("Output the transcript in %s. ", t.options.TranscriptLanguage))
	}

	if t.options.Prompt != "" {
		sb.WriteString(t.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into segments
func parseTranscriptionResponse(result *genai.GenerateContentResponse) ([]subtitle.Segment, error) {
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
	}

	if responseText.Len() == 0 {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	transcriptSegments, err := extractTranscriptSegments(cleanJSONResponse(responseText.String()))
	if err != nil {
		return nil, err
	}

	segments := make([]subtitle.Segment, 0, len(transcriptSegments))
	for _, ts := range transcriptSegments {
		segments = append(segments, subtitle.Segment{
			Start: ts.Start,
			End:   ts.End,
			Text:  strings.TrimSpace(ts.Text),
		})
	}

	return segments, nil
}

// extractTranscriptSegments finds the first JSON value in text that holds
// transcript segments, either as a bare array or under some object key.
// Models like to wrap the array in prose or in an envelope object.
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}

		if segments, ok := segmentsFromJSON(raw); ok {
			return segments, nil
		}
		// skip past the value we just rejected
		i += int(dec.InputOffset()) - 1
	}

	return nil, fmt.Errorf("no transcript segments found in response: %s", truncateString(text, 200))
}

var preferredKeys = []string{"segments", "transcript", "data"}

func segmentsFromJSON(raw json.RawMessage) ([]transcriptSegment, bool) {
	var segments []transcriptSegment
	if err := json.Unmarshal(raw, &segments); err == nil {
		return segments, validateSegments(segments)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		ra, rb := keyRank(keys[a]), keyRank(keys[b])
		if ra != rb {
			return ra < rb
		}
		return keys[a] < keys[b]
	})

	for _, k := range keys {
		if segments, ok := segmentsFromJSON(obj[k]); ok {
			return segments, true
		}
	}
	return nil, false
}

func keyRank(key string) int {
	for i, k := range preferredKeys {
		if strings.EqualFold(k, key) {
			return i
		}
	}
	return len(preferredKeys)
}

// reports whether at least one segment carries text or a timestamp
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	// remove ```json and ``` markers
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
