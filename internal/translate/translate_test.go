package translate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/mgpai22/trimcap/internal/subtitle"
)

func TestFactoryReturnsGeminiTranslator(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "Japanese"}
	translator, err := Factory(ctx, ProviderGemini, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderGemini) returned error: %v", err)
	}
	if _, ok := translator.(*GeminiTranslator); !ok {
		t.Errorf("expected *GeminiTranslator, got %T", translator)
	}
}

func TestFactoryReturnsOpenAITranslator(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "Spanish"}
	translator, err := Factory(ctx, ProviderOpenAI, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderOpenAI) returned error: %v", err)
	}
	if _, ok := translator.(*OpenAITranslator); !ok {
		t.Errorf("expected *OpenAITranslator, got %T", translator)
	}
}

func TestFactoryReturnsAnthropicTranslator(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "French"}
	translator, err := Factory(ctx, ProviderAnthropic, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderAnthropic) returned error: %v", err)
	}
	if _, ok := translator.(*AnthropicTranslator); !ok {
		t.Errorf("expected *AnthropicTranslator, got %T", translator)
	}
}

func TestFactoryRequiresTargetLanguage(t *testing.T) {
	ctx := context.Background()
	opts := Options{} // no TargetLanguage
	_, err := Factory(ctx, ProviderGemini, "fake-key", opts)
	if err == nil {
		t.Error("expected error for missing target language")
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "French"}
	_, err := Factory(ctx, Provider("unknown"), "fake-key", opts)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "French"}
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		if _, err := Factory(ctx, p, "", opts); err == nil {
			t.Errorf("%s: expected error for empty API key", p)
		}
	}
}

func TestParseProvider(t *testing.T) {
	for in, want := range map[string]Provider{
		"gemini":     ProviderGemini,
		"OpenAI":     ProviderOpenAI,
		" anthropic": ProviderAnthropic,
	} {
		got, err := ParseProvider(in)
		if err != nil || got != want {
			t.Errorf("ParseProvider(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseProvider("deepl"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

// fakeTranslator upper-cases texts, or fails when err is set
type fakeTranslator struct {
	err     error
	dropIdx int
}

func (f *fakeTranslator) Translate(_ context.Context, items []TranslationItem) ([]TranslationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]TranslationResult, 0, len(items))
	for _, it := range items {
		if it.Index == f.dropIdx {
			continue
		}
		out = append(out, TranslationResult{Index: it.Index, Text: " " + strings.ToUpper(it.Text) + " "})
	}
	return out, nil
}

func TestCaptionsKeepsTiming(t *testing.T) {
	entries := []subtitle.Entry{
		{Start: 0, End: 1.5, Text: "hello"},
		{Start: 1.5, End: 3.25, Text: "world"},
	}

	got, err := Captions(context.Background(), &fakeTranslator{dropIdx: -1}, entries)
	if err != nil {
		t.Fatalf("Captions: %v", err)
	}

	want := []subtitle.Entry{
		{Start: 0, End: 1.5, Text: "HELLO"},
		{Start: 1.5, End: 3.25, Text: "WORLD"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if entries[0].Text != "hello" {
		t.Error("input entries must not be modified")
	}
}

func TestCaptionsEmpty(t *testing.T) {
	got, err := Captions(context.Background(), &fakeTranslator{err: fmt.Errorf("should not be called")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}

func TestCaptionsMissingIndex(t *testing.T) {
	entries := []subtitle.Entry{{Text: "a"}, {Text: "b"}}
	if _, err := Captions(context.Background(), &fakeTranslator{dropIdx: 1}, entries); err == nil {
		t.Error("expected error for missing translation")
	}
}

func TestCaptionsPropagatesError(t *testing.T) {
	entries := []subtitle.Entry{{Text: "a"}}
	if _, err := Captions(context.Background(), &fakeTranslator{err: fmt.Errorf("boom")}, entries); err == nil {
		t.Error("expected error")
	}
}

func TestBuildPrompt(t *testing.T) {
	opts := Options{
		InputLanguage:  "English",
		TargetLanguage: "Japanese",
	}

	items := []TranslationItem{
		{Index: 0, Text: "Hello world"},
		{Index: 1, Text: "Goodbye"},
	}

	prompt := BuildPrompt(opts, items)

	if !strings.Contains(prompt, "English subtitle texts") {
		t.Error("prompt should contain input language")
	}
	if !strings.Contains(prompt, "to Japanese") {
		t.Error("prompt should contain target language")
	}
	if !strings.Contains(prompt, "Hello world") {
		t.Error("prompt should contain input text")
	}
	if !strings.Contains(prompt, `"index": 0`) {
		t.Error("prompt should contain index")
	}
}

func TestBuildPromptWithoutInputLanguage(t *testing.T) {
	opts := Options{
		TargetLanguage: "Spanish",
	}

	items := []TranslationItem{
		{Index: 0, Text: "Hello"},
	}

	prompt := BuildPrompt(opts, items)

	if strings.Contains(prompt, "English") || strings.Contains(prompt, "from ") {
		t.Error("prompt should not contain input language when not specified")
	}
	if !strings.Contains(prompt, "to Spanish") {
		t.Error("prompt should contain target language")
	}
}

func TestBuildPromptAdditionalInstructions(t *testing.T) {
	prompt := BuildPrompt(Options{TargetLanguage: "German", Prompt: "Use informal speech."}, nil)
	if !strings.Contains(prompt, "Additional instructions: Use informal speech.") {
		t.Error("prompt should include additional instructions")
	}
}

// Integration test: only runs if OPENAI_API_KEY is set
func TestOpenAITranslatorIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set; skipping integration test")
	}

	ctx := context.Background()
	opts := Options{TargetLanguage: "Spanish"}
	translator, err := NewOpenAITranslator(ctx, apiKey, opts)
	if err != nil {
		t.Fatalf("NewOpenAITranslator error: %v", err)
	}

	items := []TranslationItem{
		{Index: 0, Text: "Hello"},
		{Index: 1, Text: "Goodbye"},
	}

	results, err := translator.Translate(ctx, items)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Text == "" {
			t.Errorf("result index %d has empty text", r.Index)
		}
	}
}
