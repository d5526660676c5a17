package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/trimcap/internal/subtitle"
	"github.com/mgpai22/trimcap/internal/translate"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate [srt_file]",
	Short: "Translate SRT captions to another language using AI",
	Long: `Translate an existing SRT file to another language using AI.
Caption timing is left untouched; only the text changes. The output
format follows the output extension (srt, vtt, ass).

The --overlay flag creates bilingual subtitles with the translated text
first, followed by the original text on the next line.

Examples:
  trimcap translate clip.srt --target-language japanese
  trimcap translate clip.srt -t es --overlay
  trimcap translate clip.srt -l english -t spanish --provider anthropic -o clip.es.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	addOutputFlag(translateCmd, "Output subtitle path; the extension picks the format")
	translateCmd.Flags().
		StringP("language", "l", "", "Language of the input captions")
	translateCmd.Flags().
		String("prompt", "", "Additional instructions for the translation model")

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		Bool("overlay", false, "Overlay translated text with original (bilingual subtitles)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY env var)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (provider-specific, uses sensible defaults)")
	translateCmd.Flags().
		String("provider", "", "Translation provider (gemini, openai, anthropic)")
	translateCmd.Flags().
		Int("concurrency", 0, "Number of batches translated in parallel")
	translateCmd.Flags().
		Int("batch-size", 0, "Number of subtitle entries per API request")

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	flags := cmd.Flags()
	overlay, _ := flags.GetBool("overlay")
	outputPath, _ := flags.GetString("output")
	inputLang, _ := flags.GetString("language")

	tc := cfg.Translate
	tc.TargetLanguage, _ = flags.GetString("target-language")
	if flags.Changed("provider") {
		tc.Provider, _ = flags.GetString("provider")
		tc.APIKey = ""
	}
	if flags.Changed("api-key") {
		tc.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("model") {
		tc.Model, _ = flags.GetString("model")
	}
	if flags.Changed("prompt") {
		tc.Prompt, _ = flags.GetString("prompt")
	}
	if flags.Changed("concurrency") {
		tc.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("batch-size") {
		tc.BatchSize, _ = flags.GetInt("batch-size")
	}
	cfg.Translate = tc
	cfg.ResolveAPIKeys()
	tc = cfg.Translate

	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}
	if ext := strings.ToLower(filepath.Ext(subtitlePath)); ext != ".srt" {
		return fmt.Errorf("unsupported subtitle format %q: use .srt", ext)
	}
	if tc.TargetLanguage == "" {
		return fmt.Errorf("target language is required")
	}
	if inputLang != "" &&
		strings.EqualFold(strings.TrimSpace(inputLang), strings.TrimSpace(tc.TargetLanguage)) {
		return fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			inputLang,
			tc.TargetLanguage,
		)
	}
	if tc.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", tc.Concurrency)
	}
	if tc.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", tc.BatchSize)
	}

	provider, err := translate.ParseProvider(tc.Provider)
	if err != nil {
		return err
	}
	if tc.APIKey == "" {
		return fmt.Errorf("API key is required: use --api-key flag or set %s_API_KEY environment variable",
			strings.ToUpper(string(provider)))
	}

	if outputPath == "" {
		suffix := "." + tc.TargetLanguage
		if overlay {
			suffix += ".overlay"
		}
		outputPath = replaceExt(subtitlePath, suffix+".srt")
	}

	entries, err := subtitle.ParseSRTFile(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	logger.Infow("Starting subtitle translation",
		"input", subtitlePath,
		"output", outputPath,
		"entries", len(entries),
		"provider", provider,
		"target_language", tc.TargetLanguage,
		"overlay", overlay,
	)

	opts := cfg.TranslateOptions()
	opts.InputLanguage = inputLang
	translator, err := translate.Factory(ctx, provider, tc.APIKey, opts)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	translated, err := translate.Captions(ctx, translator, entries)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	if overlay {
		translated = overlayEntries(translated, entries)
	}

	if err := writeSubtitles(translated, outputPath, tc.TargetLanguage); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles translated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", len(translated))
	fmt.Printf("  Target language: %s\n", tc.TargetLanguage)
	if overlay {
		fmt.Printf("  Mode: bilingual overlay\n")
	}

	return nil
}

// translated + newline + original
func overlayEntries(translated, original []subtitle.Entry) []subtitle.Entry {
	out := make([]subtitle.Entry, len(translated))
	for i, e := range translated {
		if i < len(original) {
			e.Text = e.Text + "\n" + original[i].Text
		}
		out[i] = e
	}
	return out
}
