package cli

import (
	"context"
	"fmt"

	"github.com/mgpai22/trimcap/internal/config"
	"github.com/mgpai22/trimcap/internal/logging"
	"github.com/mgpai22/trimcap/internal/pipeline"
	"github.com/mgpai22/trimcap/internal/transcribe"
	"github.com/mgpai22/trimcap/internal/translate"
	"github.com/mgpai22/trimcap/internal/video"
	"github.com/spf13/cobra"
)

// pipelineConfig maps the loaded settings onto orchestrator options.
func pipelineConfig(c *config.Config) pipeline.Config {
	return pipeline.Config{
		Keep:         c.KeepOptions(),
		MaxChars:     c.Captions.MaxChars,
		MaxDuration:  c.Captions.MaxDuration,
		Format:       c.CaptionFormat(),
		BurnCaptions: c.Burn.Enabled,
	}
}

func newTranscriber(ctx context.Context, c *config.Config) (transcribe.Transcriber, error) {
	provider, err := transcribe.ParseProvider(c.Transcribe.Provider)
	if err != nil {
		return nil, err
	}
	tr, err := transcribe.Factory(ctx, provider, c.Transcribe.APIKey, c.TranscribeOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}
	return tr, nil
}

// newTranslator returns nil when no target language is configured.
func newTranslator(ctx context.Context, c *config.Config) (translate.Translator, error) {
	if c.Translate.TargetLanguage == "" {
		return nil, nil
	}
	provider, err := translate.ParseProvider(c.Translate.Provider)
	if err != nil {
		return nil, err
	}
	opts := c.TranslateOptions()
	opts.InputLanguage = c.Transcribe.Language
	tr, err := translate.Factory(ctx, provider, c.Translate.APIKey, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}
	return tr, nil
}

func newMedia(c *config.Config, ws *pipeline.Workspace) *video.Toolkit {
	return video.NewToolkit(ws.TempDir(), c.EncodeOptions(), c.DetectOptions(), c.CaptionStyle())
}

func newOrchestrator(
	ctx context.Context,
	c *config.Config,
	pc pipeline.Config,
	ws *pipeline.Workspace,
	log *logging.Logger,
) (*pipeline.Orchestrator, error) {
	transcriber, err := newTranscriber(ctx, c)
	if err != nil {
		return nil, err
	}
	translator, err := newTranslator(ctx, c)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pc, pipeline.Deps{
		Media:       newMedia(c, ws),
		Transcriber: transcriber,
		Translator:  translator,
		Logger:      log,
	})
}

// provider and caption flags shared by the commands that run the pipeline
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().
		StringP("api-key", "k", "", "Transcription API key (or set OPENAI_API_KEY/GEMINI_API_KEY env var)")
	cmd.Flags().
		String("provider", "", "Transcription provider (openai, gemini)")
	cmd.Flags().
		String("model", "", "Transcription model (provider default when empty)")
	cmd.Flags().
		StringP("language", "l", "", "Spoken language code (e.g., en, es, fr)")
	cmd.Flags().
		String("transcript-language", "", "Output language for transcript ('native' or, for openai, 'english')")
	cmd.Flags().
		String("prompt", "", "Context passed to the transcription model (names, jargon)")
	cmd.Flags().
		String("translate-prompt", "", "Additional instructions for caption translation")
	cmd.Flags().
		StringP("format", "f", "", "Subtitle format written next to the SRT (srt, vtt, ass)")
	cmd.Flags().
		Int("max-chars", 0, "Maximum characters per caption")
	cmd.Flags().
		Float64("max-duration", 0, "Caption duration in seconds that triggers a split")
	cmd.Flags().
		StringP("target-language", "t", "", "Translate captions into this language")
	cmd.Flags().
		Bool("no-burn", false, "Skip burning captions into the video")
}

// applyPipelineFlags overrides config values with the flags the user set.
func applyPipelineFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		c.Transcribe.Provider, _ = flags.GetString("provider")
		c.Transcribe.APIKey = ""
	}
	if flags.Changed("api-key") {
		c.Transcribe.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("model") {
		c.Transcribe.Model, _ = flags.GetString("model")
	}
	if flags.Changed("language") {
		c.Transcribe.Language, _ = flags.GetString("language")
	}
	if flags.Changed("transcript-language") {
		c.Transcribe.TranscriptLanguage, _ = flags.GetString("transcript-language")
	}
	if flags.Changed("prompt") {
		c.Transcribe.Prompt, _ = flags.GetString("prompt")
	}
	if flags.Changed("translate-prompt") {
		c.Translate.Prompt, _ = flags.GetString("translate-prompt")
	}
	if flags.Changed("format") {
		c.Captions.Format, _ = flags.GetString("format")
	}
	if flags.Changed("max-chars") {
		c.Captions.MaxChars, _ = flags.GetInt("max-chars")
	}
	if flags.Changed("max-duration") {
		c.Captions.MaxDuration, _ = flags.GetFloat64("max-duration")
	}
	if flags.Changed("target-language") {
		c.Translate.TargetLanguage, _ = flags.GetString("target-language")
	}
	if noBurn, _ := flags.GetBool("no-burn"); noBurn {
		c.Burn.Enabled = false
	}

	c.ResolveAPIKeys()
	return c.Validate()
}
