package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/pipeline"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process [media_file]",
	Short: "Trim silence from a clip, then caption and burn in subtitles",
	Long: `Run the full pipeline on a local audio or video file.

Silent stretches are detected and cut out, the shortened media is
transcribed, captions are chunked to stay readable and written as SRT,
then burned into the video. Audio inputs get trimmed media and captions
only.

Artifacts land in the storage root (storage.root, default ./data). With
--output the final media is also copied to that path.

Examples:
  trimcap process clip.mp4
  trimcap process clip.mov --provider gemini --format vtt
  trimcap process talk.mp4 --target-language spanish --no-burn
  trimcap process clip.mp4 -o clip_captioned.mp4 --keep-audio`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	addPipelineFlags(processCmd)
	addOutputFlag(processCmd, "Copy the final media to this path")
	processCmd.Flags().
		Bool("keep-audio", false, "Keep the intermediate audio files")
}

func runProcess(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", mediaPath)
	}
	if !audio.IsMediaFile(mediaPath) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	if err := applyPipelineFlags(cmd, cfg); err != nil {
		return err
	}
	keepAudio, _ := cmd.Flags().GetBool("keep-audio")
	outputPath, _ := cmd.Flags().GetString("output")

	ws, err := pipeline.NewWorkspace(cfg.Storage.Root)
	if err != nil {
		return err
	}

	pc := pipelineConfig(cfg)
	pc.KeepAudio = keepAudio
	orch, err := newOrchestrator(ctx, cfg, pc, ws, logger)
	if err != nil {
		return err
	}

	req := ws.NewRequest(filepath.Ext(mediaPath))
	absInput, err := filepath.Abs(mediaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}
	req.Source = absInput

	logger.Infow("Starting processing",
		"input", absInput,
		"request_id", req.ID,
		"provider", cfg.Transcribe.Provider,
		"format", cfg.Captions.Format,
		"burn", cfg.Burn.Enabled,
	)

	result, err := orch.Run(ctx, req)
	if err != nil {
		if stage, ok := pipeline.FailedStage(err); ok {
			return fmt.Errorf("processing failed at %s: %w", stage, err)
		}
		return fmt.Errorf("processing failed: %w", err)
	}

	if outputPath != "" {
		if err := copyOutput(result.ProcessedPath, outputPath); err != nil {
			return err
		}
		result.ProcessedPath, _ = filepath.Abs(outputPath)
	}

	fmt.Println(renderSummary(result))
	if result.Warning != "" {
		fmt.Printf("Warning: %s\n", result.Warning)
	}
	return nil
}

func renderSummary(result *pipeline.Result) string {
	rows := [][]string{
		{"Message", result.Message},
		{"Request", result.ID},
		{"Source duration", seconds(result.Duration)},
		{"Kept", fmt.Sprintf("%s in %d segment(s)", seconds(result.KeptDuration), len(result.KeepIntervals))},
		{"Captions", fmt.Sprintf("%d", len(result.Captions))},
		{"Burned in", fmt.Sprintf("%t", result.CaptionsBurned)},
		{"Media", result.ProcessedPath},
		{"SRT", result.SRTPath},
	}
	if result.SubtitlePath != "" && result.SubtitlePath != result.SRTPath {
		rows = append(rows, []string{"Subtitles", result.SubtitlePath})
	}
	if result.PassThrough {
		rows = append(rows, []string{"Note", "no speech kept, source passed through"})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func copyOutput(src, dst string) error {
	if strings.TrimSpace(dst) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read processed media: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
