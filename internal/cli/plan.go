package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/segment"
	"github.com/mgpai22/trimcap/internal/silence"
	"github.com/mgpai22/trimcap/internal/video"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [media_file]",
	Short: "Show which parts of a clip would be kept, without cutting",
	Long: `Detect silences in a media file and print the keep intervals the
trim step would use. Nothing is re-encoded.

Examples:
  trimcap plan clip.mp4
  trimcap plan clip.mp4 --noise -40dB --min-silence 0.8
  trimcap plan clip.mp4 --pre-pad 0.2 --post-pad 0.3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().
		String("noise", "", "silencedetect noise threshold (e.g., -32dB)")
	planCmd.Flags().
		Float64("min-silence", 0, "Minimum silence length in seconds")
	planCmd.Flags().
		Float64("pre-pad", 0, "Seconds kept before each speech interval")
	planCmd.Flags().
		Float64("post-pad", 0, "Seconds kept after each speech interval")
	planCmd.Flags().
		Float64("min-segment", 0, "Shortest interval worth keeping, in seconds")
	planCmd.Flags().
		Float64("gap-merge", 0, "Merge intervals separated by less than this many seconds")
	planCmd.Flags().
		Bool("json", false, "Print the cut plan as JSON")
}

func runPlan(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", mediaPath)
	}
	if err := applyPlanFlags(cmd); err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	tempDir, err := os.MkdirTemp("", "trimcap-plan-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	audioPath := filepath.Join(tempDir, "audio.wav")
	processor := video.NewProcessor(tempDir, cfg.EncodeOptions())
	if err := processor.ExtractAudio(ctx, mediaPath, audioPath, video.DefaultExtractAudioOptions()); err != nil {
		return fmt.Errorf("failed to extract audio: %w", err)
	}

	duration, err := audio.GetDuration(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("failed to get duration: %w", err)
	}

	silences, err := audio.DetectSilences(ctx, audioPath, cfg.DetectOptions(), duration)
	if err != nil {
		return err
	}
	logger.Infow("Silences detected",
		"count", len(silences),
		"filter", cfg.DetectOptions().Filter(),
	)

	keep := silence.ComputeKeepIntervals(silences, duration, cfg.KeepOptions())
	plan, err := segment.BuildCutPlan(keep, mediaPath, duration)
	if err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if plan.Empty() {
		fmt.Printf("No speech found in %s; the source would pass through unchanged.\n", seconds(duration))
		return nil
	}

	fmt.Println(renderIntervals(keep))
	fmt.Printf("Keeping %s of %s (%d cut(s), %d silence(s) detected)\n",
		seconds(plan.KeptDuration()),
		seconds(duration),
		len(plan.Cuts),
		len(silences),
	)
	return nil
}

func applyPlanFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("noise") {
		cfg.Silence.Noise, _ = flags.GetString("noise")
	}
	if flags.Changed("min-silence") {
		cfg.Silence.MinDuration, _ = flags.GetFloat64("min-silence")
	}
	if flags.Changed("pre-pad") {
		cfg.Keep.PrePad, _ = flags.GetFloat64("pre-pad")
	}
	if flags.Changed("post-pad") {
		cfg.Keep.PostPad, _ = flags.GetFloat64("post-pad")
	}
	if flags.Changed("min-segment") {
		cfg.Keep.MinSegment, _ = flags.GetFloat64("min-segment")
	}
	if flags.Changed("gap-merge") {
		cfg.Keep.GapMerge, _ = flags.GetFloat64("gap-merge")
	}
	return cfg.Validate()
}
