package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mgpai22/trimcap/internal/video"
	"github.com/spf13/cobra"
)

var burnCmd = &cobra.Command{
	Use:   "burn [video_file] [srt_file]",
	Short: "Burn an existing SRT file into a video",
	Long: `Render captions from an SRT file onto the video frames using the
configured caption style (burn.* settings). Audio is stream-copied.

Examples:
  trimcap burn clip.mp4 clip.srt
  trimcap burn clip.mp4 clip.srt -o out.mp4 --font-size 18 --background black@0.5`,
	Args: cobra.ExactArgs(2),
	RunE: runBurn,
}

func init() {
	rootCmd.AddCommand(burnCmd)
	addOutputFlag(burnCmd, "Output video path (default <video>_with_subs<ext>)")

	burnCmd.Flags().
		Int("font-size", 0, "Caption font size")
	burnCmd.Flags().
		String("font-color", "", "Caption text color (white, black, yellow)")
	burnCmd.Flags().
		String("background", "", "Caption box color with optional opacity (e.g., black@0.7)")
	burnCmd.Flags().
		Int("margin-bottom", 0, "Distance from the bottom edge")
	burnCmd.Flags().
		String("font-family", "", "Caption font")
}

func runBurn(cmd *cobra.Command, args []string) error {
	videoPath, srtPath := args[0], args[1]
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = replaceExt(videoPath, "_with_subs"+filepath.Ext(videoPath))
	}

	style := cfg.CaptionStyle()
	flags := cmd.Flags()
	if flags.Changed("font-size") {
		style.FontSize, _ = flags.GetInt("font-size")
	}
	if flags.Changed("font-color") {
		style.FontColor, _ = flags.GetString("font-color")
	}
	if flags.Changed("background") {
		style.BackgroundColor, _ = flags.GetString("background")
	}
	if flags.Changed("margin-bottom") {
		style.MarginBottom, _ = flags.GetInt("margin-bottom")
	}
	if flags.Changed("font-family") {
		style.FontFamily, _ = flags.GetString("font-family")
	}
	if _, err := video.ForceStyle(style); err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "trimcap-burn-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logger.Infow("Burning captions",
		"video", videoPath,
		"subtitles", srtPath,
		"output", outputPath,
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	processor := video.NewProcessor(tempDir, cfg.EncodeOptions())
	if err := processor.BurnCaptions(ctx, videoPath, srtPath, outputPath, style); err != nil {
		return fmt.Errorf("burn-in failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Captions burned successfully: %s\n", absOutput)
	return nil
}
