package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mgpai22/trimcap/internal/subtitle"
	"github.com/spf13/cobra"
)

var rechunkCmd = &cobra.Command{
	Use:   "rechunk [srt_file]",
	Short: "Split long captions in an SRT file into readable chunks",
	Long: `Parse an SRT file and re-split each caption so it stays under the
character and duration limits. A split caption's time span is shared
evenly between the pieces. The output format follows the output extension.

Examples:
  trimcap rechunk talk.srt
  trimcap rechunk talk.srt --max-chars 32 -o talk.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runRechunk,
}

func init() {
	rootCmd.AddCommand(rechunkCmd)
	addOutputFlag(rechunkCmd, "Output subtitle path; the extension picks the format")

	rechunkCmd.Flags().
		Int("max-chars", 0, "Maximum characters per caption")
	rechunkCmd.Flags().
		Float64("max-duration", 0, "Caption duration in seconds that triggers a split")
}

func runRechunk(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = replaceExt(inputPath, ".chunked.srt")
	}

	maxChars := cfg.Captions.MaxChars
	if cmd.Flags().Changed("max-chars") {
		maxChars, _ = cmd.Flags().GetInt("max-chars")
	}
	maxDuration := cfg.Captions.MaxDuration
	if cmd.Flags().Changed("max-duration") {
		maxDuration, _ = cmd.Flags().GetFloat64("max-duration")
	}
	if maxChars <= 0 || maxDuration <= 0 {
		return fmt.Errorf("max-chars and max-duration must be positive")
	}

	entries, err := subtitle.ParseSRTFile(inputPath)
	if err != nil {
		return err
	}

	chunked := subtitle.SplitLongSegments(entriesToSegments(entries), maxChars, maxDuration)

	if err := writeSubtitles(chunked, outputPath, ""); err != nil {
		return err
	}

	logger.Infow("Rechunked captions",
		"input_entries", len(entries),
		"output_entries", len(chunked),
	)

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Captions rechunked: %s (%d -> %d entries)\n", absOutput, len(entries), len(chunked))
	return nil
}

func entriesToSegments(entries []subtitle.Entry) []subtitle.Segment {
	segments := make([]subtitle.Segment, len(entries))
	for i, e := range entries {
		segments[i] = subtitle.Segment{Start: e.Start, End: e.End, Text: e.Text}
	}
	return segments
}

// writeSubtitles picks the writer from the output extension.
func writeSubtitles(entries []subtitle.Entry, path, language string) error {
	format := subtitle.GetFormatFromExtension(path)
	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return fmt.Errorf("failed to create subtitle writer: %w", err)
	}
	sub := &subtitle.Subtitle{
		Entries:  entries,
		Language: language,
		Format:   string(format),
	}
	if err := writer.Write(sub, path); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	return nil
}
