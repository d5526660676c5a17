package video

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/segment"
	"github.com/mgpai22/trimcap/internal/silence"
)

// Toolkit bundles the ffmpeg collaborators the pipeline needs behind one
// value.
type Toolkit struct {
	processor *Processor
	detect    audio.DetectOptions
	style     CaptionStyle
}

func NewToolkit(
	tempDir string,
	encode EncodeOptions,
	detect audio.DetectOptions,
	style CaptionStyle,
) *Toolkit {
	return &Toolkit{
		processor: NewProcessor(tempDir, encode),
		detect:    detect,
		style:     style,
	}
}

// ExtractAudio picks the encoding from the destination extension: mp3 for
// transcription uploads, PCM WAV otherwise.
func (t *Toolkit) ExtractAudio(ctx context.Context, mediaPath, audioPath string) error {
	opts := DefaultExtractAudioOptions()
	if strings.EqualFold(filepath.Ext(audioPath), ".mp3") {
		opts = TranscriptionAudioOptions()
	}
	return t.processor.ExtractAudio(ctx, mediaPath, audioPath, opts)
}

func (t *Toolkit) Duration(ctx context.Context, mediaPath string) (float64, error) {
	return audio.GetDuration(ctx, mediaPath)
}

func (t *Toolkit) DetectSilences(
	ctx context.Context,
	audioPath string,
	duration float64,
) ([]silence.Interval, error) {
	return audio.DetectSilences(ctx, audioPath, t.detect, duration)
}

func (t *Toolkit) CutAndConcat(ctx context.Context, plan segment.Plan, outputPath string) error {
	return t.processor.CutAndConcat(ctx, plan, outputPath)
}

func (t *Toolkit) BurnCaptions(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	return t.processor.BurnCaptions(ctx, videoPath, subtitlePath, outputPath, t.style)
}
