package audio

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/trimcap/internal/ffmpeg"
	"github.com/mgpai22/trimcap/internal/silence"
)

// DetectOptions configure ffmpeg's silencedetect filter.
type DetectOptions struct {
	Noise       string  // noise floor, e.g. "-32dB"
	MinDuration float64 // minimum silence length in seconds
}

func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		Noise:       "-32dB",
		MinDuration: 0.6,
	}
}

// Filter renders the silencedetect filter expression.
func (o DetectOptions) Filter() string {
	return fmt.Sprintf("silencedetect=noise=%s:d=%s",
		o.Noise, strconv.FormatFloat(o.MinDuration, 'f', -1, 64))
}

var (
	silenceStartRegex = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRegex   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// DetectSilences runs silencedetect over audioPath and returns the silences
// it reports. duration closes a silence that runs to the end of the file; pass
// zero when unknown to drop it instead.
func DetectSilences(
	ctx context.Context,
	audioPath string,
	opts DetectOptions,
	duration float64,
) ([]silence.Interval, error) {
	var stderr bytes.Buffer

	stream := ffmpeg.Input(audioPath).
		Output("-", ffmpeg.KwArgs{
			"af": opts.Filter(),
			"f":  "null",
		}).
		WithErrorOutput(&stderr)

	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return nil, fmt.Errorf("silencedetect failed: %w", err)
	}

	return ParseSilenceDetect(stderr.String(), duration), nil
}

// ParseSilenceDetect pairs silence_start/silence_end lines from ffmpeg's log.
func ParseSilenceDetect(output string, duration float64) []silence.Interval {
	var silences []silence.Interval
	var start float64
	open := false

	for _, line := range bytes.Split([]byte(output), []byte("\n")) {
		if m := silenceStartRegex.FindSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
				start = math.Max(0, v)
				open = true
			}
		}
		if m := silenceEndRegex.FindSubmatch(line); m != nil && open {
			if end, err := strconv.ParseFloat(string(m[1]), 64); err == nil && end > start {
				silences = append(silences, silence.Interval{Start: start, End: end})
			}
			open = false
		}
	}

	if open && duration > start {
		silences = append(silences, silence.Interval{Start: start, End: duration})
	}

	return silences
}
