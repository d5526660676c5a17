package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpegbin "github.com/mgpai22/trimcap/internal/ffmpeg"
)

// JSON output from ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// duration of an audio/video file in seconds
func GetDuration(ctx context.Context, filePath string) (float64, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return 0, fmt.Errorf("file not found: %s", filePath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeDuration(out.Bytes())
}

func parseProbeDuration(data []byte) (float64, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("media reports non-positive duration %v", seconds)
	}

	return seconds, nil
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
}

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".wma":  true,
	".aiff": true,
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is either audio or video
func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
