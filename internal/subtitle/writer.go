package subtitle

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "trimcap captions",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// writes the subtitle to an SRT file
func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, RenderSRT(sub.Entries))
}

// writes the subtitle to a VTT file
func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, RenderVTT(sub.Entries))
}

// writes the subtitle to an ASS file
func (w *ASSWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub.Entries))
}

// RenderSRT produces numbered blocks separated by one blank line:
//
//	1
//	00:00:00,000 --> 00:00:01,500
//	text
//
// Empty input renders as the empty string.
func RenderSRT(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}

	blocks := make([]string, len(entries))
	for i, entry := range entries {
		blocks[i] = fmt.Sprintf("%d\n%s --> %s\n%s",
			i+1,
			FormatTimestamp(entry.Start),
			FormatTimestamp(entry.End),
			strings.TrimSpace(entry.Text))
	}

	return strings.Join(blocks, "\n\n") + "\n"
}

// RenderVTT produces a WebVTT document with numbered cues.
func RenderVTT(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n")

	for i, entry := range entries {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatClock(entry.Start, '.'),
			formatClock(entry.End, '.')))
		sb.WriteString(strings.TrimSpace(entry.Text))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (w *ASSWriter) Render(entries []Entry) string {
	var sb strings.Builder

	// script info section
	sb.WriteString("[Script Info]\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", w.Title))
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	// v4+ styles section
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf("Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize))

	// events section
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(entry.Start),
			formatASSTime(entry.End),
			escapeASSText(strings.TrimSpace(entry.Text))))
	}

	return sb.String()
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. The value is rounded to
// the nearest millisecond before it is decomposed, so 12.345 stays 12,345
// instead of truncating to 12,344.
func FormatTimestamp(seconds float64) string {
	return formatClock(seconds, ',')
}

func formatClock(seconds float64, sep byte) string {
	totalMs := roundMillis(seconds)
	hours := totalMs / 3_600_000
	minutes := (totalMs % 3_600_000) / 60_000
	secs := (totalMs % 60_000) / 1000
	millis := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis)
}

func formatASSTime(seconds float64) string {
	totalCs := (roundMillis(seconds) + 5) / 10
	hours := totalCs / 360_000
	minutes := (totalCs % 360_000) / 6000
	secs := (totalCs % 6000) / 100
	centis := totalCs % 100

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

func roundMillis(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\n", "\\N")
	return text
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}
