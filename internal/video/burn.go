package video

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// CaptionStyle controls how burned-in captions look. None of it affects
// timing.
type CaptionStyle struct {
	FontSize        int    // px
	FontColor       string // white, black or yellow
	BackgroundColor string // color@opacity, e.g. black@0.7
	MarginBottom    int    // px from the bottom edge
	FontFamily      string
}

func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		FontSize:        14,
		FontColor:       "white",
		BackgroundColor: "black@0.7",
		MarginBottom:    20,
		FontFamily:      "Arial",
	}
}

// ASS colours are &HBBGGRR
var namedColors = map[string]string{
	"white":  "&HFFFFFF",
	"black":  "&H000000",
	"yellow": "&H00FFFF",
	"red":    "&H0000FF",
	"green":  "&H00FF00",
	"blue":   "&HFF0000",
}

// primaryColour maps a named font color to ASS, defaulting to white.
func primaryColour(name string) string {
	if c, ok := namedColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return namedColors["white"]
}

// backColour maps "color@opacity" to &HAABBGGRR where alpha is the inverse
// of opacity.
func backColour(spec string) (string, error) {
	const fallback = "&H80000000"

	name, opacityStr, found := strings.Cut(spec, "@")
	if !found {
		return fallback, nil
	}
	opacity, err := strconv.ParseFloat(strings.TrimSpace(opacityStr), 64)
	if err != nil || opacity < 0 || opacity > 1 {
		return "", fmt.Errorf("invalid background opacity in %q", spec)
	}

	bgr := strings.TrimPrefix(primaryColour("black"), "&H")
	if name = strings.TrimSpace(name); name != "" {
		bgr = strings.TrimPrefix(primaryColour(name), "&H")
	}
	alpha := int(math.Round((1 - opacity) * 255))
	return fmt.Sprintf("&H%02X%s", alpha, bgr), nil
}

// ForceStyle renders the force_style argument of the subtitles filter.
func ForceStyle(style CaptionStyle) (string, error) {
	back, err := backColour(style.BackgroundColor)
	if err != nil {
		return "", err
	}

	fields := []string{
		"FontName=" + style.FontFamily,
		"FontSize=" + strconv.Itoa(style.FontSize),
		"PrimaryColour=" + primaryColour(style.FontColor),
		"BackColour=" + back,
		"OutlineColour=&H000000",
		"Outline=2",
		"Shadow=1",
		"Alignment=2",
		"MarginV=" + strconv.Itoa(style.MarginBottom),
	}
	return strings.Join(fields, ","), nil
}

// SubtitlesFilter builds the -vf expression that burns subtitlePath in.
func SubtitlesFilter(subtitlePath string, style CaptionStyle) (string, error) {
	abs, err := filepath.Abs(subtitlePath)
	if err != nil {
		return "", fmt.Errorf("resolve subtitle path: %w", err)
	}
	forceStyle, err := ForceStyle(style)
	if err != nil {
		return "", err
	}

	escaped := strings.ReplaceAll(filepath.ToSlash(abs), `\`, "/")
	escaped = strings.ReplaceAll(escaped, "'", `\'`)

	return fmt.Sprintf("subtitles='%s':force_style='%s'", escaped, forceStyle), nil
}
