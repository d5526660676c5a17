package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/trimcap/internal/audio"
	ffmpegbin "github.com/mgpai22/trimcap/internal/ffmpeg"
	"github.com/mgpai22/trimcap/internal/segment"
)

// holds options for audio extraction
type ExtractAudioOptions struct {
	Format     string // Output format (wav, mp3, aac, flac)
	SampleRate int    // Sample rate in Hz (e.g., 16000, 44100, 48000)
	Channels   int    // Number of channels (1 = mono, 2 = stereo)
	Bitrate    string // Bitrate for lossy formats (e.g., "128k", "320k")
}

// mono 16 kHz PCM, used for silence detection
func DefaultExtractAudioOptions() ExtractAudioOptions {
	return ExtractAudioOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

// small mono mp3 that stays under transcription upload limits
func TranscriptionAudioOptions() ExtractAudioOptions {
	return ExtractAudioOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

// re-encoding parameters for cuts, concatenation and burn-in
type EncodeOptions struct {
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		VideoCodec:   "libx264",
		Preset:       "veryfast",
		CRF:          23,
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	}
}

func (o EncodeOptions) videoArgs() ffmpeg.KwArgs {
	switch o.VideoCodec {
	case "libx264", "libx265":
		return ffmpeg.KwArgs{
			"c:v":    o.VideoCodec,
			"preset": o.Preset,
			"crf":    o.CRF,
		}
	case "libvpx-vp9":
		// constant quality mode needs a zero target bitrate
		return ffmpeg.KwArgs{
			"c:v": o.VideoCodec,
			"crf": o.CRF,
			"b:v": 0,
		}
	default:
		return ffmpeg.KwArgs{
			"c:v": o.VideoCodec,
			"q:v": 3,
		}
	}
}

func (o EncodeOptions) audioArgs() ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{"c:a": o.AudioCodec}
	if !losslessAudioCodecs[o.AudioCodec] && o.AudioBitrate != "" {
		kwargs["b:a"] = o.AudioBitrate
	}
	return kwargs
}

// containers that cannot carry the configured codecs and what they get instead
var (
	containerAudioCodecs = map[string]string{
		".mp3":  "libmp3lame",
		".flac": "flac",
		".ogg":  "libvorbis",
		".wav":  "pcm_s16le",
		".aiff": "pcm_s16be",
		".wma":  "wmav2",
		".webm": "libopus",
		".wmv":  "wmav2",
		".mpeg": "mp2",
		".mpg":  "mp2",
	}
	containerVideoCodecs = map[string]string{
		".webm": "libvpx-vp9",
		".wmv":  "wmv2",
		".mpeg": "mpeg2video",
		".mpg":  "mpeg2video",
	}
	losslessAudioCodecs = map[string]bool{
		"flac":      true,
		"pcm_s16le": true,
		"pcm_s16be": true,
	}
	// containers muxed by the mov muxer, which understands movflags
	movContainers = map[string]bool{
		".mp4": true,
		".mov": true,
		".m4v": true,
		".m4a": true,
		".3gp": true,
	}
)

// forContainer swaps in codecs the container of an output with extension ext
// can mux, keeping the configured ones everywhere else.
func (o EncodeOptions) forContainer(ext string) EncodeOptions {
	ext = strings.ToLower(ext)
	if c, ok := containerVideoCodecs[ext]; ok {
		o.VideoCodec = c
	}
	if c, ok := containerAudioCodecs[ext]; ok {
		o.AudioCodec = c
	}
	return o
}

// ffmpeg-backed media operations
type Processor struct {
	tempDir string
	encode  EncodeOptions
}

func NewProcessor(tempDir string, encode EncodeOptions) *Processor {
	return &Processor{
		tempDir: tempDir,
		encode:  encode,
	}
}

// extracts the audio track of a media file
func (p *Processor) ExtractAudio(
	ctx context.Context,
	mediaPath, outputPath string,
	opts ExtractAudioOptions,
) error {
	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return fmt.Errorf("media file not found: %s", mediaPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := ffmpegbin.Run(ctx, extractAudioStream(mediaPath, outputPath, opts)); err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w", err)
	}

	return nil
}

func extractAudioStream(mediaPath, outputPath string, opts ExtractAudioOptions) *ffmpeg.Stream {
	kwargs := ffmpeg.KwArgs{
		"vn": "",              // No video
		"ar": opts.SampleRate, // Sample rate
		"ac": opts.Channels,   // Channels
	}

	switch opts.Format {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
	case "aac":
		kwargs["acodec"] = "aac"
	case "flac":
		kwargs["acodec"] = "flac"
	default:
		kwargs["acodec"] = "pcm_s16le"
	}
	if opts.Bitrate != "" && (opts.Format == "mp3" || opts.Format == "aac") {
		kwargs["b:a"] = opts.Bitrate
	}

	return ffmpeg.Input(mediaPath).Output(outputPath, kwargs)
}

// re-encodes every cut of the plan and joins them, in plan order, into
// outputPath
func (p *Processor) CutAndConcat(
	ctx context.Context,
	plan segment.Plan,
	outputPath string,
) error {
	if plan.Empty() {
		return fmt.Errorf("cut plan is empty")
	}
	if _, err := os.Stat(plan.Source); os.IsNotExist(err) {
		return fmt.Errorf("source file not found: %s", plan.Source)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if p.tempDir != "" {
		if err := os.MkdirAll(p.tempDir, 0755); err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
	}
	workDir, err := os.MkdirTemp(p.tempDir, "cuts-*")
	if err != nil {
		return fmt.Errorf("failed to create cut directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioOnly := audio.IsAudioFile(plan.Source)
	ext := filepath.Ext(outputPath)
	if ext == "" {
		ext = ".mp4"
	}

	parts := make([]string, 0, len(plan.Cuts))
	for _, cut := range plan.Cuts {
		partPath := filepath.Join(workDir, fmt.Sprintf("seg_%03d%s", cut.Index, ext))
		if err := ffmpegbin.Run(ctx, p.cutStream(cut, partPath, audioOnly)); err != nil {
			return fmt.Errorf("failed to cut segment %d [%.3f, %.3f]: %w", cut.Index, cut.Start, cut.End, err)
		}
		parts = append(parts, partPath)
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(ConcatList(parts)), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}

	if err := ffmpegbin.Run(ctx, p.concatStream(listPath, outputPath, audioOnly)); err != nil {
		return fmt.Errorf("failed to concatenate segments: %w", err)
	}

	return nil
}

func (p *Processor) cutStream(cut segment.CutSpec, partPath string, audioOnly bool) *ffmpeg.Stream {
	return ffmpeg.Input(cut.Source, ffmpeg.KwArgs{
		"ss": formatSeconds(cut.Start),
		"to": formatSeconds(cut.End),
	}).Output(partPath, p.outputArgs(partPath, audioOnly))
}

func (p *Processor) concatStream(listPath, outputPath string, audioOnly bool) *ffmpeg.Stream {
	return ffmpeg.Input(listPath, ffmpeg.KwArgs{
		"f":    "concat",
		"safe": 0,
	}).Output(outputPath, p.outputArgs(outputPath, audioOnly))
}

// outputArgs builds the encoder arguments for outputPath's container.
func (p *Processor) outputArgs(outputPath string, audioOnly bool) ffmpeg.KwArgs {
	ext := strings.ToLower(filepath.Ext(outputPath))
	enc := p.encode.forContainer(ext)

	kwargs := enc.audioArgs()
	if audioOnly {
		kwargs["vn"] = ""
		return kwargs
	}
	kwargs = mergeArgs(enc.videoArgs(), kwargs)
	if movContainers[ext] {
		kwargs["movflags"] = "+faststart"
	}
	return kwargs
}

// burns an SRT file into the video; audio is stream-copied
func (p *Processor) BurnCaptions(
	ctx context.Context,
	videoPath, subtitlePath, outputPath string,
	style CaptionStyle,
) error {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file not found: %s", videoPath)
	}
	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}

	filter, err := SubtitlesFilter(subtitlePath, style)
	if err != nil {
		return err
	}

	if err := ffmpegbin.Run(ctx, p.burnStream(videoPath, filter, outputPath)); err != nil {
		return fmt.Errorf("ffmpeg burn-in failed: %w", err)
	}

	return nil
}

func (p *Processor) burnStream(videoPath, filter, outputPath string) *ffmpeg.Stream {
	ext := strings.ToLower(filepath.Ext(outputPath))
	kwargs := p.encode.forContainer(ext).videoArgs()
	kwargs["vf"] = filter
	kwargs["c:a"] = "copy"
	if movContainers[ext] {
		kwargs["movflags"] = "+faststart"
	}
	return ffmpeg.Input(videoPath).Output(outputPath, kwargs)
}

// ConcatList renders a concat demuxer list, quoting each path.
func ConcatList(paths []string) string {
	lines := make([]string, len(paths))
	for i, p := range paths {
		lines[i] = "file '" + strings.ReplaceAll(p, "'", `'\''`) + "'"
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func mergeArgs(sets ...ffmpeg.KwArgs) ffmpeg.KwArgs {
	merged := ffmpeg.KwArgs{}
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
