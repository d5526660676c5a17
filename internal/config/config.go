package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/silence"
	"github.com/mgpai22/trimcap/internal/subtitle"
	"github.com/mgpai22/trimcap/internal/transcribe"
	"github.com/mgpai22/trimcap/internal/translate"
	"github.com/mgpai22/trimcap/internal/video"
)

// EnvPrefix prefixes every environment override, e.g. TRIMCAP_KEEP_PRE_PAD.
const EnvPrefix = "TRIMCAP"

type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Silence    SilenceConfig    `mapstructure:"silence"`
	Keep       KeepConfig       `mapstructure:"keep"`
	Captions   CaptionsConfig   `mapstructure:"captions"`
	Burn       BurnConfig       `mapstructure:"burn"`
	Encode     EncodeConfig     `mapstructure:"encode"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
	Translate  TranslateConfig  `mapstructure:"translate"`
	Server     ServerConfig     `mapstructure:"server"`
}

type StorageConfig struct {
	Root string `mapstructure:"root"`
}

// silencedetect thresholds
type SilenceConfig struct {
	Noise       string  `mapstructure:"noise"`
	MinDuration float64 `mapstructure:"min_duration"`
}

// padding and merge policy for keep intervals, seconds
type KeepConfig struct {
	PrePad     float64 `mapstructure:"pre_pad"`
	PostPad    float64 `mapstructure:"post_pad"`
	MinSegment float64 `mapstructure:"min_segment"`
	GapMerge   float64 `mapstructure:"gap_merge"`
}

type CaptionsConfig struct {
	MaxChars    int     `mapstructure:"max_chars"`
	MaxDuration float64 `mapstructure:"max_duration"`
	Format      string  `mapstructure:"format"`
}

type BurnConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	FontSize        int    `mapstructure:"font_size"`
	FontColor       string `mapstructure:"font_color"`
	BackgroundColor string `mapstructure:"background_color"`
	MarginBottom    int    `mapstructure:"margin_bottom"`
	FontFamily      string `mapstructure:"font_family"`
}

type EncodeConfig struct {
	VideoCodec   string `mapstructure:"video_codec"`
	Preset       string `mapstructure:"preset"`
	CRF          int    `mapstructure:"crf"`
	AudioCodec   string `mapstructure:"audio_codec"`
	AudioBitrate string `mapstructure:"audio_bitrate"`
}

// TranscriptLanguage "native" keeps the spoken language; "english" asks
// whisper to translate while transcribing.
type TranscribeConfig struct {
	Provider           string `mapstructure:"provider"`
	Model              string `mapstructure:"model"`
	Language           string `mapstructure:"language"`
	TranscriptLanguage string `mapstructure:"transcript_language"`
	Prompt             string `mapstructure:"prompt"`
	APIKey             string `mapstructure:"api_key"`
}

// translation runs only when TargetLanguage is set
type TranslateConfig struct {
	TargetLanguage string `mapstructure:"target_language"`
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	Prompt         string `mapstructure:"prompt"`
	APIKey         string `mapstructure:"api_key"`
	BatchSize      int    `mapstructure:"batch_size"`
	Concurrency    int    `mapstructure:"concurrency"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	PublicURL   string `mapstructure:"public_url"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", "./data")

	detect := audio.DefaultDetectOptions()
	v.SetDefault("silence.noise", detect.Noise)
	v.SetDefault("silence.min_duration", detect.MinDuration)

	keep := silence.DefaultOptions()
	v.SetDefault("keep.pre_pad", keep.PrePad)
	v.SetDefault("keep.post_pad", keep.PostPad)
	v.SetDefault("keep.min_segment", keep.MinSegment)
	v.SetDefault("keep.gap_merge", keep.GapMerge)

	v.SetDefault("captions.max_chars", subtitle.DefaultMaxChars)
	v.SetDefault("captions.max_duration", subtitle.DefaultMaxDuration)
	v.SetDefault("captions.format", string(subtitle.FormatSRT))

	style := video.DefaultCaptionStyle()
	v.SetDefault("burn.enabled", true)
	v.SetDefault("burn.font_size", style.FontSize)
	v.SetDefault("burn.font_color", style.FontColor)
	v.SetDefault("burn.background_color", style.BackgroundColor)
	v.SetDefault("burn.margin_bottom", style.MarginBottom)
	v.SetDefault("burn.font_family", style.FontFamily)

	enc := video.DefaultEncodeOptions()
	v.SetDefault("encode.video_codec", enc.VideoCodec)
	v.SetDefault("encode.preset", enc.Preset)
	v.SetDefault("encode.crf", enc.CRF)
	v.SetDefault("encode.audio_codec", enc.AudioCodec)
	v.SetDefault("encode.audio_bitrate", enc.AudioBitrate)

	v.SetDefault("transcribe.provider", string(transcribe.ProviderOpenAI))
	v.SetDefault("transcribe.model", "")
	v.SetDefault("transcribe.language", "")
	v.SetDefault("transcribe.transcript_language", "native")
	v.SetDefault("transcribe.prompt", "")
	v.SetDefault("transcribe.api_key", "")

	v.SetDefault("translate.target_language", "")
	v.SetDefault("translate.provider", string(translate.ProviderGemini))
	v.SetDefault("translate.model", "")
	v.SetDefault("translate.prompt", "")
	v.SetDefault("translate.api_key", "")
	v.SetDefault("translate.batch_size", translate.DefaultBatchSize)
	v.SetDefault("translate.concurrency", translate.DefaultConcurrency)

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.public_url", "http://localhost:3000")
	v.SetDefault("server.max_upload_mb", 512)
}

// Load reads defaults, then the optional config file at path, then
// TRIMCAP_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ResolveAPIKeys()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// ResolveAPIKeys fills empty provider keys from the provider's conventional
// environment variable.
func (c *Config) ResolveAPIKeys() {
	c.Transcribe.APIKey = resolveAPIKey(c.Transcribe.Provider, c.Transcribe.APIKey, os.Getenv)
	c.Translate.APIKey = resolveAPIKey(c.Translate.Provider, c.Translate.APIKey, os.Getenv)
}

var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// resolveAPIKey falls back to the provider's conventional env var.
func resolveAPIKey(provider, explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if name, ok := providerKeyEnv[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return getenv(name)
	}
	return ""
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("storage.root must not be empty")
	}
	if strings.TrimSpace(c.Silence.Noise) == "" {
		return fmt.Errorf("silence.noise must not be empty")
	}
	if c.Silence.MinDuration <= 0 {
		return fmt.Errorf("silence.min_duration must be positive, got %v", c.Silence.MinDuration)
	}
	if c.Keep.PrePad < 0 || c.Keep.PostPad < 0 {
		return fmt.Errorf("keep pads must not be negative (pre_pad=%v, post_pad=%v)", c.Keep.PrePad, c.Keep.PostPad)
	}
	if c.Keep.MinSegment < 0 {
		return fmt.Errorf("keep.min_segment must not be negative, got %v", c.Keep.MinSegment)
	}
	if c.Keep.GapMerge < 0 {
		return fmt.Errorf("keep.gap_merge must not be negative, got %v", c.Keep.GapMerge)
	}
	if c.Captions.MaxChars <= 0 {
		return fmt.Errorf("captions.max_chars must be positive, got %d", c.Captions.MaxChars)
	}
	if c.Captions.MaxDuration <= 0 {
		return fmt.Errorf("captions.max_duration must be positive, got %v", c.Captions.MaxDuration)
	}
	if _, ok := subtitle.ParseFormat(c.Captions.Format); !ok {
		return fmt.Errorf("unsupported captions.format: %q", c.Captions.Format)
	}
	if c.Burn.Enabled {
		if c.Burn.FontSize <= 0 {
			return fmt.Errorf("burn.font_size must be positive, got %d", c.Burn.FontSize)
		}
		if _, err := video.ForceStyle(c.CaptionStyle()); err != nil {
			return fmt.Errorf("invalid burn style: %w", err)
		}
	}
	provider, err := transcribe.ParseProvider(c.Transcribe.Provider)
	if err != nil {
		return err
	}
	if provider == transcribe.ProviderOpenAI && !whisperTranscriptLanguage(c.Transcribe.TranscriptLanguage) {
		return fmt.Errorf("transcribe.transcript_language %q is not supported by openai: use native or english",
			c.Transcribe.TranscriptLanguage)
	}
	if c.Translate.TargetLanguage != "" {
		if _, err := translate.ParseProvider(c.Translate.Provider); err != nil {
			return err
		}
		if c.Translate.BatchSize <= 0 || c.Translate.Concurrency <= 0 {
			return fmt.Errorf("translate.batch_size and translate.concurrency must be positive")
		}
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// whisper either keeps the spoken language or translates into English
func whisperTranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	default:
		return false
	}
}

func (c *Config) KeepOptions() silence.Options {
	return silence.Options{
		PrePad:     c.Keep.PrePad,
		PostPad:    c.Keep.PostPad,
		MinSegment: c.Keep.MinSegment,
		GapMerge:   c.Keep.GapMerge,
	}
}

func (c *Config) DetectOptions() audio.DetectOptions {
	return audio.DetectOptions{
		Noise:       c.Silence.Noise,
		MinDuration: c.Silence.MinDuration,
	}
}

func (c *Config) CaptionStyle() video.CaptionStyle {
	return video.CaptionStyle{
		FontSize:        c.Burn.FontSize,
		FontColor:       c.Burn.FontColor,
		BackgroundColor: c.Burn.BackgroundColor,
		MarginBottom:    c.Burn.MarginBottom,
		FontFamily:      c.Burn.FontFamily,
	}
}

func (c *Config) EncodeOptions() video.EncodeOptions {
	return video.EncodeOptions{
		VideoCodec:   c.Encode.VideoCodec,
		Preset:       c.Encode.Preset,
		CRF:          c.Encode.CRF,
		AudioCodec:   c.Encode.AudioCodec,
		AudioBitrate: c.Encode.AudioBitrate,
	}
}

func (c *Config) CaptionFormat() subtitle.Format {
	f, _ := subtitle.ParseFormat(c.Captions.Format)
	return f
}

func (c *Config) TranscribeOptions() transcribe.Options {
	return transcribe.Options{
		Language:           c.Transcribe.Language,
		TranscriptLanguage: c.Transcribe.TranscriptLanguage,
		Model:              c.Transcribe.Model,
		Prompt:             c.Transcribe.Prompt,
	}
}

func (c *Config) TranslateOptions() translate.Options {
	return translate.Options{
		TargetLanguage: c.Translate.TargetLanguage,
		Model:          c.Translate.Model,
		Prompt:         c.Translate.Prompt,
		BatchSize:      c.Translate.BatchSize,
		Concurrency:    c.Translate.Concurrency,
	}
}
