package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/trimcap/internal/audio"
	"github.com/mgpai22/trimcap/internal/logging"
	"github.com/mgpai22/trimcap/internal/segment"
	"github.com/mgpai22/trimcap/internal/silence"
	"github.com/mgpai22/trimcap/internal/subtitle"
	"github.com/mgpai22/trimcap/internal/transcribe"
	"github.com/mgpai22/trimcap/internal/translate"
)

// Media is the ffmpeg side of the pipeline.
type Media interface {
	ExtractAudio(ctx context.Context, mediaPath, audioPath string) error
	Duration(ctx context.Context, mediaPath string) (float64, error)
	DetectSilences(ctx context.Context, audioPath string, duration float64) ([]silence.Interval, error)
	CutAndConcat(ctx context.Context, plan segment.Plan, outputPath string) error
	BurnCaptions(ctx context.Context, videoPath, subtitlePath, outputPath string) error
}

type Config struct {
	Keep         silence.Options
	MaxChars     int
	MaxDuration  float64
	Format       subtitle.Format
	BurnCaptions bool
	// KeepAudio leaves the intermediate audio files in place after a run.
	KeepAudio bool
}

func DefaultConfig() Config {
	return Config{
		Keep:         silence.DefaultOptions(),
		MaxChars:     subtitle.DefaultMaxChars,
		MaxDuration:  subtitle.DefaultMaxDuration,
		Format:       subtitle.FormatSRT,
		BurnCaptions: true,
	}
}

// Deps are the collaborators an Orchestrator drives. Translator is optional.
type Deps struct {
	Media       Media
	Transcriber transcribe.Transcriber
	Translator  translate.Translator
	Logger      *logging.Logger
}

// Orchestrator runs requests through the strict linear pipeline:
// extract, probe, detect, plan, cut (or pass through), re-extract,
// transcribe, chunk, optionally translate, write subtitles, optionally burn.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	cfg         Config
	media       Media
	transcriber transcribe.Transcriber
	translator  translate.Translator
	log         *logging.Logger
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Media == nil {
		return nil, fmt.Errorf("media collaborator is required")
	}
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = subtitle.DefaultMaxChars
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = subtitle.DefaultMaxDuration
	}
	if cfg.Format == "" {
		cfg.Format = subtitle.FormatSRT
	}

	log := deps.Logger
	if log == nil {
		log = logging.NewNop()
	}

	return &Orchestrator{
		cfg:         cfg,
		media:       deps.Media,
		transcriber: deps.Transcriber,
		translator:  deps.Translator,
		log:         log.Named("pipeline"),
	}, nil
}

// Result is the success payload of a run. A failed burn-in still yields a
// Result, with Warning set and CaptionsBurned false.
type Result struct {
	ID             string
	Message        string
	Duration       float64
	KeepIntervals  []silence.Interval
	KeptDuration   float64
	PassThrough    bool
	ProcessedPath  string // final media handed back to the caller
	TrimmedPath    string // silence-trimmed media without burned captions
	SubtitlePath   string // subtitles in the configured format
	SRTPath        string
	SRTFileName    string
	FullText       string
	Captions       []subtitle.Entry
	CaptionsBurned bool
	Warning        string
	Trace          []State
}

const (
	messageBurned    = "video trimmed, captions generated and burned in"
	messageNotBurned = "video trimmed, captions generated (not burned in)"
	messageAudio     = "audio trimmed, captions generated"
	warningBurn      = "captions could not be burned into the video"
)

type run struct {
	o      *Orchestrator
	req    Request
	result *Result
	log    *logging.Logger
	start  time.Time
}

func (r *run) enter(s State) {
	r.result.Trace = append(r.result.Trace, s)
	r.log.Debugw("state", "state", string(s), "elapsed", time.Since(r.start).Round(time.Millisecond))
}

func (r *run) fail(stage Stage, err error) error {
	r.enter(StateFailed)
	r.log.Errorw("pipeline failed", "stage", string(stage), "error", err)
	return &StageError{Stage: stage, Err: err}
}

// Run processes one request. It returns ErrInputMissing when the source is
// absent, a *StageError naming the failing step on collaborator failure, and
// otherwise a Result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Source == "" {
		return nil, ErrInputMissing
	}
	if info, err := os.Stat(req.Source); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputMissing, req.Source)
	}

	r := &run{
		o:      o,
		req:    req,
		result: &Result{ID: req.ID},
		log:    o.log.With("request_id", req.ID),
		start:  time.Now(),
	}
	r.enter(StateReceived)

	if err := prepareDirs(req); err != nil {
		return nil, r.fail(StagePrepareWorkspace, err)
	}
	if !o.cfg.KeepAudio {
		defer func() {
			_ = os.Remove(req.AudioPath)
			_ = os.Remove(req.TranscriptAudioPath)
		}()
	}

	if err := r.trim(ctx); err != nil {
		return nil, err
	}
	if err := r.caption(ctx); err != nil {
		return nil, err
	}
	r.burn(ctx)

	r.enter(StateResponded)
	r.log.Infow("request complete",
		"captions", len(r.result.Captions),
		"burned", r.result.CaptionsBurned,
		"elapsed", time.Since(r.start).Round(time.Millisecond),
	)
	return r.result, nil
}

// trim runs source analysis and produces the processed media.
func (r *run) trim(ctx context.Context) error {
	o, req, res := r.o, r.req, r.result

	if err := o.media.ExtractAudio(ctx, req.Source, req.AudioPath); err != nil {
		return r.fail(StageExtractAudio, err)
	}
	r.enter(StateAudioExtracted)

	duration, err := o.media.Duration(ctx, req.AudioPath)
	if err != nil {
		return r.fail(StageProbeDuration, err)
	}
	res.Duration = duration
	r.enter(StateDurationKnown)

	silences, err := o.media.DetectSilences(ctx, req.AudioPath, duration)
	if err != nil {
		return r.fail(StageDetectSilences, err)
	}
	r.enter(StateSilencesDetected)

	keep := silence.ComputeKeepIntervals(silences, duration, o.cfg.Keep)
	res.KeepIntervals = keep
	r.enter(StateSegmentsComputed)
	r.log.Infow("segments computed",
		"duration", duration,
		"silences", len(silences),
		"keep_intervals", len(keep),
		"kept", silence.TotalLength(keep),
	)

	plan, err := segment.BuildCutPlan(keep, req.Source, duration)
	if err != nil {
		return r.fail(StagePlanSegments, err)
	}

	if plan.Empty() {
		r.log.Warnw("no speech found, keeping source unchanged", "source", req.Source)
		if err := copyFile(req.Source, req.ProcessedPath); err != nil {
			return r.fail(StagePassThrough, err)
		}
		res.PassThrough = true
		res.KeptDuration = duration
		r.enter(StatePassThrough)
	} else {
		if err := o.media.CutAndConcat(ctx, plan, req.ProcessedPath); err != nil {
			return r.fail(StageCutConcat, err)
		}
		res.KeptDuration = plan.KeptDuration()
		r.enter(StateCutConcatenated)
	}
	res.TrimmedPath = req.ProcessedPath
	res.ProcessedPath = req.ProcessedPath

	return nil
}

// caption transcribes the processed media and writes the subtitle files.
func (r *run) caption(ctx context.Context) error {
	o, req, res := r.o, r.req, r.result

	if err := o.media.ExtractAudio(ctx, req.ProcessedPath, req.TranscriptAudioPath); err != nil {
		return r.fail(StageReExtractAudio, err)
	}
	r.enter(StateAudioReExtracted)

	transcript, err := o.transcriber.Transcribe(ctx, req.TranscriptAudioPath)
	if err != nil {
		return r.fail(StageTranscribe, err)
	}
	res.FullText = transcript.Text
	r.enter(StateTranscribed)

	captions := subtitle.SplitLongSegments(transcript.Segments, o.cfg.MaxChars, o.cfg.MaxDuration)
	r.enter(StateCaptionsChunked)
	r.log.Infow("captions chunked", "segments", len(transcript.Segments), "captions", len(captions))

	if o.translator != nil && len(captions) > 0 {
		captions, err = translate.Captions(ctx, o.translator, captions)
		if err != nil {
			return r.fail(StageTranslate, err)
		}
		r.enter(StateCaptionsTranslated)
	}
	res.Captions = captions

	srtPath := req.SubtitlePath(subtitle.GetExtensionForFormat(subtitle.FormatSRT))
	if err := os.WriteFile(srtPath, []byte(subtitle.RenderSRT(captions)), 0644); err != nil {
		return r.fail(StageWriteSubtitles, err)
	}
	res.SRTPath = srtPath
	res.SRTFileName = filepath.Base(srtPath)
	res.SubtitlePath = srtPath

	if o.cfg.Format != subtitle.FormatSRT {
		writer, err := subtitle.NewWriter(o.cfg.Format)
		if err != nil {
			return r.fail(StageWriteSubtitles, err)
		}
		path := req.SubtitlePath(subtitle.GetExtensionForFormat(o.cfg.Format))
		sub := &subtitle.Subtitle{Entries: captions, Language: transcript.Language, Format: string(o.cfg.Format)}
		if err := writer.Write(sub, path); err != nil {
			return r.fail(StageWriteSubtitles, err)
		}
		res.SubtitlePath = path
	}
	r.enter(StateSubtitlesWritten)

	return nil
}

// burn is best effort: a failure degrades the result instead of failing it.
func (r *run) burn(ctx context.Context) {
	o, req, res := r.o, r.req, r.result

	switch {
	case !audio.IsVideoFile(req.ProcessedPath):
		res.Message = messageAudio
		r.enter(StateCaptionsSkipped)
		return
	case !o.cfg.BurnCaptions:
		res.Message = messageNotBurned
		r.enter(StateCaptionsSkipped)
		return
	}

	if err := o.media.BurnCaptions(ctx, req.ProcessedPath, res.SRTPath, req.BurnedPath); err != nil {
		r.log.Warnw("caption burn-in failed, returning video without burned captions", "error", err)
		res.Message = messageNotBurned
		res.Warning = warningBurn
		r.enter(StateCaptionsSkipped)
		return
	}

	res.ProcessedPath = req.BurnedPath
	res.CaptionsBurned = true
	res.Message = messageBurned
	r.enter(StateCaptionsBurned)
}

func prepareDirs(req Request) error {
	for _, p := range []string{req.AudioPath, req.TranscriptAudioPath, req.ProcessedPath, req.BurnedPath, req.SubtitleBase} {
		if p == "" {
			return fmt.Errorf("request path not set")
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy media: %w", err)
	}
	return out.Close()
}
