package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mgpai22/trimcap/internal/logging"
	"github.com/mgpai22/trimcap/internal/segment"
	"github.com/mgpai22/trimcap/internal/silence"
	"github.com/mgpai22/trimcap/internal/subtitle"
	"github.com/mgpai22/trimcap/internal/transcribe"
	"github.com/mgpai22/trimcap/internal/translate"
)

type extractCall struct {
	media, audio string
}

type fakeMedia struct {
	mu sync.Mutex

	duration float64
	silences []silence.Interval

	extractErr  error
	durationErr error
	detectErr   error
	cutErr      error
	burnErr     error

	extracts []extractCall
	plans    []segment.Plan
	burns    int
}

func (f *fakeMedia) ExtractAudio(_ context.Context, mediaPath, audioPath string) error {
	f.mu.Lock()
	f.extracts = append(f.extracts, extractCall{mediaPath, audioPath})
	f.mu.Unlock()
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(audioPath, []byte("audio"), 0644)
}

func (f *fakeMedia) Duration(context.Context, string) (float64, error) {
	return f.duration, f.durationErr
}

func (f *fakeMedia) DetectSilences(context.Context, string, float64) ([]silence.Interval, error) {
	return f.silences, f.detectErr
}

func (f *fakeMedia) CutAndConcat(_ context.Context, plan segment.Plan, outputPath string) error {
	f.mu.Lock()
	f.plans = append(f.plans, plan)
	f.mu.Unlock()
	if f.cutErr != nil {
		return f.cutErr
	}
	return os.WriteFile(outputPath, []byte("trimmed"), 0644)
}

func (f *fakeMedia) BurnCaptions(_ context.Context, videoPath, subtitlePath, outputPath string) error {
	f.mu.Lock()
	f.burns++
	f.mu.Unlock()
	if f.burnErr != nil {
		return f.burnErr
	}
	if _, err := os.Stat(subtitlePath); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("burned"), 0644)
}

type fakeTranscriber struct {
	mu     sync.Mutex
	result *transcribe.Result
	err    error
	paths  []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (*transcribe.Result, error) {
	f.mu.Lock()
	f.paths = append(f.paths, audioPath)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, items []translate.TranslationItem) ([]translate.TranslationResult, error) {
	out := make([]translate.TranslationResult, len(items))
	for i, it := range items {
		out[i] = translate.TranslationResult{Index: it.Index, Text: strings.ToUpper(it.Text)}
	}
	return out, nil
}

func sampleTranscript() *transcribe.Result {
	return &transcribe.Result{
		Text: "Hello there. This caption is long enough that it has to be split into pieces.",
		Segments: []subtitle.Segment{
			{Start: 0, End: 1.2, Text: "Hello there."},
			{Start: 1.2, End: 6, Text: "This caption is long enough that it has to be split into pieces."},
		},
		Language: "en",
	}
}

func newFixture(t *testing.T, ext string) (*Workspace, Request) {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	req := ws.NewRequest(ext)
	require.NoError(t, os.WriteFile(req.Source, []byte("source media"), 0644))
	return ws, req
}

func newOrchestrator(t *testing.T, cfg Config, media Media, tr transcribe.Transcriber, opts ...func(*Deps)) *Orchestrator {
	t.Helper()
	deps := Deps{Media: media, Transcriber: tr}
	for _, o := range opts {
		o(&deps)
	}
	orch, err := New(cfg, deps)
	require.NoError(t, err)
	return orch
}

func TestRunFullPipeline(t *testing.T) {
	_, req := newFixture(t, ".mp4")
	media := &fakeMedia{
		duration: 10,
		silences: []silence.Interval{{Start: 2.0, End: 2.9}, {Start: 6.0, End: 6.7}},
	}
	tr := &fakeTranscriber{result: sampleTranscript()}
	cfg := DefaultConfig()

	result, err := newOrchestrator(t, cfg, media, tr).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []State{
		StateReceived,
		StateAudioExtracted,
		StateDurationKnown,
		StateSilencesDetected,
		StateSegmentsComputed,
		StateCutConcatenated,
		StateAudioReExtracted,
		StateTranscribed,
		StateCaptionsChunked,
		StateSubtitlesWritten,
		StateCaptionsBurned,
		StateResponded,
	}, result.Trace)

	wantKeep := silence.ComputeKeepIntervals(media.silences, 10, cfg.Keep)
	assert.Equal(t, wantKeep, result.KeepIntervals)
	require.Len(t, media.plans, 1)
	assert.Len(t, media.plans[0].Cuts, len(wantKeep))
	assert.InDelta(t, silence.TotalLength(wantKeep), result.KeptDuration, 1e-9)

	// transcription runs on audio from the trimmed output, not the source
	require.Len(t, media.extracts, 2)
	assert.Equal(t, req.Source, media.extracts[0].media)
	assert.Equal(t, req.ProcessedPath, media.extracts[1].media)
	assert.Equal(t, []string{req.TranscriptAudioPath}, tr.paths)

	wantCaptions := subtitle.SplitLongSegments(sampleTranscript().Segments, cfg.MaxChars, cfg.MaxDuration)
	assert.Equal(t, wantCaptions, result.Captions)
	assert.Greater(t, len(result.Captions), 2)

	srt, err := os.ReadFile(result.SRTPath)
	require.NoError(t, err)
	assert.Equal(t, subtitle.RenderSRT(wantCaptions), string(srt))
	assert.Equal(t, req.ID+".srt", result.SRTFileName)
	assert.Equal(t, result.SRTPath, result.SubtitlePath)

	assert.True(t, result.CaptionsBurned)
	assert.Empty(t, result.Warning)
	assert.Equal(t, req.BurnedPath, result.ProcessedPath)
	assert.Equal(t, req.ProcessedPath, result.TrimmedPath)
	assert.True(t, strings.HasSuffix(result.ProcessedPath, "_with_subs.mp4"))
	assert.Equal(t, sampleTranscript().Text, result.FullText)
	assert.Equal(t, messageBurned, result.Message)

	assert.NoFileExists(t, req.AudioPath)
	assert.NoFileExists(t, req.TranscriptAudioPath)
}

func TestRunPassThroughWhenEverythingIsSilent(t *testing.T) {
	_, req := newFixture(t, ".mp4")
	media := &fakeMedia{duration: 10, silences: []silence.Interval{{Start: 0, End: 10}}}
	tr := &fakeTranscriber{result: &transcribe.Result{}}

	result, err := newOrchestrator(t, DefaultConfig(), media, tr).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, result.Trace, StatePassThrough)
	assert.NotContains(t, result.Trace, StateCutConcatenated)
	assert.Empty(t, media.plans, "cut/concat must not run on an empty plan")
	assert.True(t, result.PassThrough)
	assert.Empty(t, result.KeepIntervals)

	data, err := os.ReadFile(req.ProcessedPath)
	require.NoError(t, err)
	assert.Equal(t, "source media", string(data))

	assert.Empty(t, result.Captions)
	srt, err := os.ReadFile(result.SRTPath)
	require.NoError(t, err)
	assert.Empty(t, srt)
}

func TestRunBurnFailureDegrades(t *testing.T) {
	_, req := newFixture(t, ".mp4")
	media := &fakeMedia{duration: 5, burnErr: errors.New("no libass")}
	tr := &fakeTranscriber{result: sampleTranscript()}

	core, logs := observer.New(zapcore.WarnLevel)
	log := logging.New(zap.New(core))

	result, err := newOrchestrator(t, DefaultConfig(), media, tr, func(d *Deps) { d.Logger = log }).
		Run(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.CaptionsBurned)
	assert.Equal(t, warningBurn, result.Warning)
	assert.Equal(t, messageNotBurned, result.Message)
	assert.Equal(t, req.ProcessedPath, result.ProcessedPath)
	assert.FileExists(t, result.SRTPath)
	assert.Equal(t, StateCaptionsSkipped, result.Trace[len(result.Trace)-2])
	assert.Equal(t, StateResponded, result.Trace[len(result.Trace)-1])

	warns := logs.FilterMessage("caption burn-in failed, returning video without burned captions").All()
	require.Len(t, warns, 1)
	assert.Equal(t, "no libass", warns[0].ContextMap()["error"])
}

func TestRunSkipsBurnWhenDisabled(t *testing.T) {
	_, req := newFixture(t, ".mov")
	media := &fakeMedia{duration: 5}
	cfg := DefaultConfig()
	cfg.BurnCaptions = false

	result, err := newOrchestrator(t, cfg, media, &fakeTranscriber{result: sampleTranscript()}).
		Run(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, media.burns)
	assert.Contains(t, result.Trace, StateCaptionsSkipped)
	assert.Empty(t, result.Warning)
	assert.Equal(t, req.ProcessedPath, result.ProcessedPath)
}

func TestRunSkipsBurnForAudio(t *testing.T) {
	_, req := newFixture(t, ".wav")
	media := &fakeMedia{duration: 5}

	result, err := newOrchestrator(t, DefaultConfig(), media, &fakeTranscriber{result: sampleTranscript()}).
		Run(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, media.burns)
	assert.Equal(t, messageAudio, result.Message)
	assert.Contains(t, result.Trace, StateCaptionsSkipped)
}

func TestRunWritesAlternateFormat(t *testing.T) {
	_, req := newFixture(t, ".mp4")
	cfg := DefaultConfig()
	cfg.Format = subtitle.FormatVTT

	result, err := newOrchestrator(t, cfg, &fakeMedia{duration: 5}, &fakeTranscriber{result: sampleTranscript()}).
		Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.SubtitlePath(".vtt"), result.SubtitlePath)
	vtt, err := os.ReadFile(result.SubtitlePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(vtt), "WEBVTT"))
	// burn-in still works from the SRT
	assert.FileExists(t, result.SRTPath)
	assert.True(t, result.CaptionsBurned)
}

func TestRunTranslatesCaptions(t *testing.T) {
	_, req := newFixture(t, ".mp4")

	result, err := newOrchestrator(t, DefaultConfig(), &fakeMedia{duration: 5}, &fakeTranscriber{result: sampleTranscript()},
		func(d *Deps) { d.Translator = upperTranslator{} }).
		Run(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, result.Trace, StateCaptionsTranslated)
	require.NotEmpty(t, result.Captions)
	assert.Equal(t, "HELLO THERE.", result.Captions[0].Text)
	assert.Equal(t, 0.0, result.Captions[0].Start)
	assert.Equal(t, 1.2, result.Captions[0].End)
}

func TestRunStageFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		media *fakeMedia
		tr    *fakeTranscriber
		stage Stage
	}{
		{"extract", &fakeMedia{duration: 5, extractErr: boom}, &fakeTranscriber{result: sampleTranscript()}, StageExtractAudio},
		{"duration", &fakeMedia{durationErr: boom}, &fakeTranscriber{result: sampleTranscript()}, StageProbeDuration},
		{"detect", &fakeMedia{duration: 5, detectErr: boom}, &fakeTranscriber{result: sampleTranscript()}, StageDetectSilences},
		{"cut", &fakeMedia{duration: 5, cutErr: boom}, &fakeTranscriber{result: sampleTranscript()}, StageCutConcat},
		{"transcribe", &fakeMedia{duration: 5}, &fakeTranscriber{err: boom}, StageTranscribe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, req := newFixture(t, ".mp4")

			result, err := newOrchestrator(t, DefaultConfig(), tt.media, tt.tr).Run(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, boom)

			stage, ok := FailedStage(err)
			require.True(t, ok)
			assert.Equal(t, tt.stage, stage)
			assert.True(t, strings.HasPrefix(err.Error(), string(tt.stage)+": "))
		})
	}
}

func TestRunRejectsMissingInput(t *testing.T) {
	orch := newOrchestrator(t, DefaultConfig(), &fakeMedia{duration: 5}, &fakeTranscriber{result: sampleTranscript()})

	_, err := orch.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrInputMissing)

	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	req := ws.NewRequest(".mp4") // upload never written

	_, err = orch.Run(context.Background(), req)
	assert.ErrorIs(t, err, ErrInputMissing)
	_, isStage := FailedStage(err)
	assert.False(t, isStage)
}

func TestRunConcurrentRequestsDoNotCollide(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	orch := newOrchestrator(t, DefaultConfig(), &fakeMedia{duration: 5}, &fakeTranscriber{result: sampleTranscript()})

	const n = 4
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		req := ws.NewRequest(".mp4")
		require.NoError(t, os.WriteFile(req.Source, []byte("media"), 0644))
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = orch.Run(context.Background(), req)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range n {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i].ProcessedPath])
		seen[results[i].ProcessedPath] = true
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{Transcriber: &fakeTranscriber{}})
	assert.Error(t, err)
	_, err = New(DefaultConfig(), Deps{Media: &fakeMedia{}})
	assert.Error(t, err)
}

func TestStageErrorFormatting(t *testing.T) {
	err := &StageError{Stage: StageTranscribe, Err: errors.New("quota exceeded")}
	assert.Equal(t, "transcribe: quota exceeded", err.Error())

	_, ok := FailedStage(errors.New("plain"))
	assert.False(t, ok)

	stage, ok := FailedStage(errors.Join(errors.New("ctx"), err))
	assert.True(t, ok)
	assert.Equal(t, StageTranscribe, stage)
}

func TestWorkspaceLayout(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	require.NoError(t, err)

	for _, dir := range []string{uploadsDir, audioDir, processedDir, subtitlesDir, tempDir} {
		assert.DirExists(t, filepath.Join(root, dir))
	}

	a := ws.NewRequest("")
	b := ws.NewRequest("mkv")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, ".mp4", filepath.Ext(a.UploadPath))
	assert.Equal(t, ".mkv", filepath.Ext(b.ProcessedPath))
	assert.Equal(t, filepath.Join(ws.ProcessedDir(), a.ID+"_with_subs.mp4"), a.BurnedPath)
	assert.Equal(t, filepath.Join(ws.SubtitlesDir(), a.ID+".srt"), a.SubtitlePath(".srt"))
	assert.Equal(t, a.UploadPath, a.Source)

	_, err = NewWorkspace("")
	assert.Error(t, err)
}
