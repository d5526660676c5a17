package pipeline

import (
	"errors"
	"fmt"
)

// State is a point in a request's lifecycle. Every run records the states
// it passes through in Result.Trace.
type State string

const (
	StateReceived           State = "received"
	StateAudioExtracted     State = "audio_extracted"
	StateDurationKnown      State = "duration_known"
	StateSilencesDetected   State = "silences_detected"
	StateSegmentsComputed   State = "segments_computed"
	StatePassThrough        State = "pass_through"
	StateCutConcatenated    State = "cut_concatenated"
	StateAudioReExtracted   State = "audio_reextracted"
	StateTranscribed        State = "transcribed"
	StateCaptionsChunked    State = "captions_chunked"
	StateCaptionsTranslated State = "captions_translated"
	StateSubtitlesWritten   State = "subtitles_written"
	StateCaptionsBurned     State = "captions_burned"
	StateCaptionsSkipped    State = "captions_skipped"
	StateResponded          State = "responded"
	StateFailed             State = "failed"
)

// Stage names the step that failed.
type Stage string

const (
	StagePrepareWorkspace Stage = "prepare_workspace"
	StageExtractAudio     Stage = "extract_audio"
	StageProbeDuration    Stage = "probe_duration"
	StageDetectSilences   Stage = "detect_silences"
	StagePlanSegments     Stage = "plan_segments"
	StagePassThrough      Stage = "pass_through"
	StageCutConcat        Stage = "cut_concat"
	StageReExtractAudio   Stage = "reextract_audio"
	StageTranscribe       Stage = "transcribe"
	StageTranslate        Stage = "translate_captions"
	StageWriteSubtitles   Stage = "write_subtitles"
)

// ErrInputMissing is returned before any stage runs when the request has no
// readable source media.
var ErrInputMissing = errors.New("no source media provided")

// StageError is the single failure a run reports.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage reports the stage carried by err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
