package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	uploadsDir   = "uploads"
	audioDir     = "audio"
	processedDir = "processed"
	subtitlesDir = "subtitles"
	tempDir      = "temp"
)

// Workspace lays out per-request artifacts under one root. Every path a
// request touches carries its id, so concurrent requests never collide.
type Workspace struct {
	root string
}

func NewWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	for _, dir := range []string{uploadsDir, audioDir, processedDir, subtitlesDir, tempDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &Workspace{root: abs}, nil
}

func (w *Workspace) Root() string         { return w.root }
func (w *Workspace) ProcessedDir() string { return filepath.Join(w.root, processedDir) }
func (w *Workspace) SubtitlesDir() string { return filepath.Join(w.root, subtitlesDir) }
func (w *Workspace) TempDir() string      { return filepath.Join(w.root, tempDir) }

// NewRequest allocates a fresh id and its artifact paths. ext is the media
// extension of the source, ".mp4" when empty. Source defaults to the upload
// path; callers processing a file in place may point it elsewhere.
func (w *Workspace) NewRequest(ext string) Request {
	id := uuid.NewString()
	if ext == "" {
		ext = ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	upload := filepath.Join(w.root, uploadsDir, id+ext)
	return Request{
		ID:                  id,
		Source:              upload,
		UploadPath:          upload,
		AudioPath:           filepath.Join(w.root, audioDir, id+".wav"),
		TranscriptAudioPath: filepath.Join(w.root, audioDir, id+"_processed.mp3"),
		ProcessedPath:       filepath.Join(w.root, processedDir, id+ext),
		BurnedPath:          filepath.Join(w.root, processedDir, id+"_with_subs"+ext),
		SubtitleBase:        filepath.Join(w.root, subtitlesDir, id),
	}
}

// Request is one pipeline invocation and the paths it owns.
type Request struct {
	ID     string
	Source string

	UploadPath          string
	AudioPath           string // analysis audio from the source
	TranscriptAudioPath string // audio re-extracted from the processed media
	ProcessedPath       string // silence-trimmed media
	BurnedPath          string // processed media with captions burned in
	SubtitleBase        string // subtitle path without extension
}

// SubtitlePath returns the subtitle file for a format extension like ".srt".
func (r Request) SubtitlePath(ext string) string {
	return r.SubtitleBase + ext
}
