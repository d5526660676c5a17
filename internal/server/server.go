package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mgpai22/trimcap/internal/logging"
	"github.com/mgpai22/trimcap/internal/pipeline"
	"github.com/mgpai22/trimcap/internal/silence"
	"github.com/mgpai22/trimcap/internal/subtitle"
)

// Runner processes one request; *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Options struct {
	Addr           string
	PublicURL      string // base for the URLs handed back to clients
	MaxUploadBytes int64
}

type Server struct {
	opts      Options
	workspace *pipeline.Workspace
	runner    Runner
	logger    *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func New(opts Options, ws *pipeline.Workspace, runner Runner, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")

	s := &Server{
		opts:      opts,
		workspace: ws,
		runner:    runner,
		logger:    logger.Named("server"),
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// uploads are large and the pipeline runs inside the request
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/processed/", http.StripPrefix("/processed/", fileServer(s.workspace.ProcessedDir())))
	mux.Handle("/subtitles/", http.StripPrefix("/subtitles/", fileServer(s.workspace.SubtitlesDir())))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.logger.Infow("server listening", "address", listener.Addr().String(), "public_url", s.opts.PublicURL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Infow("server stopped")
	return nil
}

// Addr reports the bound address once listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type uploadResponse struct {
	Message           string             `json:"message"`
	ProcessedVideoURL string             `json:"processedVideoUrl"`
	SubtitlesURL      string             `json:"subtitlesUrl"`
	SRTFileName       string             `json:"srtFileName"`
	NonSilentSegments []silence.Interval `json:"nonSilentSegments"`
	FullText          string             `json:"fullText"`
	Subtitles         []subtitle.Entry   `json:"subtitles"`
	Warning           string             `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		default:
			s.writeError(w, http.StatusBadRequest, "no file received")
		}
		return
	}
	defer file.Close()

	req := s.workspace.NewRequest(filepath.Ext(header.Filename))
	log := s.logger.With("request_id", req.ID)
	log.Infow("upload received", "filename", header.Filename, "size", header.Size)

	if err := saveUpload(file, req.UploadPath); err != nil {
		log.Errorw("failed to store upload", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, log, err)
		return
	}

	resp := uploadResponse{
		Message:           result.Message,
		ProcessedVideoURL: s.publicURL("processed", result.ProcessedPath),
		SubtitlesURL:      s.publicURL("subtitles", result.SRTPath),
		SRTFileName:       result.SRTFileName,
		NonSilentSegments: result.KeepIntervals,
		FullText:          result.FullText,
		Subtitles:         result.Captions,
		Warning:           result.Warning,
	}
	if resp.NonSilentSegments == nil {
		resp.NonSilentSegments = []silence.Interval{}
	}
	if resp.Subtitles == nil {
		resp.Subtitles = []subtitle.Entry{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeRunError(w http.ResponseWriter, log *logging.Logger, err error) {
	if errors.Is(err, pipeline.ErrInputMissing) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Errorw("processing failed", "error", err)
	resp := errorResponse{Error: "video processing failed"}
	if stage, ok := pipeline.FailedStage(err); ok {
		resp.Stage = string(stage)
	}
	s.writeJSON(w, http.StatusInternalServerError, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) publicURL(prefix, path string) string {
	return s.opts.PublicURL + "/" + prefix + "/" + filepath.Base(path)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorw("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func saveUpload(src io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// fileServer serves files from dir without directory listings.
func fileServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
