package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgpai22/trimcap/internal/pipeline"
	"github.com/mgpai22/trimcap/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload API",
	Long: `Start the HTTP server.

  POST /upload         multipart field "file"; returns trimmed media and captions
  GET  /processed/...  processed videos
  GET  /subtitles/...  subtitle files
  GET  /healthz        liveness probe

Examples:
  trimcap serve
  trimcap serve --addr :8080 --public-url https://clips.example.com`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addPipelineFlags(serveCmd)
	serveCmd.Flags().
		String("addr", "", "Listen address (server.addr)")
	serveCmd.Flags().
		String("public-url", "", "Base URL used in response links (server.public_url)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("public-url") {
		cfg.Server.PublicURL, _ = cmd.Flags().GetString("public-url")
	}
	if err := applyPipelineFlags(cmd, cfg); err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := pipeline.NewWorkspace(cfg.Storage.Root)
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(ctx, cfg, pipelineConfig(cfg), ws, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Addr:           cfg.Server.Addr,
		PublicURL:      cfg.Server.PublicURL,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	}, ws, orch, logger)

	logger.Infow("Starting server",
		"addr", cfg.Server.Addr,
		"storage", ws.Root(),
		"provider", cfg.Transcribe.Provider,
	)
	return srv.ListenAndServe(ctx)
}
