package ffmpeg

import (
	"context"
	"errors"
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Run executes a stream with the resolved ffmpeg binary, killing the process
// when ctx is cancelled.
func Run(ctx context.Context, stream *ffmpeg.Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ffmpegPath, err := FFmpegPath()
	if err != nil {
		return err
	}

	cmd := stream.OverWriteOutput().SetFfmpegPath(ffmpegPath).Compile()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return errors.Join(ctx.Err(), errors.New("ffmpeg killed"))
	}
}
