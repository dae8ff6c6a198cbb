package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// convertAndLoad converts path to 16-bit PCM WAV with ffmpeg and decodes the result.
func convertAndLoad(ctx context.Context, path string, opts Options) (*Clip, error) {
	dir, err := os.MkdirTemp(opts.TempDir, "audio-convert-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "audio.wav")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, opts.FFmpegPath,
		"-y", "-v", "error",
		"-i", path,
		"-f", "wav", "-acodec", "pcm_s16le",
		out,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg conversion failed: %s", msg)
	}

	return loadWAVMono(out)
}
