// Package video muxes rendered PNG frames and the source audio into MP4 with ffmpeg.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidOptions is returned for unusable encoder settings.
var ErrInvalidOptions = errors.New("invalid video options")

// Presets are the x264 speed presets accepted by Encoder.
var Presets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

const (
	DefaultCRF    = 23
	DefaultPreset = "fast"
	framePattern  = "frame-%06d.png"
)

// FrameName returns the file name of frame i inside a frames directory.
func FrameName(i int) string {
	return fmt.Sprintf(framePattern, i)
}

// Encoder runs ffmpeg to produce H.264 video.
type Encoder struct {
	FFmpegPath string // FFmpegPath defaults to "ffmpeg" on PATH.
	CRF        int    // CRF is 0..51, lower is better quality.
	Preset     string // Preset is one of Presets.
}

// NewEncoder returns an encoder with the default CRF and preset.
func NewEncoder(ffmpegPath string) *Encoder {
	return &Encoder{FFmpegPath: ffmpegPath, CRF: DefaultCRF, Preset: DefaultPreset}
}

// Validate checks the CRF and preset.
func (e *Encoder) Validate() error {
	if e.CRF < 0 || e.CRF > 51 {
		return fmt.Errorf("crf %d out of range 0..51: %w", e.CRF, ErrInvalidOptions)
	}
	if !slices.Contains(Presets, e.Preset) {
		return fmt.Errorf("unknown preset %q: %w", e.Preset, ErrInvalidOptions)
	}
	return nil
}

// Args returns the ffmpeg arguments to mux framesDir and audioPath into out.
func (e *Encoder) Args(framesDir, audioPath string, fps int, out string) []string {
	return []string{
		"-y", "-v", "error",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(framesDir, framePattern),
		"-i", audioPath,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", e.Preset,
		"-crf", strconv.Itoa(e.CRF),
		"-c:a", "aac",
		"-shortest",
		out,
	}
}

// Encode muxes the frames in framesDir with audioPath into out.
func (e *Encoder) Encode(ctx context.Context, framesDir, audioPath string, fps int, out string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d: %w", fps, ErrInvalidOptions)
	}

	bin := e.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, e.Args(framesDir, audioPath, fps, out)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ffmpeg encode failed: %s", msg)
	}
	return nil
}
