package video

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nzoschke/spectrograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameName(t *testing.T) {
	assert.Equal(t, "frame-000000.png", FrameName(0))
	assert.Equal(t, "frame-001234.png", FrameName(1234))
}

func TestArgs(t *testing.T) {
	e := NewEncoder("")
	args := e.Args("/tmp/frames", "/tmp/in.wav", 30, "/tmp/out.mp4")

	assert.Equal(t, []string{
		"-y", "-v", "error",
		"-framerate", "30",
		"-i", filepath.Join("/tmp/frames", "frame-%06d.png"),
		"-i", "/tmp/in.wav",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-shortest",
		"/tmp/out.mp4",
	}, args)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewEncoder("ffmpeg").Validate())

	for _, e := range []*Encoder{
		{CRF: -1, Preset: "fast"},
		{CRF: 52, Preset: "fast"},
		{CRF: 23, Preset: "warp"},
		{CRF: 23},
	} {
		assert.True(t, errors.Is(e.Validate(), ErrInvalidOptions), "%+v", e)
	}
}

func TestEncodeRejectsBadFPS(t *testing.T) {
	err := NewEncoder("ffmpeg").Encode(context.Background(), t.TempDir(), "in.wav", 0, "out.mp4")
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}

// requireX264 skips unless an ffmpeg with libx264 and aac encoders is on PATH.
func requireX264(t *testing.T) string {
	t.Helper()

	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	out, err := exec.Command(ffmpeg, "-hide_banner", "-encoders").Output()
	if err != nil || !strings.Contains(string(out), "libx264") || !strings.Contains(string(out), " aac ") {
		t.Skip("ffmpeg without libx264/aac")
	}
	return ffmpeg
}

func TestEncode(t *testing.T) {
	ffmpeg := requireX264(t)

	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(frames, 0o755))

	for i := range 10 {
		img := image.NewRGBA(image.Rect(0, 0, 64, 32))
		img.SetRGBA(i, i, color.RGBA{255, 0, 0, 255})
		f, err := os.Create(filepath.Join(frames, FrameName(i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	audio := testutil.WriteWAV(t, "in.wav", 8000, testutil.DeterministicSine(440, 8000, 0.5, 8000))
	out := filepath.Join(dir, "out.mp4")

	e := NewEncoder(ffmpeg)
	e.Preset = "ultrafast"
	require.NoError(t, e.Encode(context.Background(), frames, audio, 10, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestEncodeFailureIncludesStderr(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	dir := t.TempDir()
	err = NewEncoder(ffmpeg).Encode(context.Background(), dir, filepath.Join(dir, "missing.wav"), 30, filepath.Join(dir, "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg encode failed")
}
