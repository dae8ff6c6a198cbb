package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/nzoschke/spectrograph/internal/testutil"
	"github.com/nzoschke/spectrograph/pkg/spectrograph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"call", "generateSpectrograph", "song.wav", "44100"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "hello\n", out.String())

	rootCmd.SetArgs([]string{"call", "nope"})
	assert.Error(t, rootCmd.Execute())
}

func TestRunRenderPNG(t *testing.T) {
	path := testutil.WriteWAV(t, "tone.wav", 8000, testutil.DeterministicSine(500, 8000, 0.5, 8000))
	gen := &spectrograph.Generator{}

	require.NoError(t, runRender(context.Background(), gen, path, "png", "", spectrograph.Options{Width: 120, Height: 60}))

	f, err := os.Open(filepath.Join(filepath.Dir(path), "tone.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())

	assert.Error(t, runRender(context.Background(), gen, path, "gif", "", spectrograph.Options{}))
	assert.Error(t, runRender(context.Background(), gen, path, "mp4", "", spectrograph.Options{}))
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, moveFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
