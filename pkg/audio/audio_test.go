package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/nzoschke/spectrograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMonoWAV(t *testing.T) {
	sine := testutil.DeterministicSine(440, 8000, 0.5, 8000)
	path := testutil.WriteWAV(t, "sine.wav", 8000, sine)

	clip, err := LoadMono(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, 8000, clip.SampleRate)
	assert.Equal(t, 1, clip.Channels)
	require.Len(t, clip.Samples, 8000)
	assert.InDelta(t, 1.0, clip.Duration(), 1e-9)

	for _, i := range []int{1, 5, 100, 4321} {
		assert.InDelta(t, sine[i], clip.Samples[i], 1e-3, "sample %d", i)
	}
}

func TestLoadMonoWAVStereoAverages(t *testing.T) {
	left := []float64{0.5, 0.5, -0.25, 1}
	right := []float64{0.5, -0.5, -0.25, 0}
	path := testutil.WriteWAV(t, "stereo.wav", 22050, left, right)

	clip, err := LoadMono(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, clip.Channels)
	require.Len(t, clip.Samples, 4)
	assert.InDelta(t, 0.5, clip.Samples[0], 1e-3)
	assert.InDelta(t, 0.0, clip.Samples[1], 1e-3)
	assert.InDelta(t, -0.25, clip.Samples[2], 1e-3)
	assert.InDelta(t, 0.5, clip.Samples[3], 1e-3)
}

func TestLoadMonoEmpty(t *testing.T) {
	path := testutil.WriteWAV(t, "empty.wav", 44100, []float64{})

	_, err := LoadMono(context.Background(), path, Options{})
	assert.True(t, errors.Is(err, ErrEmptyAudio), "got %v", err)
}

func TestLoadMonoUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o644))

	_, err := LoadMono(context.Background(), path, Options{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "got %v", err)
}

func TestLoadMonoFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	// ffmpeg picks the demuxer from content, so a WAV with another extension converts fine.
	wav := testutil.EncodeWAV(16000, testutil.DeterministicSine(1000, 16000, 0.5, 16000))
	path := filepath.Join(t.TempDir(), "clip.aiff")
	require.NoError(t, os.WriteFile(path, wav, 0o644))

	clip, err := LoadMono(context.Background(), path, Options{FFmpegPath: ffmpeg, TempDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 16000, clip.SampleRate)
	assert.InDelta(t, 16000, len(clip.Samples), 16)
}

func TestLoadMonoFFmpegMissingBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0o644))

	_, err := LoadMono(context.Background(), path, Options{FFmpegPath: filepath.Join(t.TempDir(), "no-ffmpeg")})
	assert.Error(t, err)
}

func TestReadLAMEEncoderDelay(t *testing.T) {
	// Too short to hold a header.
	assert.Equal(t, defaultEncoderDelay, readLAMEEncoderDelay(bytes.NewReader(make([]byte, 10))))

	// No LAME marker.
	assert.Equal(t, defaultEncoderDelay, readLAMEEncoderDelay(bytes.NewReader(make([]byte, 1024))))

	// Delay 576 = 0x240 -> 0x24, 0x0_
	buf := make([]byte, 1024)
	copy(buf[100:], "LAME")
	buf[121] = 0x24
	buf[122] = 0x00
	assert.Equal(t, 576, readLAMEEncoderDelay(bytes.NewReader(buf)))

	buf[121] = 0x06
	buf[122] = 0x90
	assert.Equal(t, 105, readLAMEEncoderDelay(bytes.NewReader(buf)))
}

func TestPCM16StereoToMono(t *testing.T) {
	// left=16384, right=-16384 -> 0; left=right=16384 -> 0.5
	pcm := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x40, 0x00, 0x40, 0xFF}
	samples := pcm16StereoToMono(pcm)
	require.Len(t, samples, 2)
	assert.InDelta(t, 0.0, samples[0], 1e-6)
	assert.InDelta(t, 0.5, samples[1], 1e-6)
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile(".mp3"))
	assert.True(t, IsAudioFile(".WAV"))
	assert.False(t, IsAudioFile(".json"))
	assert.False(t, IsAudioFile(""))
}
