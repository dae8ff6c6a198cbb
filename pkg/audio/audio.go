// Package audio decodes audio files into mono float32 samples.
package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when a file can't be decoded natively and no ffmpeg is available.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEmptyAudio is returned when a file decodes to zero samples.
	ErrEmptyAudio = errors.New("audio contains no samples")
)

// Clip is decoded mono audio.
type Clip struct {
	Samples    []float32 // Samples are mono, normalized to [-1, 1].
	SampleRate int       // SampleRate is in Hz.
	Channels   int       // Channels is the channel count of the source before mixing.
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Float64 returns the samples widened to float64.
func (c *Clip) Float64() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = float64(s)
	}
	return out
}

// Options controls decoding of formats that need conversion.
type Options struct {
	FFmpegPath string // FFmpegPath converts non WAV/MP3 input. Empty disables conversion.
	TempDir    string // TempDir holds intermediate files. Empty uses os.TempDir.
}

// LoadMono loads an audio file and returns it mixed down to mono.
func LoadMono(ctx context.Context, path string, opts Options) (*Clip, error) {
	var (
		clip *Clip
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		clip, err = loadMP3Mono(path)
	case ".wav":
		clip, err = loadWAVMono(path)
	default:
		if opts.FFmpegPath == "" {
			return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
		}
		clip, err = convertAndLoad(ctx, path, opts)
	}
	if err != nil {
		return nil, err
	}

	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyAudio)
	}
	return clip, nil
}

// IsAudioFile returns true if the extension is a supported audio format.
func IsAudioFile(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp3", ".m4a", ".aac", ".wav", ".flac", ".ogg", ".aiff":
		return true
	default:
		return false
	}
}
