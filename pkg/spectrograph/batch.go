package spectrograph

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nzoschke/spectrograph/pkg/audio"
	"github.com/nzoschke/spectrograph/pkg/render"
	"github.com/nzoschke/spectrograph/pkg/spectrum"
)

// Summary is the JSON sidecar written next to each rendered track.
type Summary struct {
	File          string    `json:"file"`
	Duration      float64   `json:"duration"`
	SampleRate    int       `json:"sample_rate"`
	Channels      int       `json:"channels"`
	FrameSize     int       `json:"frame_size"`
	HopSize       int       `json:"hop_size"`
	Frames        int       `json:"frames"`
	PeakFrequency float64   `json:"peak_frequency"` // PeakFrequency is the loudest bin of the mean spectrum, in Hz.
	Image         string    `json:"image"`
	Waveform      *Waveform `json:"waveform,omitempty"`
}

// Waveform contains downsampled waveform data for visualization.
type Waveform struct {
	PixelsPerSec int       `json:"pixels_per_sec"`
	Peaks        []float64 `json:"peaks"`
	Troughs      []float64 `json:"troughs"`
}

// Sidecars returns the PNG and JSON sidecar paths for an audio file.
func Sidecars(audioPath string) (pngPath, jsonPath string) {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	return base + ".png", base + ".json"
}

// Summarize describes a decoded clip and its spectrogram.
func Summarize(audioPath string, clip *audio.Clip, spec *spectrum.Spectrogram) *Summary {
	pngPath, _ := Sidecars(audioPath)
	s := &Summary{
		File:       filepath.Base(audioPath),
		Duration:   clip.Duration(),
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
		FrameSize:  spec.FrameSize,
		HopSize:    spec.HopSize,
		Frames:     len(spec.Frames),
		Image:      filepath.Base(pngPath),
	}

	if len(spec.Frames) > 0 {
		mean := make([]float64, len(spec.Frames[0]))
		for _, frame := range spec.Frames {
			for j, m := range frame {
				mean[j] += m
			}
		}
		peak := 0
		for j := range mean {
			if mean[j] > mean[peak] {
				peak = j
			}
		}
		s.PeakFrequency = float64(peak) * spec.BinHz()
	}

	if w, err := GenerateWaveform(clip, 100); err == nil {
		s.Waveform = w
	}
	return s
}

// GenerateWaveform creates downsampled waveform data for visualization.
// pixelsPerSec controls the resolution (e.g., 100 = 100 data points per second).
func GenerateWaveform(clip *audio.Clip, pixelsPerSec int) (*Waveform, error) {
	if pixelsPerSec <= 0 {
		return nil, fmt.Errorf("pixels per second must be positive, got %d", pixelsPerSec)
	}
	samples := clip.Samples

	samplesPerPixel := max(clip.SampleRate/pixelsPerSec, 1)
	numPixels := len(samples) / samplesPerPixel
	if numPixels == 0 {
		return nil, fmt.Errorf("audio too short")
	}

	peaks := make([]float64, numPixels)
	troughs := make([]float64, numPixels)

	for i := range numPixels {
		start := i * samplesPerPixel
		end := min(start+samplesPerPixel, len(samples))

		maxVal := float32(-1.0)
		minVal := float32(1.0)
		for _, s := range samples[start:end] {
			maxVal = max(maxVal, s)
			minVal = min(minVal, s)
		}

		peaks[i] = float64(maxVal)
		troughs[i] = float64(minVal)
	}

	return &Waveform{
		PixelsPerSec: pixelsPerSec,
		Peaks:        peaks,
		Troughs:      troughs,
	}, nil
}

// RenderFile writes the PNG and JSON sidecars for one audio file.
func (g *Generator) RenderFile(ctx context.Context, audioPath string, opts Options) (*Summary, error) {
	opts = opts.Normalize()
	clip, spec, err := g.Spectrogram(ctx, audioPath, opts)
	if err != nil {
		return nil, err
	}

	pngPath, jsonPath := Sidecars(audioPath)
	if err := writePNG(pngPath, render.Image(spec, opts.renderOptions())); err != nil {
		return nil, fmt.Errorf("write PNG: %w", err)
	}

	summary := Summarize(audioPath, clip, spec)
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write JSON: %w", err)
	}
	return summary, nil
}

// RenderDir recursively renders sidecars for all audio files in dir.
// If force is false, files that already have a PNG sidecar are skipped.
// Per-file failures are reported and do not stop the walk.
func (g *Generator) RenderDir(ctx context.Context, dir string, opts Options, force bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !audio.IsAudioFile(filepath.Ext(path)) {
			return nil
		}

		pngPath, _ := Sidecars(path)
		if !force {
			if _, err := os.Stat(pngPath); err == nil {
				g.logf("Skipping %s (already rendered)", filepath.Base(path))
				return nil
			}
		}

		g.logf("Rendering %s...", filepath.Base(path))

		summary, err := g.RenderFile(ctx, path, opts)
		if err != nil {
			g.logf("  Error: %v", err)
			return nil
		}

		g.logf("  Duration: %.1fs, %d frames, peak %.0f Hz", summary.Duration, summary.Frames, summary.PeakFrequency)
		return nil
	})
}
