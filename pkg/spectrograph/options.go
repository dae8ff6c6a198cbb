// Package spectrograph turns audio files into spectrogram images and spectrum videos.
package spectrograph

import (
	"errors"
	"fmt"

	"github.com/nzoschke/spectrograph/pkg/render"
	"github.com/nzoschke/spectrograph/pkg/spectrum"
	"github.com/nzoschke/spectrograph/pkg/video"
)

// ErrInvalidOptions wraps every option validation failure.
var ErrInvalidOptions = errors.New("invalid spectrograph options")

// MaxFPS bounds the video frame rate.
const MaxFPS = 120

// Options configures spectrogram generation.
type Options struct {
	FrameSize int                 // FFT window size in samples, a power of two.
	HopSize   int                 // Samples between STFT frames for still images.
	Window    spectrum.WindowType // Analysis window.

	Width  int // Output width in pixels.
	Height int // Output height in pixels.
	FPS    int // Video frames per second.

	// SampleRate overrides the decoded sample rate when positive.
	SampleRate int

	ColorScheme          render.ColorScheme
	MinDecibels          float64
	MaxDecibels          float64
	ShowTimeMarkers      bool
	ShowFrequencyMarkers bool

	CRF    int    // Video quality 0..51, lower is better.
	Preset string // x264 preset.
}

// DefaultOptions returns the defaults used for uploads and the CLI.
func DefaultOptions() Options {
	r := render.DefaultOptions()
	return Options{
		FrameSize:            2048,
		HopSize:              1024,
		Window:               spectrum.WindowHann,
		Width:                r.Width,
		Height:               r.Height,
		FPS:                  30,
		ColorScheme:          r.ColorScheme,
		MinDecibels:          r.MinDecibels,
		MaxDecibels:          r.MaxDecibels,
		ShowTimeMarkers:      true,
		ShowFrequencyMarkers: true,
		CRF:                  video.DefaultCRF,
		Preset:               video.DefaultPreset,
	}
}

// Normalize replaces zero values with defaults. Booleans are left as set.
// A zero CRF or MinDecibels also falls back to the default.
func (o Options) Normalize() Options {
	d := DefaultOptions()
	if o.FrameSize == 0 {
		o.FrameSize = d.FrameSize
	}
	if o.HopSize == 0 {
		o.HopSize = d.HopSize
	}
	if o.Window == "" {
		o.Window = d.Window
	}
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Height == 0 {
		o.Height = d.Height
	}
	if o.FPS == 0 {
		o.FPS = d.FPS
	}
	if o.ColorScheme == "" {
		o.ColorScheme = d.ColorScheme
	}
	if o.MinDecibels == 0 {
		o.MinDecibels = d.MinDecibels
	}
	if o.CRF == 0 {
		o.CRF = d.CRF
	}
	if o.Preset == "" {
		o.Preset = d.Preset
	}
	return o
}

// Validate checks all settings needed for a still image.
func (o Options) Validate() error {
	if err := o.spectrumConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if err := o.renderOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.SampleRate < 0 {
		return fmt.Errorf("%w: sample rate must not be negative", ErrInvalidOptions)
	}
	return nil
}

// ValidateFrames checks Validate plus the frame rate.
func (o Options) ValidateFrames() error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.FPS <= 0 || o.FPS > MaxFPS {
		return fmt.Errorf("%w: fps must be in 1..%d, got %d", ErrInvalidOptions, MaxFPS, o.FPS)
	}
	return nil
}

// ValidateVideo checks ValidateFrames plus encoder settings.
func (o Options) ValidateVideo() error {
	if err := o.ValidateFrames(); err != nil {
		return err
	}
	// yuv420p needs even dimensions
	if o.Width%2 != 0 || o.Height%2 != 0 {
		return fmt.Errorf("%w: video size must be even, got %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	if err := o.encoder("").Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

func (o Options) spectrumConfig() spectrum.Config {
	return spectrum.Config{FrameSize: o.FrameSize, HopSize: o.HopSize, Window: o.Window}
}

func (o Options) renderOptions() render.Options {
	return render.Options{
		Width:                o.Width,
		Height:               o.Height,
		ColorScheme:          o.ColorScheme,
		MinDecibels:          o.MinDecibels,
		MaxDecibels:          o.MaxDecibels,
		ShowTimeMarkers:      o.ShowTimeMarkers,
		ShowFrequencyMarkers: o.ShowFrequencyMarkers,
	}
}

func (o Options) encoder(ffmpegPath string) *video.Encoder {
	return &video.Encoder{FFmpegPath: ffmpegPath, CRF: o.CRF, Preset: o.Preset}
}
