// Package spectrum frames, windows and transforms audio into magnitude spectra.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// ErrInvalidConfig is returned for unusable frame or hop sizes.
var ErrInvalidConfig = errors.New("invalid spectrum config")

// MaxFrameSize bounds the FFT size.
const MaxFrameSize = 1 << 16

// WindowType selects the analysis window.
type WindowType string

const (
	WindowHann        WindowType = "hann"
	WindowHamming     WindowType = "hamming"
	WindowBlackman    WindowType = "blackman"
	WindowRectangular WindowType = "rectangular"
)

// ParseWindow returns the window type for name. An empty name is Hann.
func ParseWindow(name string) (WindowType, error) {
	switch w := WindowType(strings.ToLower(strings.TrimSpace(name))); w {
	case "":
		return WindowHann, nil
	case WindowHann, WindowHamming, WindowBlackman, WindowRectangular:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window %q: %w", name, ErrInvalidConfig)
	}
}

// Config describes parameters for STFT computation.
type Config struct {
	FrameSize int        // FFT window size in samples, a power of two.
	HopSize   int        // Samples between successive frames.
	Window    WindowType // Analysis window, Hann when empty.
}

// DefaultConfig returns a 2048 sample Hann window with 50% overlap.
func DefaultConfig() Config {
	return Config{FrameSize: 2048, HopSize: 1024, Window: WindowHann}
}

// Validate checks the frame and hop sizes.
func (c Config) Validate() error {
	if c.FrameSize < 16 || c.FrameSize > MaxFrameSize || c.FrameSize&(c.FrameSize-1) != 0 {
		return fmt.Errorf("frame size must be a power of two in 16..%d, got %d: %w", MaxFrameSize, c.FrameSize, ErrInvalidConfig)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("hop size must be positive, got %d: %w", c.HopSize, ErrInvalidConfig)
	}
	if _, err := ParseWindow(string(c.Window)); err != nil {
		return err
	}
	return nil
}

// Spectrogram is a sequence of one-sided magnitude spectra.
type Spectrogram struct {
	Frames     [][]float64 // Frames is [frame][bin] linear magnitude.
	SampleRate int
	FrameSize  int
	HopSize    int
}

// Bins returns the number of frequency bins per frame.
func (s *Spectrogram) Bins() int {
	return s.FrameSize/2 + 1
}

// BinHz returns the width of one frequency bin.
func (s *Spectrogram) BinHz() float64 {
	return BinHz(s.SampleRate, s.FrameSize)
}

// FrameTime returns the start time of frame i in seconds.
func (s *Spectrogram) FrameTime(i int) float64 {
	return float64(i*s.HopSize) / float64(s.SampleRate)
}

// BinHz returns the frequency spacing of an FFT of frameSize at sampleRate.
func BinHz(sampleRate, frameSize int) float64 {
	return float64(sampleRate) / float64(frameSize)
}

// Analyzer computes windowed magnitude spectra. It is not safe for concurrent use.
type Analyzer struct {
	cfg    Config
	window []float64
	scale  float64
	fft    *fourier.FFT
	frame  []float64
	coeffs []complex128
}

// NewAnalyzer validates cfg and prepares the window and FFT plan.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.Window == "" {
		cfg.Window = WindowHann
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := makeWindow(cfg.Window, cfg.FrameSize)
	sum := 0.0
	for _, v := range w {
		sum += v
	}

	return &Analyzer{
		cfg:    cfg,
		window: w,
		scale:  2 / sum,
		fft:    fourier.NewFFT(cfg.FrameSize),
		frame:  make([]float64, cfg.FrameSize),
		coeffs: make([]complex128, cfg.FrameSize/2+1),
	}, nil
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Frame returns the magnitude spectrum of FrameSize samples starting at start.
// Samples past the end of the input are treated as zero.
// Magnitudes are scaled so a full scale sine centred on a bin reads 1.
func (a *Analyzer) Frame(samples []float64, start int) []float64 {
	for j := range a.frame {
		a.frame[j] = 0
	}
	for j := 0; j < a.cfg.FrameSize && start+j < len(samples); j++ {
		if start+j >= 0 {
			a.frame[j] = samples[start+j] * a.window[j]
		}
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	numBins := len(a.coeffs)
	out := make([]float64, numBins)
	for j, c := range a.coeffs {
		s := a.scale
		if j == 0 || j == numBins-1 {
			s = a.scale / 2 // DC and Nyquist aren't doubled
		}
		out[j] = math.Hypot(real(c), imag(c)) * s
	}
	return out
}

// STFT computes frames every HopSize samples from the start of samples.
func (a *Analyzer) STFT(samples []float64, sampleRate int) *Spectrogram {
	numFrames := (len(samples) + a.cfg.HopSize - 1) / a.cfg.HopSize

	frames := make([][]float64, numFrames)
	for i := range frames {
		frames[i] = a.Frame(samples, i*a.cfg.HopSize)
	}

	return &Spectrogram{
		Frames:     frames,
		SampleRate: sampleRate,
		FrameSize:  a.cfg.FrameSize,
		HopSize:    a.cfg.HopSize,
	}
}

// makeWindow generates window coefficients of the given size.
func makeWindow(t WindowType, size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 1
	}

	switch t {
	case WindowHamming:
		return window.Hamming(w)
	case WindowBlackman:
		return window.Blackman(w)
	case WindowRectangular:
		return window.Rectangular(w)
	default:
		return window.Hann(w)
	}
}
