// Package render draws magnitude spectra as images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/nzoschke/spectrograph/pkg/spectrum"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrInvalidOptions is returned for unusable render options.
var ErrInvalidOptions = errors.New("invalid render options")

// MaxDimension bounds the width and height of rendered images.
const MaxDimension = 8192

// Options controls image size, colour and annotations.
type Options struct {
	Width                int
	Height               int
	ColorScheme          ColorScheme
	MinDecibels          float64
	MaxDecibels          float64
	ShowTimeMarkers      bool
	ShowFrequencyMarkers bool
}

// DefaultOptions returns an 800x400 yellowRed render over -100..0 dB with markers.
func DefaultOptions() Options {
	return Options{
		Width:                800,
		Height:               400,
		ColorScheme:          YellowRed,
		MinDecibels:          -100,
		MaxDecibels:          0,
		ShowTimeMarkers:      true,
		ShowFrequencyMarkers: true,
	}
}

// Validate checks dimensions, colour scheme and dB range.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 || o.Width > MaxDimension || o.Height > MaxDimension {
		return fmt.Errorf("size %dx%d out of range: %w", o.Width, o.Height, ErrInvalidOptions)
	}
	if _, err := ParseColorScheme(string(o.ColorScheme)); err != nil {
		return err
	}
	if o.MinDecibels >= o.MaxDecibels {
		return fmt.Errorf("min decibels %.1f must be below max %.1f: %w", o.MinDecibels, o.MaxDecibels, ErrInvalidOptions)
	}
	return nil
}

var (
	background = color.RGBA{0, 0, 0, 255}
	labelGray  = color.RGBA{128, 128, 128, 255}
	labelWhite = color.RGBA{255, 255, 255, 255}
)

// labelSpacing is the minimum distance in pixels between frequency labels.
const labelSpacing = 40

// Frame draws one spectrum as vertical bars, low frequencies on the left.
// Only the lower part of the spectrum is shown: bins below min(len(mag)/2, sampleRate/4).
func Frame(mag []float64, sampleRate, frameSize int, t float64, opts Options) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	maxBin := min(len(mag)/2, sampleRate/4)
	if maxBin < 1 {
		return img
	}

	binWidth := float64(opts.Width) / float64(maxBin)
	for i := range maxBin {
		level := spectrum.Normalize(spectrum.Decibels(mag[i]), opts.MinDecibels, opts.MaxDecibels)
		h := int(math.Round(level * float64(opts.Height)))
		if h == 0 {
			continue
		}

		x0 := int(float64(i) * binWidth)
		x1 := max(int(math.Ceil(float64(i+1)*binWidth)), x0+1)
		bar := image.Rect(x0, opts.Height-h, x1, opts.Height)
		draw.Draw(img, bar, image.NewUniform(opts.ColorScheme.Color(level)), image.Point{}, draw.Src)
	}

	if opts.ShowFrequencyMarkers {
		maxFreq := float64(maxBin) * spectrum.BinHz(sampleRate, frameSize)
		for _, f := range frequencyTicks(maxFreq, float64(opts.Width)) {
			x := int(f / maxFreq * float64(opts.Width))
			drawText(img, fmt.Sprintf("%dkHz", int(math.Round(f/1000))), x+2, opts.Height-5, labelGray)
		}
	}

	if opts.ShowTimeMarkers {
		drawText(img, fmt.Sprintf("Time: %.1fs", t), 10, 20, labelWhite)
	}

	return img
}

// Image draws a whole spectrogram: time left to right, frequency bottom to top.
func Image(spec *spectrum.Spectrogram, opts Options) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	numFrames := len(spec.Frames)
	if numFrames == 0 {
		return img
	}
	numBins := len(spec.Frames[0])

	for x := range opts.Width {
		frame := spec.Frames[x*numFrames/opts.Width]
		for y := range opts.Height {
			bin := (opts.Height - 1 - y) * numBins / opts.Height
			level := spectrum.Normalize(spectrum.Decibels(frame[bin]), opts.MinDecibels, opts.MaxDecibels)
			img.SetRGBA(x, y, opts.ColorScheme.Color(level))
		}
	}

	if opts.ShowFrequencyMarkers {
		maxFreq := float64(numBins-1) * spec.BinHz()
		for _, f := range frequencyTicks(maxFreq, float64(opts.Height)) {
			y := opts.Height - int(f/maxFreq*float64(opts.Height))
			drawText(img, fmt.Sprintf("%dkHz", int(math.Round(f/1000))), 5, y, labelGray)
		}
	}

	if opts.ShowTimeMarkers {
		duration := spec.FrameTime(numFrames)
		step := timeStep(duration, float64(opts.Width))
		for sec := step; sec < duration; sec += step {
			x := int(sec / duration * float64(opts.Width))
			drawText(img, fmt.Sprintf("%gs", sec), x+2, opts.Height-5, labelWhite)
		}
	}

	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// frequencyTicks returns 1kHz multiples below maxFreq, thinned to fit extent pixels.
func frequencyTicks(maxFreq, extent float64) []float64 {
	if maxFreq <= 0 || extent <= 0 {
		return nil
	}

	step := 1000.0
	for step/maxFreq*extent < labelSpacing {
		step += 1000
	}

	var ticks []float64
	for f := step; f < maxFreq; f += step {
		ticks = append(ticks, f)
	}
	return ticks
}

// timeStep picks a whole number of seconds between time labels.
func timeStep(duration, extent float64) float64 {
	if duration <= 0 {
		return 1
	}
	for _, step := range []float64{1, 2, 5, 10, 15, 30, 60, 120, 300, 600} {
		if step/duration*extent >= labelSpacing*2 {
			return step
		}
	}
	return 1200
}

func drawText(img draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
