package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/nzoschke/spectrograph/pkg/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainOptions() Options {
	opts := DefaultOptions()
	opts.ShowTimeMarkers = false
	opts.ShowFrequencyMarkers = false
	return opts
}

func TestFrame_Silence(t *testing.T) {
	opts := plainOptions()
	img := Frame(make([]float64, 1025), 44100, 2048, 0, opts)

	assert.Equal(t, image.Rect(0, 0, 800, 400), img.Bounds())
	for _, p := range []image.Point{{0, 0}, {400, 200}, {799, 399}} {
		assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(p.X, p.Y), "pixel %v", p)
	}
}

func TestFrame_Bar(t *testing.T) {
	opts := plainOptions()
	opts.Width = 100
	opts.Height = 100

	// 512 bins -> maxBin 256 at 44100 Hz
	mag := make([]float64, 513)
	mag[0] = 1      // 0 dB, full height
	mag[128] = 0.01 // -40 dB, 60% height

	img := Frame(mag, 44100, 1024, 0, opts)

	full := YellowRed.Color(1)
	assert.Equal(t, full, img.RGBAAt(0, 0))
	assert.Equal(t, full, img.RGBAAt(0, 99))

	x := 50 // bin 128 of 256 across 100 px
	mid := YellowRed.Color(spectrum.Normalize(spectrum.Decibels(0.01), -100, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(x, 30))
	assert.Equal(t, mid, img.RGBAAt(x, 50))
	assert.Equal(t, mid, img.RGBAAt(x, 99))

	// Bins in the upper half are not drawn.
	mag[400] = 1
	img = Frame(mag, 44100, 1024, 0, opts)
	for x := 51; x < 100; x++ {
		assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(x, 99), "x=%d", x)
	}
}

func TestFrame_Markers(t *testing.T) {
	opts := DefaultOptions()
	silent := Frame(make([]float64, 1025), 44100, 2048, 1.5, opts)

	// Time label is drawn in white near the top left.
	found := false
	for y := 8; y < 24 && !found; y++ {
		for x := 10; x < 100; x++ {
			if silent.RGBAAt(x, y) == (color.RGBA{255, 255, 255, 255}) {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected time label pixels")
}

func TestFrame_TinyInput(t *testing.T) {
	img := Frame([]float64{1}, 44100, 2048, 0, DefaultOptions())
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestImage(t *testing.T) {
	opts := plainOptions()
	opts.Width = 40
	opts.Height = 20

	frames := make([][]float64, 10)
	for i := range frames {
		frames[i] = make([]float64, 9)
	}
	// Loud lowest bin in the second half of the clip.
	for i := 5; i < 10; i++ {
		frames[i][0] = 1
	}
	spec := &spectrum.Spectrogram{Frames: frames, SampleRate: 16, FrameSize: 16, HopSize: 8}

	img := Image(spec, opts)
	require.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())

	loud := YellowRed.Color(1)
	quiet := YellowRed.Color(0)
	assert.Equal(t, quiet, img.RGBAAt(5, 19))
	assert.Equal(t, loud, img.RGBAAt(30, 19))
	assert.Equal(t, quiet, img.RGBAAt(30, 0))
}

func TestImage_Empty(t *testing.T) {
	img := Image(&spectrum.Spectrogram{SampleRate: 44100, FrameSize: 1024, HopSize: 512}, DefaultOptions())
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(10, 10))
}

func TestEncodePNG(t *testing.T) {
	img := Frame(make([]float64, 65), 8000, 128, 0, Options{Width: 32, Height: 16, ColorScheme: Magma, MinDecibels: -90})

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), decoded.Bounds())
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	for _, mutate := range []func(*Options){
		func(o *Options) { o.Width = 0 },
		func(o *Options) { o.Height = MaxDimension + 1 },
		func(o *Options) { o.ColorScheme = "jet" },
		func(o *Options) { o.MinDecibels = 0 },
	} {
		opts := DefaultOptions()
		mutate(&opts)
		assert.True(t, errors.Is(opts.Validate(), ErrInvalidOptions), "%+v", opts)
	}
}

func TestColorSchemes(t *testing.T) {
	s, err := ParseColorScheme("VIRIDIS")
	require.NoError(t, err)
	assert.Equal(t, Viridis, s)

	s, err = ParseColorScheme("")
	require.NoError(t, err)
	assert.Equal(t, YellowRed, s)

	_, err = ParseColorScheme("jet")
	assert.Error(t, err)

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, Grayscale.Color(0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, Grayscale.Color(1))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, Grayscale.Color(3))

	assert.Equal(t, color.RGBA{20, 20, 10, 255}, YellowRed.Color(0))
	assert.Equal(t, color.RGBA{255, 255, 100, 255}, YellowRed.Color(1))

	assert.Equal(t, viridisStops[0], Viridis.Color(0))
	assert.Equal(t, viridisStops[4], Viridis.Color(1))
	assert.Equal(t, magmaStops[2], Magma.Color(0.5))
}

func TestFrequencyTicks(t *testing.T) {
	assert.Equal(t, []float64{1000, 2000, 3000}, frequencyTicks(3500, 800))
	// 1kHz per 10px is too dense; thinned to every 4kHz.
	assert.Equal(t, []float64{4000, 8000}, frequencyTicks(10000, 100))
	assert.Nil(t, frequencyTicks(0, 100))
}
