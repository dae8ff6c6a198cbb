package visualize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpectrograph(t *testing.T) {
	assert.Equal(t, "hello", GenerateSpectrograph())

	in := map[string]any{"sampleRate": 44100, "samples": []float64{0.1, -0.2}}
	samples := []float64{1, 2, 3}
	var missing *int

	assert.Equal(t, "hello", GenerateSpectrograph(42, 3.14, "audio.wav", in, samples, missing, nil))

	// Arguments are never touched.
	assert.Equal(t, map[string]any{"sampleRate": 44100, "samples": []float64{0.1, -0.2}}, in)
	assert.Equal(t, []float64{1, 2, 3}, samples)
}

func TestCall(t *testing.T) {
	assert.Contains(t, Names(), "generateSpectrograph")

	out, err := Call("generateSpectrograph")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = Call("generateSpectrograph", struct{ Width int }{800}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = Call("generateSpectrogram")
	assert.True(t, errors.Is(err, ErrNotExported))
}
