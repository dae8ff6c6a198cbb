package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/mjibson/go-dsp/wav"
)

// wavChunk is the number of interleaved samples read per call.
const wavChunk = 1 << 16

// loadWAVMono loads a WAV file and averages its channels into mono.
func loadWAVMono(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return decodeWAVMono(f)
}

func decodeWAVMono(r io.Reader) (*Clip, error) {
	w, err := wav.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	channels := int(w.NumChannels)
	if channels < 1 {
		return nil, fmt.Errorf("invalid WAV channel count: %d", channels)
	}

	interleaved := make([]float32, 0, w.Samples)
	for remaining := w.Samples; remaining > 0; {
		n := min(remaining, wavChunk)
		chunk, err := w.ReadFloats(n)
		if err != nil {
			return nil, fmt.Errorf("failed to decode WAV: %w", err)
		}
		interleaved = append(interleaved, chunk...)
		remaining -= n
	}

	return &Clip{
		Samples:    mixToMono(interleaved, channels),
		SampleRate: int(w.SampleRate),
		Channels:   channels,
	}, nil
}

// mixToMono averages interleaved frames of the given channel count.
func mixToMono(interleaved []float32, channels int) []float32 {
	if channels == 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
