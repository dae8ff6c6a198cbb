package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// EncodeWAV encodes channel data as a 16-bit PCM WAV file.
// All channels must have the same length.
func EncodeWAV(sampleRate int, channels ...[]float64) []byte {
	numChannels := len(channels)
	frames := 0
	if numChannels > 0 {
		frames = len(channels[0])
	}
	dataSize := frames * numChannels * 2

	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("RIFF")
	binary.Write(&b, le, uint32(36+dataSize))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, le, uint32(16))
	binary.Write(&b, le, uint16(1)) // PCM
	binary.Write(&b, le, uint16(numChannels))
	binary.Write(&b, le, uint32(sampleRate))
	binary.Write(&b, le, uint32(sampleRate*numChannels*2))
	binary.Write(&b, le, uint16(numChannels*2))
	binary.Write(&b, le, uint16(16))
	b.WriteString("data")
	binary.Write(&b, le, uint32(dataSize))

	for i := range frames {
		for _, ch := range channels {
			v := math.Max(-1, math.Min(1, ch[i]))
			binary.Write(&b, le, int16(math.Round(v*32767)))
		}
	}
	return b.Bytes()
}

// WriteWAV writes a 16-bit PCM WAV into t.TempDir and returns its path.
func WriteWAV(t testing.TB, name string, sampleRate int, channels ...[]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, EncodeWAV(sampleRate, channels...), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}
