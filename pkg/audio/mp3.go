package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// Additional samples that go-mp3 produces compared to a browser decoder.
const goMP3DecoderDelay = 924

// Default encoder delay if we can't read it from the LAME header
const defaultEncoderDelay = 576

// readLAMEEncoderDelay reads the encoder delay from the LAME/Xing header if present.
func readLAMEEncoderDelay(r io.Reader) int {
	buf := make([]byte, 4096)
	n, err := io.ReadFull(r, buf)
	if n < 200 || (err != nil && err != io.ErrUnexpectedEOF) {
		return defaultEncoderDelay
	}
	buf = buf[:n]

	lameIdx := bytes.Index(buf, []byte("LAME"))
	if lameIdx == -1 {
		return defaultEncoderDelay
	}

	// 12 bit delay followed by 12 bit padding, 21 bytes after the marker
	delayOffset := lameIdx + 21
	if delayOffset+3 > len(buf) {
		return defaultEncoderDelay
	}

	b := buf[delayOffset : delayOffset+3]
	delay := (int(b[0]) << 4) | (int(b[1]) >> 4)
	if delay > 4096 {
		return defaultEncoderDelay
	}

	return delay
}

// loadMP3Mono loads an MP3 file and returns mono samples with encoder and decoder delay trimmed.
func loadMP3Mono(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	totalDelay := readLAMEEncoderDelay(f) + goMP3DecoderDelay
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	// 16-bit signed stereo, interleaved
	pcmData, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	samples := pcm16StereoToMono(pcmData)
	if len(samples) > totalDelay {
		samples = samples[totalDelay:]
	}

	return &Clip{
		Samples:    samples,
		SampleRate: decoder.SampleRate(),
		Channels:   2,
	}, nil
}

// pcm16StereoToMono mixes little endian 16-bit stereo pairs into normalized mono.
func pcm16StereoToMono(pcm []byte) []float32 {
	numSamplePairs := len(pcm) / 4
	samples := make([]float32, numSamplePairs)

	for i := range numSamplePairs {
		offset := i * 4
		left := int16(binary.LittleEndian.Uint16(pcm[offset:]))
		right := int16(binary.LittleEndian.Uint16(pcm[offset+2:]))

		mono := (float32(left) + float32(right)) / 2.0
		samples[i] = mono / 32768.0
	}

	return samples
}
