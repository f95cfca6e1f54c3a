package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const (
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// go-mp3 always decodes to 16-bit little-endian stereo.
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

// clip is a fully decoded audio file in planar float32.
type clip struct {
	name       string
	sampleRate int
	samples    [][]float32
}

// Channels returns the channel count.
func (c *clip) Channels() int {
	return len(c.samples)
}

// Frames returns the number of samples per channel.
func (c *clip) Frames() int {
	if len(c.samples) == 0 {
		return 0
	}
	return len(c.samples[0])
}

// loadClip decodes a WAV or MP3 file, chosen by extension.
func loadClip(path string) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var c *clip
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		c, err = loadWAV(f)
	case ".mp3":
		c, err = loadMP3(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .wav or .mp3)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Frames() == 0 {
		return nil, fmt.Errorf("%s: no audio data", path)
	}
	c.name = filepath.Base(path)
	return c, nil
}

func loadWAV(r io.ReadSeeker) (*clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	var maxVal float64
	switch int(decoder.BitDepth) {
	case bitsPerSample16:
		maxVal = maxInt16
	case bitsPerSample24:
		maxVal = maxInt24
	case bitsPerSample32:
		maxVal = maxInt32
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", decoder.BitDepth)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	frames := len(buf.Data) / channels
	samples := make([][]float32, channels)
	for ch := range samples {
		samples[ch] = make([]float32, frames)
	}
	invMaxVal := 1 / maxVal
	for i := range frames {
		for ch := range channels {
			samples[ch][i] = float32(float64(buf.Data[i*channels+ch]) * invMaxVal)
		}
	}

	return &clip{sampleRate: buf.Format.SampleRate, samples: samples}, nil
}

func loadMP3(r io.Reader) (*clip, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	return &clip{sampleRate: decoder.SampleRate(), samples: decodeStereo16(pcm)}, nil
}

// decodeStereo16 converts interleaved 16-bit little-endian stereo PCM to
// planar float32. A trailing partial frame is dropped.
func decodeStereo16(pcm []byte) [][]float32 {
	const frameBytes = mp3Channels * mp3BytesPerSample

	frames := len(pcm) / frameBytes
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range frames {
		off := i * frameBytes
		left[i] = float32(float64(int16(binary.LittleEndian.Uint16(pcm[off:]))) / maxInt16)
		right[i] = float32(float64(int16(binary.LittleEndian.Uint16(pcm[off+mp3BytesPerSample:]))) / maxInt16)
	}
	return [][]float32{left, right}
}
