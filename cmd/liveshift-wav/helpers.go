package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	liveshift "github.com/tphakala/go-audio-liveshift"
)

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file         *os.File
	decoder      *wav.Decoder
	rate         int
	channels     int
	bitDepth     int
	totalSamples int64
	format       *audio.Format
}

// openWAVInput opens and validates a WAV file, returning format information.
func openWAVInput(path string, verbose bool) (*wavInputInfo, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	if !supportedBitDepth(bitDepth) {
		_ = inputFile.Close()
		return nil, fmt.Errorf("unsupported bit depth %d (want 16, 24 or 32)", bitDepth)
	}

	if verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit", format.SampleRate, format.NumChannels, bitDepth)
	}

	// Get total duration for progress reporting
	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}

	return &wavInputInfo{
		file:         inputFile,
		decoder:      decoder,
		rate:         format.SampleRate,
		channels:     format.NumChannels,
		bitDepth:     bitDepth,
		totalSamples: int64(duration.Seconds() * float64(format.SampleRate)),
		format:       format,
	}, nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// createWAVOutput creates the output file and encoder.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	if !supportedBitDepth(bitDepth) {
		return nil, fmt.Errorf("unsupported bit depth %d (want 16, 24 or 32)", bitDepth)
	}

	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples writes interleaved samples to the output file.
func (w *wavOutputWriter) WriteSamples(samples []int) error {
	if len(samples) == 0 {
		return nil
	}
	w.buf.Data = samples
	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return w.file.Close()
}

// readBuffer holds the preallocated decode buffers.
type readBuffer struct {
	intBuffer   *audio.IntBuffer
	channelBufs [][]float32
}

func newReadBuffer(channels int, format *audio.Format) *readBuffer {
	channelBufs := make([][]float32, channels)
	for ch := range channels {
		channelBufs[ch] = make([]float32, bufferSize)
	}
	return &readBuffer{
		intBuffer: &audio.IntBuffer{
			Data:   make([]int, bufferSize*channels),
			Format: format,
		},
		channelBufs: channelBufs,
	}
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalSamples int64
	lastProgress int
	verbose      bool
}

func newProgressTracker(totalSamples int64, verbose bool) *progressTracker {
	return &progressTracker{
		totalSamples: totalSamples,
		verbose:      verbose,
	}
}

// reportIfNeeded reports progress if threshold crossed.
func (p *progressTracker) reportIfNeeded(currentSamples int64) {
	if !p.verbose || p.totalSamples == 0 {
		return
	}

	progress := int(float64(currentSamples) / float64(p.totalSamples) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		log.Printf("Progress: %d%%", progress)
		p.lastProgress = progress
	}
}

// shiftOptions are the parsed shifter flags.
type shiftOptions struct {
	window     liveshift.Window
	formant    liveshift.Formant
	mode       liveshift.ChannelMode
	debugLevel int
}

func parseOptions(window, formant, mode string) (shiftOptions, error) {
	var opts shiftOptions
	var err error
	if opts.window, err = liveshift.ParseWindow(window); err != nil {
		return opts, err
	}
	if opts.formant, err = liveshift.ParseFormant(formant); err != nil {
		return opts, err
	}
	if opts.mode, err = liveshift.ParseChannelMode(mode); err != nil {
		return opts, err
	}
	return opts, nil
}

// pitchFromFlags picks the pitch from whichever of -ratio, -semitones or
// -cents was given. Giving more than one is an error; giving none means no
// change.
func pitchFromFlags(set map[string]bool, ratio, semitones, cents float64) (liveshift.PitchSpec, error) {
	var specs []liveshift.PitchSpec
	if set["ratio"] {
		specs = append(specs, liveshift.Ratio(ratio))
	}
	if set["semitones"] {
		specs = append(specs, liveshift.Semitones(semitones))
	}
	if set["cents"] {
		specs = append(specs, liveshift.Cents(cents))
	}

	switch len(specs) {
	case 0:
		return liveshift.Ratio(1), nil
	case 1:
		return specs[0], nil
	default:
		return liveshift.PitchSpec{}, fmt.Errorf("use only one of -ratio, -semitones, -cents")
	}
}

func supportedBitDepth(bitDepth int) bool {
	return bitDepth == bitsPerSample16 || bitDepth == bitsPerSample24 || bitDepth == bitsPerSample32
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// deinterleaveInto converts interleaved int samples into preallocated per-channel buffers.
func deinterleaveInto(data []int, channelBufs [][]float32, numChannels, samplesPerChannel int, invMaxVal float64) {
	for i := range samplesPerChannel {
		base := i * numChannels
		for ch := range numChannels {
			channelBufs[ch][i] = float32(float64(data[base+ch]) * invMaxVal)
		}
	}
}

// interleaveInto converts per-channel float slices into a preallocated int
// buffer, clamping to [-1, 1]. Returns the number of elements written.
func interleaveInto(channels [][]float32, dst []int, maxVal float64) int {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return 0
	}

	numChannels := len(channels)
	samplesPerChannel := len(channels[0])
	totalLen := samplesPerChannel * numChannels
	if len(dst) < totalLen {
		return 0
	}

	for i := range samplesPerChannel {
		base := i * numChannels
		for ch := range numChannels {
			sample := max(-1.0, min(1.0, float64(channels[ch][i])))
			dst[base+ch] = int(sample * maxVal)
		}
	}
	return totalLen
}

// blockStream cuts arbitrary-length planar input into shifter blocks and
// realigns the output: the first StartDelay output samples are dropped and
// Flush feeds silence until every input sample has come out.
type blockStream struct {
	shifter *liveshift.Shifter
	emit    func(block [][]float32) error

	in, out [][]float32
	view    [][]float32
	fill    int
	skip    int

	// pending counts input samples not yet emitted.
	pending int64
	blocks  int64
}

func newBlockStream(shifter *liveshift.Shifter, emit func(block [][]float32) error) *blockStream {
	channels, size := shifter.Channels(), shifter.BlockSize()
	s := &blockStream{
		shifter: shifter,
		emit:    emit,
		in:      make([][]float32, channels),
		out:     make([][]float32, channels),
		view:    make([][]float32, channels),
		skip:    shifter.StartDelay(),
	}
	for ch := range channels {
		s.in[ch] = make([]float32, size)
		s.out[ch] = make([]float32, size)
	}
	return s
}

// Write consumes the first n samples of every channel.
func (s *blockStream) Write(channels [][]float32, n int) error {
	size := s.shifter.BlockSize()
	for off := 0; off < n; {
		k := min(n-off, size-s.fill)
		for ch := range s.in {
			copy(s.in[ch][s.fill:s.fill+k], channels[ch][off:off+k])
		}
		s.fill += k
		off += k
		s.pending += int64(k)

		if s.fill == size {
			if err := s.processBlock(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush pads the partial block with silence and keeps feeding silence until
// all pending samples are emitted.
func (s *blockStream) Flush() error {
	for s.pending > 0 {
		for ch := range s.in {
			clear(s.in[ch][s.fill:])
		}
		s.fill = s.shifter.BlockSize()
		if err := s.processBlock(); err != nil {
			return err
		}
	}
	return nil
}

// Blocks returns the number of blocks processed.
func (s *blockStream) Blocks() int64 {
	return s.blocks
}

func (s *blockStream) processBlock() error {
	if err := s.shifter.ProcessInto(s.in, s.out); err != nil {
		return fmt.Errorf("failed to process block %d: %w", s.blocks, err)
	}
	s.fill = 0
	s.blocks++

	size := s.shifter.BlockSize()
	start := min(s.skip, size)
	s.skip -= start

	n := int(min(int64(size-start), s.pending))
	if n == 0 {
		return nil
	}
	s.pending -= int64(n)

	for ch := range s.out {
		s.view[ch] = s.out[ch][start : start+n]
	}
	return s.emit(s.view)
}
