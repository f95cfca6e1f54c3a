// Command liveshift-wav pitch-shifts WAV audio files.
//
// Usage:
//
//	liveshift-wav -semitones 3 input.wav output.wav
//	liveshift-wav -cents -50 -formant preserved voice.wav voice_down.wav
//	liveshift-wav -ratio 1.5 -window medium -channels together music.wav out.wav
//
// The output has the same length, sample rate and bit depth as the input.
// The shifter's start delay is compensated, so output sample n corresponds
// to input sample n.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	liveshift "github.com/tphakala/go-audio-liveshift"
)

const (
	// Number of sample frames read from the decoder per chunk
	bufferSize = 65536

	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants
	maxInt16         = 32767.0
	maxInt24         = 8388607.0
	maxInt32         = 2147483647.0
	progressInterval = 10 // Print progress every N%
	percentScale     = 100

	// CLI defaults
	minRequiredArgs = 2
	wavFormatPCM    = 1
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	semitones := flag.Float64("semitones", 0, "Pitch shift in semitones (e.g. 3, -12)")
	cents := flag.Float64("cents", 0, "Pitch shift in cents (e.g. 50, -1200)")
	ratio := flag.Float64("ratio", 1, "Pitch shift as a frequency ratio (e.g. 1.5)")
	windowName := flag.String("window", "short", "Analysis window: short, medium")
	formantName := flag.String("formant", "shifted", "Formant handling: shifted, preserved")
	modeName := flag.String("channels", "apart", "Channel mode: apart, together")
	debugLevel := flag.Int("debug", 0, "Engine debug level (0-3), implies -v")
	verbose := flag.Bool("v", false, "Verbose output")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file (for PGO)")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -semitones 3 input.wav output.wav            # Up a minor third\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -semitones -12 input.wav output.wav          # Down an octave\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -cents 50 -formant preserved in.wav out.wav  # Quarter tone, natural voice\n", os.Args[0])
		return fmt.Errorf("insufficient arguments")
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	pitch, err := pitchFromFlags(set, *ratio, *semitones, *cents)
	if err != nil {
		return err
	}
	opts, err := parseOptions(*windowName, *formantName, *modeName)
	if err != nil {
		return err
	}
	opts.debugLevel = *debugLevel
	if *debugLevel > 0 {
		*verbose = true
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	inputPath := args[0]
	outputPath := args[1]

	if *verbose {
		log.Printf("Input: %s", inputPath)
		log.Printf("Output: %s", outputPath)
		log.Printf("Pitch: %s (ratio %.6f)", pitch, pitch.Ratio())
		log.Printf("Window: %s, formant: %s, channels: %s", opts.window, opts.formant, opts.mode)
	}

	start := time.Now()
	stats, err := shiftWAV(inputPath, outputPath, pitch, opts, *verbose)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Shifted %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %s, %d Hz (%d channels, %d-bit), engine %s\n",
		pitch, stats.sampleRate, stats.channels, stats.bitDepth, stats.engine)
	fmt.Printf("  %d samples, %d blocks of %d, start delay %d\n",
		stats.samples, stats.blocks, stats.blockSize, stats.startDelay)
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
		elapsed.Seconds(),
		float64(stats.samples)/float64(stats.sampleRate)/elapsed.Seconds())

	return nil
}

type shiftStats struct {
	sampleRate int
	channels   int
	bitDepth   int
	engine     string
	blockSize  int
	startDelay int
	samples    int64
	blocks     int64
}

func shiftWAV(inputPath, outputPath string, pitch liveshift.PitchSpec, opts shiftOptions, verbose bool) (stats *shiftStats, err error) {
	// 1. Open and validate input
	input, err := openWAVInput(inputPath, verbose)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	// 2. Create shifter
	shifter, err := newShifter(input.rate, input.channels, pitch, opts, verbose)
	if err != nil {
		return nil, err
	}
	defer func() { _ = shifter.Close() }()

	// 3. Create output writer
	output, err := createWAVOutput(outputPath, input.rate, input.bitDepth, input.channels)
	if err != nil {
		return nil, err
	}
	// Close output, capturing close errors on success path (important for WAV header updates)
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	// 4. Wire the block stream to the writer
	maxVal := getMaxValue(input.bitDepth)
	intBuf := make([]int, shifter.BlockSize()*input.channels)
	stream := newBlockStream(shifter, func(block [][]float32) error {
		n := interleaveInto(block, intBuf, maxVal)
		return output.WriteSamples(intBuf[:n])
	})

	stats = &shiftStats{
		sampleRate: input.rate,
		channels:   input.channels,
		bitDepth:   input.bitDepth,
		engine:     shifter.EngineName(),
		blockSize:  shifter.BlockSize(),
		startDelay: shifter.StartDelay(),
	}
	progress := newProgressTracker(input.totalSamples, verbose)

	// 5. Main processing loop
	readBuf := newReadBuffer(input.channels, input.format)
	for {
		n, err := input.decoder.PCMBuffer(readBuf.intBuffer)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}

		frames := n / input.channels
		deinterleaveInto(readBuf.intBuffer.Data[:frames*input.channels], readBuf.channelBufs,
			input.channels, frames, 1/maxVal)

		if err := stream.Write(readBuf.channelBufs, frames); err != nil {
			return nil, err
		}
		stats.samples += int64(frames)
		progress.reportIfNeeded(stats.samples)
	}

	// 6. Flush the start delay and the partial tail block
	if err := stream.Flush(); err != nil {
		return nil, err
	}
	stats.blocks = stream.Blocks()

	return stats, nil
}

// newShifter builds the shifter for the input format.
func newShifter(sampleRate, channels int, pitch liveshift.PitchSpec, opts shiftOptions, verbose bool) (*liveshift.Shifter, error) {
	b, err := liveshift.NewBuilder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to configure shifter: %w", err)
	}
	b.Window(opts.window).
		Formant(opts.formant).
		ChannelMode(opts.mode).
		DebugLevel(opts.debugLevel)
	if verbose {
		b.Logger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	shifter, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create shifter: %w", err)
	}
	if err := shifter.SetPitch(pitch); err != nil {
		_ = shifter.Close()
		return nil, fmt.Errorf("failed to set pitch: %w", err)
	}
	return shifter, nil
}
