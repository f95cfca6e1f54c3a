// Command liveshift-play plays a WAV or MP3 file through the default audio
// device while its pitch is changed live from the terminal.
//
// Usage:
//
//	liveshift-play song.mp3
//	liveshift-play -semitones -3 -formant preserved voice.wav
//	liveshift-play -window medium -log liveshift.log music.wav
//
// The clip loops until q is pressed. The audio device pulls blocks through
// the shifter on its own goroutine while the terminal UI changes the pitch.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ebitengine/oto/v3"

	liveshift "github.com/tphakala/go-audio-liveshift"
)

const (
	minRequiredArgs = 1
	defaultBufferMs = 100
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	semitones := flag.Int("semitones", 0, "Initial pitch shift in semitones")
	cents := flag.Int("cents", 0, "Additional initial pitch shift in cents")
	windowName := flag.String("window", "short", "Analysis window: short, medium")
	formantName := flag.String("formant", "shifted", "Formant handling: shifted, preserved")
	modeName := flag.String("channels", "apart", "Channel mode: apart, together")
	bufferMs := flag.Int("buffer", defaultBufferMs, "Audio device buffer in milliseconds")
	logPath := flag.String("log", "", "Write diagnostics to this file")
	debugLevel := flag.Int("debug", 0, "Engine debug level (0-3), needs -log")
	verbose := flag.Bool("v", false, "Verbose startup output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav|input.mp3\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		return fmt.Errorf("insufficient arguments")
	}

	window, err := liveshift.ParseWindow(*windowName)
	if err != nil {
		return err
	}
	formant, err := liveshift.ParseFormant(*formantName)
	if err != nil {
		return err
	}
	mode, err := liveshift.ParseChannelMode(*modeName)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(*logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := loadClip(args[0])
	if err != nil {
		return err
	}
	if *verbose {
		log.Printf("Loaded %s: %d Hz, %d channels, %d samples", c.name, c.sampleRate, c.Channels(), c.Frames())
	}

	b, err := liveshift.NewBuilder(c.sampleRate, c.Channels())
	if err != nil {
		return err
	}
	shifter, err := b.Window(window).
		Formant(formant).
		ChannelMode(mode).
		DebugLevel(*debugLevel).
		Logger(logger).
		Build()
	if err != nil {
		return err
	}
	defer func() { _ = shifter.Close() }()

	initial := *semitones*centsPerSemitone + *cents
	if err := shifter.SetPitchCent(float64(initial)); err != nil {
		return err
	}

	if *verbose {
		log.Printf("Engine %s: block %d, start delay %d (%s)",
			shifter.EngineName(), shifter.BlockSize(), shifter.StartDelay(), shifter.Latency())
	}

	otoCtx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   c.sampleRate,
		ChannelCount: c.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(*bufferMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	reader := newShiftReader(shifter, c)
	player := otoCtx.NewPlayer(reader)
	player.Play()

	model := newTUIModel(shifter, reader.Stats, c.name, shifter.EngineName(),
		shifter.Latency(), initial, formant == liveshift.FormantPreserved)
	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	// The player goroutine stops pulling blocks once the player is closed,
	// after which the shifter can be released.
	player.Pause()
	if err := player.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close player: %w", err)
	}

	stats := reader.Stats()
	fmt.Printf("Played %s: %d blocks, %d dropped\n", c.name, stats.Blocks, stats.Dropped)
	return runErr
}

// openLogger returns a text logger writing to path, or a discarding logger
// when path is empty. The terminal belongs to the UI.
func openLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = f.Close() }, nil
}
