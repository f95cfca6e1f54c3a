// Package liveshift provides real-time, block-based audio pitch shifting.
//
// A [Shifter] consumes fixed-size blocks of planar float32 audio and produces
// blocks of the same size with the pitch changed by a configurable ratio.
// The duration of the audio is never changed. Output lags input by a fixed
// start delay that the caller can query once and compensate for.
//
// # Quick Start
//
//	s, err := liveshift.NewBuilder(44100, 2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	shifter, err := s.Window(liveshift.WindowMedium).
//	    Formant(liveshift.FormantPreserved).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shifter.Close()
//
//	_ = shifter.SetPitchSemitone(3)
//
//	block := make([][]float32, shifter.Channels())
//	for ch := range block {
//	    block[ch] = make([]float32, shifter.BlockSize())
//	}
//	out, err := shifter.Process(block)
//
// The config-struct form is equivalent:
//
//	shifter, err := liveshift.New(&liveshift.Config{
//	    SampleRate: 48000,
//	    Channels:   1,
//	    Window:     liveshift.WindowShort,
//	})
//
// # Block Contract
//
// Every process call takes exactly [Shifter.Channels] channels of exactly
// [Shifter.BlockSize] samples. Anything else fails with
// [ErrChannelCountMismatch] or [ErrBlockSizeMismatch] before the engine is
// touched. Sample values are passed through as-is; NaN or out-of-range
// samples are not rejected.
//
// # Latency
//
// [Shifter.StartDelay] reports how many output samples precede the first
// sample that corresponds to input. To align output with input, discard
// that many leading samples and feed that many samples of silence at the
// end.
//
// # Concurrency
//
// One goroutine typically processes (the audio thread) while another
// adjusts parameters (the control thread):
//
//   - [Shifter.Process] and [Shifter.ProcessInto] are mutually exclusive.
//     A concurrent second call returns [ErrOperationInProgress] at once
//     rather than blocking, which keeps the audio thread free of locks.
//   - [Shifter.SetPitchScale], [Shifter.SetPitchSemitone] and
//     [Shifter.SetPitchCent] may be called at any time and take effect on
//     the next block.
//   - [Shifter.SetFormantScale], [Shifter.SetFormantOption] and
//     [Shifter.Reset] are never blocked either, but calling them while a
//     block is in flight is logged as a warning because the engine decides
//     how such a change interacts with the block.
//   - [Shifter.Close] returns [ErrOperationInProgress] while a process call
//     or a setter is still running, so the engine is never released under
//     either. Retry once the other goroutines are done.
//
// # Engines
//
// The default engine is pure Go and built on a WSOLA pitch shifter. Building
// with cgo and the rubberband tag links librubberband instead:
//
//	go build -tags rubberband ./...
//
// [Shifter.EngineName] reports which engine is in use. Formant preservation
// has an audible effect with the rubberband engine only.
//
// # Logging
//
// Diagnostics go to the [log/slog] logger given with [Builder.Logger] or
// [Config.Logger], or [slog.Default] when none is set.
package liveshift
