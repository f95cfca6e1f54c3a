//go:build cgo && rubberband

package engine

/*
#cgo pkg-config: rubberband
#include <stdlib.h>
#include <rubberband/rubberband-c.h>
*/
import "C"

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"unsafe"
)

// RubberBand wraps one RubberBandLiveShifter. Channel buffers live in C
// memory so the pointer tables handed to rubberband_live_shift never hold
// Go pointers; Shift copies in and out of them.
type RubberBand struct {
	handle     *rubberBandHandle
	cleanup    runtime.Cleanup
	channels   int
	blockSize  int
	startDelay int
	logger     *slog.Logger
	closed     atomic.Bool
}

// rubberBandHandle owns the native resources. It is kept apart from
// RubberBand so a cleanup can release it when RubberBand is unreachable.
type rubberBandHandle struct {
	state    C.RubberBandLiveState
	inPtrs   **C.float
	outPtrs  **C.float
	inBufs   [][]float32
	outBufs  [][]float32
	rawBufs  []unsafe.Pointer
	released atomic.Bool
}

var _ Engine = (*RubberBand)(nil)

// NewRubberBand creates an engine backed by librubberband.
func NewRubberBand(cfg Config) (*RubberBand, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state := C.rubberband_live_new(C.uint(cfg.SampleRate), C.uint(cfg.Channels), liveOptions(cfg.Options))
	if state == nil {
		return nil, fmt.Errorf("%w: rubberband_live_new returned nil", ErrInvalidConfig)
	}
	C.rubberband_live_set_debug_level(state, C.int(cfg.DebugLevel))

	block := int(C.rubberband_live_get_block_size(state))
	h := &rubberBandHandle{state: state}
	h.allocate(cfg.Channels, block)

	e := &RubberBand{
		handle:     h,
		channels:   cfg.Channels,
		blockSize:  block,
		startDelay: int(C.rubberband_live_get_start_delay(state)),
		logger:     cfg.logger().With("engine", "rubberband"),
	}
	e.cleanup = runtime.AddCleanup(e, func(h *rubberBandHandle) { h.release() }, h)

	if cfg.DebugLevel > 0 {
		e.logger.Debug("engine created",
			"sample_rate", cfg.SampleRate,
			"channels", cfg.Channels,
			"block_size", block,
			"start_delay", e.startDelay)
	}
	return e, nil
}

func liveOptions(o Options) C.RubberBandLiveOptions {
	var opts C.RubberBandLiveOptions
	if o.Window == WindowMedium {
		opts |= C.RubberBandLiveOptions(C.RubberBandLiveOptionWindowMedium)
	} else {
		opts |= C.RubberBandLiveOptions(C.RubberBandLiveOptionWindowShort)
	}
	opts |= formantBits(o.FormantPreserved)
	if o.ChannelsTogether {
		opts |= C.RubberBandLiveOptions(C.RubberBandLiveOptionChannelsTogether)
	} else {
		opts |= C.RubberBandLiveOptions(C.RubberBandLiveOptionChannelsApart)
	}
	return opts
}

func formantBits(preserved bool) C.RubberBandLiveOptions {
	if preserved {
		return C.RubberBandLiveOptions(C.RubberBandLiveOptionFormantPreserved)
	}
	return C.RubberBandLiveOptions(C.RubberBandLiveOptionFormantShifted)
}

func (h *rubberBandHandle) allocate(channels, block int) {
	ptrSize := C.size_t(unsafe.Sizeof((*C.float)(nil)))
	h.inPtrs = (**C.float)(C.malloc(C.size_t(channels) * ptrSize))
	h.outPtrs = (**C.float)(C.malloc(C.size_t(channels) * ptrSize))
	inTable := unsafe.Slice(h.inPtrs, channels)
	outTable := unsafe.Slice(h.outPtrs, channels)

	h.inBufs = make([][]float32, channels)
	h.outBufs = make([][]float32, channels)
	bufBytes := C.size_t(block) * C.size_t(unsafe.Sizeof(C.float(0)))
	for ch := range channels {
		in := C.calloc(1, bufBytes)
		out := C.calloc(1, bufBytes)
		h.rawBufs = append(h.rawBufs, in, out)
		inTable[ch] = (*C.float)(in)
		outTable[ch] = (*C.float)(out)
		h.inBufs[ch] = unsafe.Slice((*float32)(in), block)
		h.outBufs[ch] = unsafe.Slice((*float32)(out), block)
	}
}

func (h *rubberBandHandle) release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	C.rubberband_live_delete(h.state)
	for _, p := range h.rawBufs {
		C.free(p)
	}
	C.free(unsafe.Pointer(h.inPtrs))
	C.free(unsafe.Pointer(h.outPtrs))
	h.inBufs, h.outBufs, h.rawBufs = nil, nil, nil
}

// Name implements Engine.
func (e *RubberBand) Name() string { return "rubberband" }

// BlockSize implements Engine.
func (e *RubberBand) BlockSize() int { return e.blockSize }

// StartDelay implements Engine.
func (e *RubberBand) StartDelay() int { return e.startDelay }

// SetPitchScale implements Engine.
func (e *RubberBand) SetPitchScale(ratio float64) {
	if e.closed.Load() {
		return
	}
	C.rubberband_live_set_pitch_scale(e.handle.state, C.double(ratio))
	runtime.KeepAlive(e)
}

// SetFormantScale implements Engine. The live shifter has a single formant
// scale, so every channel must carry the same value.
func (e *RubberBand) SetFormantScale(scales []float64) error {
	if len(scales) != e.channels {
		return fmt.Errorf("%w: want %d formant scales, got %d", ErrBufferShape, e.channels, len(scales))
	}
	for ch, s := range scales[1:] {
		if s != scales[0] {
			return fmt.Errorf("%w: per-channel formant scales (channel %d: %v != %v)",
				ErrUnsupported, ch+1, s, scales[0])
		}
	}
	if e.closed.Load() {
		return ErrClosed
	}
	C.rubberband_live_set_formant_scale(e.handle.state, C.double(scales[0]))
	runtime.KeepAlive(e)
	return nil
}

// SetFormantOption implements Engine.
func (e *RubberBand) SetFormantOption(preserved bool) {
	if e.closed.Load() {
		return
	}
	C.rubberband_live_set_formant_option(e.handle.state, formantBits(preserved))
	runtime.KeepAlive(e)
}

// Reset implements Engine.
func (e *RubberBand) Reset() {
	if e.closed.Load() {
		return
	}
	C.rubberband_live_reset(e.handle.state)
	runtime.KeepAlive(e)
}

// Shift implements Engine.
func (e *RubberBand) Shift(input, output [][]float32) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := checkShape(input, output, e.channels, e.blockSize); err != nil {
		return err
	}

	h := e.handle
	for ch := range e.channels {
		copy(h.inBufs[ch], input[ch])
	}
	C.rubberband_live_shift(h.state, h.inPtrs, h.outPtrs)
	for ch := range e.channels {
		copy(output[ch], h.outBufs[ch])
	}

	runtime.KeepAlive(e)
	return nil
}

// Close implements Engine.
func (e *RubberBand) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.cleanup.Stop()
	e.handle.release()
	return nil
}
