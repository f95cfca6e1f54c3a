// Package framing provides the fixed-length buffers used for block-based
// overlap-add processing: a sliding analysis frame and an output accumulator.
//
// Neither type is safe for concurrent use; each belongs to one processing
// goroutine at a time.
package framing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Frame is a fixed-length analysis window over the most recent input.
// New samples enter at the end and the oldest samples fall off the front.
type Frame struct {
	data []float64
}

// NewFrame creates a zeroed frame of the given length.
func NewFrame(length int) (*Frame, error) {
	if length < 1 {
		return nil, fmt.Errorf("frame length must be positive, got %d", length)
	}
	return &Frame{data: make([]float64, length)}, nil
}

// Push appends block to the frame, discarding len(block) of the oldest samples.
// A block longer than the frame keeps only its newest samples.
func (f *Frame) Push(block []float64) {
	n := len(block)
	if n == 0 {
		return
	}
	if n >= len(f.data) {
		copy(f.data, block[n-len(f.data):])
		return
	}
	copy(f.data, f.data[n:])
	copy(f.data[len(f.data)-n:], block)
}

// Samples returns the frame contents, oldest first. The slice is owned by the
// frame and is overwritten by the next Push.
func (f *Frame) Samples() []float64 {
	return f.data
}

// Len returns the frame length.
func (f *Frame) Len() int {
	return len(f.data)
}

// Clear zeroes the frame.
func (f *Frame) Clear() {
	clear(f.data)
}

// Accumulator sums overlapping frames and releases finished samples from
// its head.
type Accumulator struct {
	data []float64
}

// NewAccumulator creates a zeroed accumulator of the given length.
func NewAccumulator(length int) (*Accumulator, error) {
	if length < 1 {
		return nil, fmt.Errorf("accumulator length must be positive, got %d", length)
	}
	return &Accumulator{data: make([]float64, length)}, nil
}

// Add sums frame into the accumulator starting at its head.
func (a *Accumulator) Add(frame []float64) error {
	if len(frame) != len(a.data) {
		return fmt.Errorf("frame length %d does not match accumulator length %d", len(frame), len(a.data))
	}
	floats.Add(a.data, frame)
	return nil
}

// Pop moves the first len(dst) samples into dst and shifts the remainder
// towards the head, zero-filling the tail.
func (a *Accumulator) Pop(dst []float64) {
	n := min(len(dst), len(a.data))
	copy(dst, a.data[:n])
	copy(a.data, a.data[n:])
	clear(a.data[len(a.data)-n:])
}

// Len returns the accumulator length.
func (a *Accumulator) Len() int {
	return len(a.data)
}

// Clear zeroes the accumulator.
func (a *Accumulator) Clear() {
	clear(a.data)
}
