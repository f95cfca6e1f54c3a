package liveshift

import (
	"fmt"
)

// Process shifts one block. input must hold Channels() channels of exactly
// BlockSize() samples each. A new output buffer of the same shape is
// returned.
//
// Process never blocks on another caller: if a process call is already
// running on this shifter it returns ErrOperationInProgress immediately.
func (s *Shifter) Process(input [][]float32) ([][]float32, error) {
	if err := s.gate.acquire(); err != nil {
		return nil, err
	}
	defer s.gate.release()

	if err := s.checkBuffers(bufferInput, input); err != nil {
		return nil, err
	}
	return s.shiftNew(input)
}

// ProcessInto shifts one block into a caller-provided output buffer. Input
// and output are validated independently against Channels() x BlockSize();
// nothing reaches the engine if either is malformed.
func (s *Shifter) ProcessInto(input, output [][]float32) error {
	if err := s.gate.acquire(); err != nil {
		return err
	}
	defer s.gate.release()

	if err := s.checkBuffers(bufferInput, input); err != nil {
		return err
	}
	if err := s.checkBuffers(bufferOutput, output); err != nil {
		return err
	}

	return s.shift(input, output)
}

// ProcessInterleaved shifts one interleaved block of Channels() x BlockSize()
// samples and returns the interleaved result. It shares the gate with
// Process.
func (s *Shifter) ProcessInterleaved(input []float32) ([]float32, error) {
	if err := s.gate.acquire(); err != nil {
		return nil, err
	}
	defer s.gate.release()

	want := s.config.Channels * s.blockSize
	if len(input) != want {
		return nil, fmt.Errorf("%w: interleaved %s has %d samples, expected %d",
			ErrBlockSizeMismatch, bufferInput, len(input), want)
	}

	out, err := s.shiftNew(Deinterleave(input, s.config.Channels))
	if err != nil {
		return nil, err
	}
	return Interleave(out), nil
}

// checkBuffers validates channel count first, then every channel length.
func (s *Shifter) checkBuffers(name string, bufs [][]float32) error {
	if len(bufs) != s.config.Channels {
		return &MismatchError{
			Kind:     ErrChannelCountMismatch,
			Buffer:   name,
			Channel:  -1,
			Expected: s.config.Channels,
			Actual:   len(bufs),
		}
	}
	for ch, b := range bufs {
		if len(b) != s.blockSize {
			return &MismatchError{
				Kind:     ErrBlockSizeMismatch,
				Buffer:   name,
				Channel:  ch,
				Expected: s.blockSize,
				Actual:   len(b),
			}
		}
	}
	return nil
}

// shiftNew allocates the output block and shifts into it.
func (s *Shifter) shiftNew(input [][]float32) ([][]float32, error) {
	output := make([][]float32, s.config.Channels)
	for ch := range output {
		output[ch] = make([]float32, s.blockSize)
	}
	if err := s.shift(input, output); err != nil {
		return nil, err
	}
	return output, nil
}

// shift invokes the engine exactly once.
func (s *Shifter) shift(input, output [][]float32) error {
	if err := s.eng.Shift(input, output); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEngine, s.eng.Name(), err)
	}
	return nil
}
