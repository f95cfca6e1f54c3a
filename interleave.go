package liveshift

import (
	"github.com/tphakala/simd/f32"
)

// Interleave converts planar channels to interleaved samples.
// Output format: [C0[0], C1[0], ..., C0[1], C1[1], ...]
//
// All channels are truncated to the shortest one.
func Interleave(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}

	n := len(channels[0])
	for _, c := range channels[1:] {
		n = min(n, len(c))
	}

	numChannels := len(channels)
	result := make([]float32, n*numChannels)

	if numChannels == stereoChannels {
		f32.Interleave2(result, channels[0][:n], channels[1][:n])
		return result
	}

	for ch, c := range channels {
		for i := range n {
			result[i*numChannels+ch] = c[i]
		}
	}
	return result
}

// Deinterleave converts interleaved samples to planar channels. Trailing
// samples that do not fill a whole frame are dropped.
func Deinterleave(interleaved []float32, numChannels int) [][]float32 {
	if numChannels <= 0 {
		return nil
	}

	n := len(interleaved) / numChannels
	result := make([][]float32, numChannels)
	for ch := range result {
		result[ch] = make([]float32, n)
	}

	for i := range n {
		frame := interleaved[i*numChannels : (i+1)*numChannels]
		for ch, v := range frame {
			result[ch][i] = v
		}
	}
	return result
}

// InterleaveToStereo converts two mono channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveToStereo(left, right []float32) []float32 {
	minLen := min(len(left), len(right))
	result := make([]float32, minLen*stereoChannels)
	f32.Interleave2(result, left[:minLen], right[:minLen])
	return result
}

// DeinterleaveFromStereo converts interleaved stereo to two mono channels.
// Input format: [L0, R0, L1, R1, L2, R2, ...]
func DeinterleaveFromStereo(interleaved []float32) (left, right []float32) {
	numSamples := len(interleaved) / stereoChannels
	left = make([]float32, numSamples)
	right = make([]float32, numSamples)
	for i := range numSamples {
		left[i] = interleaved[i*stereoChannels]
		right[i] = interleaved[i*stereoChannels+1]
	}
	return left, right
}
