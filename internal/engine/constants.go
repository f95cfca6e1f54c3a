package engine

// Block framing
const (
	// Samples per channel per Shift call, independent of sample rate.
	blockSize = 512

	// Analysis frame lengths at rates up to referenceRate.
	shortFrameLength  = 2048
	mediumFrameLength = 4096

	// Frame lengths double for every factor of two above this rate.
	referenceRate = 48000

	// Periodic Hann summed at hop h over frame N equals N/(2h).
	hannOverlapDivisor = 2
)

// WSOLA segment timing in milliseconds, per window.
const (
	shortSequenceMs = 20.0
	shortOverlapMs  = 5.0
	shortSearchMs   = 8.0

	mediumSequenceMs = 40.0
	mediumOverlapMs  = 8.0
	mediumSearchMs   = 15.0
)

// Pitch ratio range accepted by the WSOLA processor.
const (
	minWSOLARatio = 0.25
	maxWSOLARatio = 4.0
)

// Channel handling
const (
	stereoChannels = 2
	midSideScale   = 0.5
)

// Diagnostics
const (
	debugLevelBlocks = 2 // Per-block debug records from this level
)
