package limiter

import (
	"fmt"

	"github.com/tphakala/go-audio-limiter/internal/simdops"
)

// Common sample rates for convenience.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000

	// RateHiRes192 is the very high resolution 4x DAT sample rate.
	RateHiRes192 = 192000
)

// Limit applies one-shot limiting to an interleaved multi-channel buffer
// and returns a sample-aligned result of the same length: the look-ahead
// delay is flushed with zero frames and trimmed internally.
//
// A release of zero selects DefaultRelease. For streaming use, create a
// [Limiter] instead.
func Limit(input []float64, channels int, sampleRate, thresholdDB, release float64) ([]float64, error) {
	lim, err := New(&Config{
		SampleRate:  sampleRate,
		Channels:    channels,
		ThresholdDB: thresholdDB,
		Release:     release,
	})
	if err != nil {
		return nil, err
	}
	if len(input)%channels != 0 {
		return nil, fmt.Errorf("%w: input length %d is not a multiple of %d channels",
			ErrInvalidConfig, len(input), channels)
	}

	n := len(input)
	lat := lim.Latency() * channels
	stream := make([]float64, n+lat)
	if err := lim.Process(input, stream[:n]); err != nil {
		return nil, err
	}
	if lat > 0 {
		// Feeding zeros for one latency period drains the delayed tail.
		zeros := make([]float64, lat)
		if err := lim.Process(zeros, stream[n:]); err != nil {
			return nil, err
		}
	}
	return stream[lat:], nil
}

// LimitMono applies one-shot limiting to a mono channel.
func LimitMono(input []float64, sampleRate, thresholdDB, release float64) ([]float64, error) {
	return Limit(input, 1, sampleRate, thresholdDB, release)
}

// LimitStereo applies one-shot limiting to a stereo pair. Both channels
// share one gain envelope, so the stereo image does not shift under gain
// reduction.
func LimitStereo(left, right []float64, sampleRate, thresholdDB, release float64) ([]float64, []float64, error) {
	if len(left) != len(right) {
		return nil, nil, fmt.Errorf("%w: channel lengths differ (%d vs %d)",
			ErrInvalidConfig, len(left), len(right))
	}
	out, err := Limit(InterleaveStereo(left, right), stereoChannels, sampleRate, thresholdDB, release)
	if err != nil {
		return nil, nil, err
	}
	outL, outR := DeinterleaveStereo(out)
	return outL, outR, nil
}

// InterleaveStereo converts planar stereo to interleaved LRLR format.
// Both slices must have the same length.
func InterleaveStereo(left, right []float64) []float64 {
	out := make([]float64, stereoChannels*len(left))
	simdops.Float64Ops().Interleave2(out, left, right)
	return out
}

// DeinterleaveStereo converts interleaved LRLR stereo to planar channels.
func DeinterleaveStereo(interleaved []float64) (left, right []float64) {
	n := len(interleaved) / stereoChannels
	left = make([]float64, n)
	right = make([]float64, n)
	for i := range n {
		left[i] = interleaved[i*stereoChannels]
		right[i] = interleaved[i*stereoChannels+1]
	}
	return left, right
}
