package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-limiter/internal/filter"
)

// =============================================================================
// Impulse response tests
// =============================================================================

// TestUpsampler_ImpulsePassthrough verifies that the newest input sample is
// reported unfiltered: phase 0 is a passthrough.
func TestUpsampler_ImpulsePassthrough(t *testing.T) {
	up := NewUpsampler[float64](1)

	pk := up.ProcessOne(0, 1.0)
	assert.InDelta(t, 1.0, pk, 1e-9, "impulse should pass through phase 0 unattenuated")
}

// TestUpsampler_ImpulsePeakAtGroupDelay verifies that the interpolated
// response of a unit impulse peaks near the documented group delay.
func TestUpsampler_ImpulsePeakAtGroupDelay(t *testing.T) {
	up := NewUpsampler[float64](1)

	peaks := make([]float64, filter.TapsPerPhase)
	peaks[0] = up.ProcessOne(0, 1.0)
	for i := 1; i < len(peaks); i++ {
		peaks[i] = up.ProcessOne(0, 0.0)
	}

	argmax := 1
	for i := 2; i < len(peaks); i++ {
		// Skip the passthrough at index 0; it reports the impulse itself.
		if peaks[i] > peaks[argmax] {
			argmax = i
		}
	}

	assert.InDelta(t, filter.PrototypeLatency, argmax, 2,
		"interpolated impulse peak should sit at the group delay")
	assert.Greater(t, peaks[argmax], 0.85, "interpolated impulse peak magnitude")
}

// TestUpsampler_Reset verifies toggling semantics: after Reset, history is
// silent.
func TestUpsampler_Reset(t *testing.T) {
	up := NewUpsampler[float64](2)

	for i := 0; i < 100; i++ {
		up.ProcessOne(0, 0.9)
		up.ProcessOne(1, -0.9)
	}
	require.Greater(t, up.ProcessOne(0, 0.0), 0.0, "history should ring after loud input")

	up.Reset()
	assert.Zero(t, up.ProcessOne(0, 0.0), "tap memory must be silent after Reset")
	assert.Zero(t, up.ProcessOne(1, 0.0), "all channels must be cleared")
}

// =============================================================================
// Inter-sample peak tests
// =============================================================================

// TestUpsampler_IntersamplePeak feeds a quarter-rate sine whose samples all
// sit at A/sqrt(2) while the continuous waveform peaks at A. The oversampled
// estimate must recover most of the hidden peak.
func TestUpsampler_IntersamplePeak(t *testing.T) {
	const amplitude = 1.1
	up := NewUpsampler[float64](1)

	var samplePk, truePk float64
	for i := 0; i < 400; i++ {
		x := amplitude * math.Sin(math.Pi/2*float64(i)+math.Pi/4)
		if a := math.Abs(x); a > samplePk {
			samplePk = a
		}
		if p := up.ProcessOne(0, x); p > truePk {
			truePk = p
		}
	}

	assert.InDelta(t, amplitude/math.Sqrt2, samplePk, 1e-9, "sample peak of the offset quarter-rate sine")
	assert.Greater(t, truePk, 0.95*amplitude, "oversampling should expose the inter-sample peak")
	assert.Less(t, truePk, 1.05*amplitude, "estimate should not overshoot the true peak")
}

// TestUpsampler_PeakAll verifies the batch scan agrees with per-sample
// processing and validates its length check.
func TestUpsampler_PeakAll(t *testing.T) {
	const nchan = 2
	block := make([]float64, 256*nchan)
	for i := 0; i < 256; i++ {
		x := 0.8 * math.Sin(math.Pi/2*float64(i)+math.Pi/4)
		block[i*nchan] = x
		block[i*nchan+1] = -0.5 * x
	}

	batch := NewUpsampler[float64](nchan)
	pk, err := batch.PeakAll(block, 0)
	require.NoError(t, err)

	serial := NewUpsampler[float64](nchan)
	var want float64
	for i := 0; i < 256; i++ {
		for j := 0; j < nchan; j++ {
			if p := serial.ProcessOne(j, block[i*nchan+j]); p > want {
				want = p
			}
		}
	}
	assert.Equal(t, want, pk, "batch and per-sample scans must agree")

	_, err = batch.PeakAll(block[:3], 0)
	assert.Error(t, err, "odd-length block must be rejected for stereo")
}

// TestUpsampler_Float32 exercises the float32 instantiation on the same
// inter-sample signal.
func TestUpsampler_Float32(t *testing.T) {
	const amplitude = 1.1
	up := NewUpsampler[float32](1)

	var truePk float32
	for i := 0; i < 400; i++ {
		x := float32(amplitude * math.Sin(math.Pi/2*float64(i)+math.Pi/4))
		if p := up.ProcessOne(0, x); p > truePk {
			truePk = p
		}
	}
	assert.Greater(t, truePk, float32(0.95*amplitude))
}
