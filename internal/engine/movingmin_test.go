package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteMin computes the reference windowed minimum for write i over the
// last hlen values, counting the unity pre-fill for early writes.
func bruteMin(values []float64, i, hlen int) float64 {
	lo := i - hlen + 1
	m := 1.0
	if lo < 0 {
		lo = 0
	} else {
		m = values[lo]
	}
	for j := lo; j <= i; j++ {
		if values[j] < m {
			m = values[j]
		}
	}
	return m
}

// TestMovingMin_MatchesBruteForce verifies the deferred-rescan tracker
// against a direct windowed minimum for random sequences.
func TestMovingMin_MatchesBruteForce(t *testing.T) {
	for _, hlen := range []int{1, 2, 4, 7, 9, 12, 16} {
		t.Run(fmt.Sprintf("hlen=%d", hlen), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			m := newMovingMin[float64](hlen)

			values := make([]float64, 500)
			for i := range values {
				// Gain targets live in (0, 1], but the tracker must hold
				// for any positive scalars.
				values[i] = 0.05 + 1.15*rng.Float64()
			}

			for i, v := range values {
				got := m.write(v)
				want := bruteMin(values, i, hlen)
				require.Equal(t, want, got, "window min mismatch at write %d (hlen=%d)", i, hlen)
				require.Equal(t, got, m.min(), "min() disagrees with write return at %d", i)
			}
		})
	}
}

// TestMovingMin_InitialState verifies the unity pre-fill.
func TestMovingMin_InitialState(t *testing.T) {
	m := newMovingMin[float64](8)
	assert.Equal(t, 1.0, m.min())

	// A value above unity cannot displace the pre-fill.
	assert.Equal(t, 1.0, m.write(1.5))

	// A value below unity becomes the minimum immediately.
	assert.Equal(t, 0.25, m.write(0.25))
}

// TestMovingMin_HoldAndExpiry verifies that a low value holds for exactly
// hlen writes and then ages out.
func TestMovingMin_HoldAndExpiry(t *testing.T) {
	const hlen = 4
	m := newMovingMin[float64](hlen)

	assert.Equal(t, 0.2, m.write(0.2))

	// The minimum survives hlen-1 higher writes...
	for i := 0; i < hlen-1; i++ {
		assert.Equal(t, 0.2, m.write(0.9), "minimum aged out early at write %d", i)
	}

	// ...and is replaced on the next one.
	assert.Equal(t, 0.9, m.write(0.9))
}

// TestMovingMin_Reset verifies reset restores the pristine state.
func TestMovingMin_Reset(t *testing.T) {
	m := newMovingMin[float64](6)
	m.write(0.1)
	m.write(0.3)
	require.Equal(t, 0.1, m.min())

	m.reset()
	assert.Equal(t, 1.0, m.min())
	assert.Equal(t, 1.0, m.write(1.2))
}

// TestMovingMin_Float32 exercises the float32 instantiation.
func TestMovingMin_Float32(t *testing.T) {
	m := newMovingMin[float32](3)
	assert.Equal(t, float32(0.5), m.write(0.5))
	assert.Equal(t, float32(0.5), m.write(0.75))
	assert.Equal(t, float32(0.5), m.write(0.9))
	assert.Equal(t, float32(0.75), m.write(0.8))
}
