package engine

import (
	"fmt"

	"github.com/tphakala/go-audio-limiter/internal/filter"
	"github.com/tphakala/go-audio-limiter/internal/simdops"
)

// Upsampler estimates inter-sample peaks by 4x oversampling each channel
// with a 48-tap cosine-windowed sinc, evaluated as three polyphase dot
// products per input sample (phase 0 is a passthrough of the input).
//
// Only the peak magnitude across the four output phases is exposed; the
// individual phase outputs are never propagated downstream.
//
// The interpolating phases carry a group delay of [filter.PrototypeLatency]
// samples. The limiter engine deliberately does not add it to its reported
// latency; its look-ahead window is longer, though this may allow some
// true-peak transients to slip through. Digital-peak limiting is unaffected.
type Upsampler[F simdops.Float] struct {
	nchan int
	taps  [][]F // per-channel history, oldest sample first
	rows  [filter.Oversample - 1][]F
	ops   *simdops.Ops[F]
}

// NewUpsampler creates an upsampler with zeroed tap memories for nchan
// channels.
func NewUpsampler[F simdops.Float](nchan int) *Upsampler[F] {
	u := &Upsampler[F]{
		nchan: nchan,
		taps:  make([][]F, nchan),
		ops:   simdops.For[F](),
	}
	for c := range u.taps {
		u.taps[c] = make([]F, filter.TapsPerPhase)
	}
	src := filter.TruePeakPhases()
	for p := range src {
		row := make([]F, filter.TapsPerPhase)
		for t, c := range src[p] {
			row[t] = F(c)
		}
		u.rows[p] = row
	}
	return u
}

// Latency returns the group delay of the interpolating phases in input
// samples. Standalone users must drain this many samples themselves.
func (u *Upsampler[F]) Latency() int {
	return filter.PrototypeLatency
}

// Reset zeroes all tap memories. Required when true-peak detection is
// toggled, otherwise stale samples emit a transient burst.
func (u *Upsampler[F]) Reset() {
	for _, r := range u.taps {
		for i := range r {
			r[i] = 0
		}
	}
}

// ProcessOne advances channel chn by one input sample and returns the peak
// magnitude across the four oversampled outputs.
func (u *Upsampler[F]) ProcessOne(chn int, x F) F {
	r := u.taps[chn]
	r[filter.TapsPerPhase-1] = x

	pk := absF(x)
	for _, row := range u.rows {
		if p := absF(u.ops.DotProductUnsafe(r, row)); p > pk {
			pk = p
		}
	}

	copy(r, r[1:])
	return pk
}

// PeakAll scans an interleaved block and returns the running true-peak
// maximum, starting from pk. Used by pre-scan passes that measure a file's
// true peak before choosing an input gain.
func (u *Upsampler[F]) PeakAll(inp []F, pk F) (F, error) {
	if len(inp)%u.nchan != 0 {
		return pk, fmt.Errorf("input length %d is not a multiple of %d channels", len(inp), u.nchan)
	}
	nframes := len(inp) / u.nchan
	for i := range nframes {
		for j := range u.nchan {
			if p := u.ProcessOne(j, inp[j+i*u.nchan]); p > pk {
				pk = p
			}
		}
	}
	return pk, nil
}

// absF is a branchy scalar abs; math.Abs would force a float64 round trip
// for float32 engines.
func absF[F simdops.Float](x F) F {
	if x < 0 {
		return -x
	}
	return x
}
