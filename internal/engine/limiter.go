// Package engine implements the look-ahead peak limiter DSP core.
//
// The engine is a fixed-topology signal graph over one configured sample
// rate and channel count: input gain ramping, a per-channel delay line, two
// peak detectors running at nested subsampled rates, moving-minimum gain
// targets, and an asymmetric attack/release smoother applied to the delayed
// signal. All channels share one gain trajectory so the stereo (or wider)
// image never shifts under gain reduction.
//
// The engine is single-threaded and fully synchronous. Parameter setters
// mutate shared scalars without synchronization; callers must serialize
// them against Process.
package engine

import (
	"fmt"
	"math"

	"github.com/tphakala/go-audio-limiter/internal/mathutil"
	"github.com/tphakala/go-audio-limiter/internal/simdops"
)

// Limiter is the look-ahead peak limiter engine, processing interleaved
// blocks of nchan-channel audio.
//
// Type parameter F selects the processing precision. float32 matches the
// precision this algorithm was tuned at; float64 trades throughput for
// numeric headroom.
type Limiter[F simdops.Float] struct {
	fsamp float64
	nchan int

	// Detector timing. The fast detector commits every div1 samples, the
	// slow one every div1*div2. delay = look-ahead in samples, which is
	// also the reported latency.
	div1  int
	div2  int
	delay int

	// Delay ring. dsize is a power of two covering delay + div1; delri is
	// the read position carried across blocks. The write position is
	// re-derived as (delri + delay) & dmask on block entry.
	dsize int
	dmask int
	delri int
	dbuff [][]F

	// Per-channel state of the ~500 Hz low-pass feeding the slow detector.
	zlf []F

	// Down-counters to the next fast (c1, in samples) and slow (c2, in
	// fast cycles) detector commits.
	c1 int
	c2 int

	// Input gain ramp: g0 is the applied gain, g1 the target, dg the
	// per-sample slope recomputed every div1*div2 samples.
	g0 F
	g1 F
	dg F

	// Threshold as a gain multiplier, and the running block maxima of the
	// two detectors.
	gt F
	m1 F
	m2 F

	// Smoothing coefficients: w1 fast (and attack), w2 = w1/div2 slow,
	// w3 release, wlf low-pass corner.
	w1  F
	w2  F
	w3  F
	wlf F

	// Envelope states: z1/z2 track the two gain targets, z3 is the gain
	// actually applied.
	z1 F
	z2 F
	z3 F

	// Observables since the last stats reset, and the pending-reset flag
	// armed by Stats and consumed at the next Process.
	rstat bool
	peak  F
	gmax  F
	gmin  F

	hist1 *movingMin[F]
	hist2 *movingMin[F]

	up       *Upsampler[F]
	truepeak bool
}

// New creates a limiter for the given sample rate and channel count.
// The returned engine is at unity input gain and threshold, 10 ms release,
// true-peak detection off.
func New[F simdops.Float](fsamp float64, nchan int) (*Limiter[F], error) {
	if fsamp <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", fsamp)
	}
	if nchan < 1 || nchan > MaxChannels {
		return nil, fmt.Errorf("channel count %d outside [1, %d]", nchan, MaxChannels)
	}

	l := &Limiter[F]{
		fsamp: fsamp,
		nchan: nchan,
	}

	switch {
	case fsamp > div1RateHigh:
		l.div1 = div1Quad
	case fsamp > div1RateLow:
		l.div1 = div1Double
	default:
		l.div1 = div1Base
	}
	l.div2 = slowDivider

	k1 := int(math.Ceil(lookaheadSeconds * fsamp / float64(l.div1)))
	l.delay = k1 * l.div1
	l.dsize = mathutil.NextPow2(l.delay+l.div1, minDelayRing)
	l.dmask = l.dsize - 1

	l.dbuff = make([][]F, nchan)
	for c := range l.dbuff {
		l.dbuff[c] = make([]F, l.dsize)
	}
	l.zlf = make([]F, nchan)

	l.hist1 = newMovingMin[F](k1 + 1)
	l.hist2 = newMovingMin[F](slowWindow)
	l.up = NewUpsampler[F](nchan)

	l.wlf = F(2 * math.Pi * lfCutoffHz / fsamp)
	l.w1 = F(fastCoeffScale / float64(l.delay))
	l.w2 = l.w1 / F(l.div2)
	l.w3 = F(1.0 / (defaultRelease * fsamp))

	l.c1 = l.div1
	l.c2 = l.div2
	l.g0, l.g1, l.gt = 1, 1, 1
	l.z1, l.z2, l.z3 = 1, 1, 1
	l.gmax, l.gmin = 1, 1

	return l, nil
}

// SampleRate returns the configured sample rate in Hz.
func (l *Limiter[F]) SampleRate() float64 {
	return l.fsamp
}

// Channels returns the configured channel count.
func (l *Limiter[F]) Channels() int {
	return l.nchan
}

// Latency returns the look-ahead delay in samples. Constant after
// construction. The true-peak upsampler's internal group delay is not
// included.
func (l *Limiter[F]) Latency() int {
	return l.delay
}

// SetInputGain sets the target input gain in dB. The applied gain ramps to
// the target over one slow detector cycle.
func (l *Limiter[F]) SetInputGain(db float64) {
	l.g1 = F(mathutil.DBToGain(db))
}

// SetThreshold sets the limiting threshold in dBFS.
func (l *Limiter[F]) SetThreshold(db float64) {
	l.gt = F(mathutil.DBToGain(-db))
}

// SetRelease sets the release time in seconds, silently clamped to
// [1 ms, 1 s].
func (l *Limiter[F]) SetRelease(sec float64) {
	if sec > releaseMax {
		sec = releaseMax
	}
	if sec < releaseMin {
		sec = releaseMin
	}
	l.w3 = F(1.0 / (sec * l.fsamp))
}

// SetTruePeak enables or disables inter-sample peak detection. Toggling
// clears the upsampler history so stale taps cannot emit a burst.
func (l *Limiter[F]) SetTruePeak(enable bool) {
	if l.truepeak == enable {
		return
	}
	l.up.Reset()
	l.truepeak = enable
}

// TruePeak reports whether inter-sample peak detection is enabled.
func (l *Limiter[F]) TruePeak() bool {
	return l.truepeak
}

// Stats returns the observables gathered since the last reset: the peak
// input level relative to the threshold, and the maximum and minimum of the
// applied gain envelope. It arms a reset that the next Process consumes:
// peak restarts at zero and the gain interval regrows around the last
// observed values.
func (l *Limiter[F]) Stats() (peak, gmax, gmin F) {
	peak, gmax, gmin = l.peak, l.gmax, l.gmin
	l.rstat = true
	return peak, gmax, gmin
}

// Reset clears all signal state and statistics without reallocating.
// Parameters (input gain, threshold, release, true-peak) are kept; the gain
// ramp restarts already settled on its target.
func (l *Limiter[F]) Reset() {
	for _, b := range l.dbuff {
		for i := range b {
			b[i] = 0
		}
	}
	for i := range l.zlf {
		l.zlf[i] = 0
	}
	l.hist1.reset()
	l.hist2.reset()
	l.up.Reset()
	l.delri = 0
	l.c1 = l.div1
	l.c2 = l.div2
	l.g0 = l.g1
	l.dg = 0
	l.m1, l.m2 = 0, 0
	l.z1, l.z2, l.z3 = 1, 1, 1
	l.rstat = false
	l.peak = 0
	l.gmax, l.gmin = 1, 1
}

// Process runs the limiter over an interleaved block. inp and out must be
// distinct buffers of equal length, a multiple of the channel count. The
// output is the input delayed by Latency() samples with the gain envelope
// applied.
func (l *Limiter[F]) Process(inp, out []F) error {
	if len(inp) != len(out) {
		return fmt.Errorf("input length %d != output length %d", len(inp), len(out))
	}
	if len(inp)%l.nchan != 0 {
		return fmt.Errorf("block length %d is not a multiple of %d channels", len(inp), l.nchan)
	}
	if len(inp) == 0 {
		return nil
	}
	if &inp[0] == &out[0] {
		return fmt.Errorf("in-place processing is not supported")
	}

	nframes := len(inp) / l.nchan

	ri := l.delri
	wi := (ri + l.delay) & l.dmask
	h1 := l.hist1.min()
	h2 := l.hist2.min()
	m1 := l.m1
	m2 := l.m2
	z1 := l.z1
	z2 := l.z2
	z3 := l.z3

	var pk, t0, t1 F
	if l.rstat {
		// Pivot: the next window grows an interval around the last
		// observed gain on both sides.
		l.rstat = false
		pk = 0
		t0 = l.gmax
		t1 = l.gmin
	} else {
		pk = l.peak
		t0 = l.gmin
		t1 = l.gmax
	}

	k := 0
	for nframes > 0 {
		// Slice the block so every chunk ends on a fast-detector
		// boundary. The invariant wi == -c1 (mod div1) then keeps every
		// chunk inside the ring: no inner-loop masking needed.
		n := min(l.c1, nframes)

		var g, d F
		for j := 0; j < l.nchan; j++ {
			z := l.zlf[j]
			// Each channel replays the same gain trajectory; the shared
			// ramp is committed once after the channel loop.
			g = l.g0
			d = l.dg
			buf := l.dbuff[j]
			for i := 0; i < n; i++ {
				x := g * inp[j+(k+i)*l.nchan]
				g += d
				buf[wi+i] = x
				z += l.wlf*(x-z) + denormGuard
				if l.truepeak {
					x = l.up.ProcessOne(j, x)
				} else {
					x = absF(x)
				}
				if x > m1 {
					m1 = x
				}
				if az := absF(z); az > m2 {
					m2 = az
				}
			}
			l.zlf[j] = z
		}
		l.g0 = g

		l.c1 -= n
		if l.c1 == 0 {
			m1 *= l.gt
			if m1 > pk {
				pk = m1
			}
			h1 = 1
			if m1 > 1 {
				h1 = 1 / m1
			}
			h1 = l.hist1.write(h1)
			m1 = 0
			l.c1 = l.div1

			l.c2--
			if l.c2 == 0 {
				m2 *= l.gt
				h2 = 1
				if m2 > 1 {
					h2 = 1 / m2
				}
				h2 = l.hist2.write(h2)
				m2 = 0
				l.c2 = l.div2

				l.dg = l.g1 - l.g0
				if absF(l.dg) < gainSnapEpsilon {
					l.g0 = l.g1
					l.dg = 0
				} else {
					l.dg /= F(l.div1 * l.div2)
				}
			}
		}

		for i := 0; i < n; i++ {
			z1 += l.w1 * (h1 - z1)
			z2 += l.w2 * (h2 - z2)
			// The more aggressive target wins; z3 attacks at the fast
			// coefficient and releases at the user-set one.
			z := z1
			if z2 < z1 {
				z = z2
			}
			if z < z3 {
				z3 += l.w1 * (z - z3)
			} else {
				z3 += l.w3 * (z - z3)
			}
			if z3 > t1 {
				t1 = z3
			}
			if z3 < t0 {
				t0 = z3
			}
			for j := 0; j < l.nchan; j++ {
				out[j+(k+i)*l.nchan] = z3 * l.dbuff[j][ri+i]
			}
		}

		wi = (wi + n) & l.dmask
		ri = (ri + n) & l.dmask
		k += n
		nframes -= n
	}

	l.delri = ri
	l.m1 = m1
	l.m2 = m2
	l.z1 = z1
	l.z2 = z2
	l.z3 = z3
	l.peak = pk
	l.gmin = t0
	l.gmax = t1

	return nil
}
