package engine

import (
	"github.com/tphakala/go-audio-limiter/internal/mathutil"
	"github.com/tphakala/go-audio-limiter/internal/simdops"
)

// movingMin tracks the minimum over the most recent hlen values written.
//
// The history ring is only rescanned when the current minimum ages out of
// the window, and the rescan records where the new minimum sits so the next
// rescan is again deferred until that value expires. Writes are amortized
// O(1), and the returned value always equals the true minimum of the
// trailing window: gain-reduction targets fall immediately and rise only
// when every older, lower target has aged out.
type movingMin[F simdops.Float] struct {
	hist []F
	mask int
	hlen int
	hold int
	wind int
	vmin F
}

// newMovingMin creates a tracker with a window of hlen writes.
// The ring is sized to the next power of two covering the window, and is
// never smaller than minHistRing.
func newMovingMin[F simdops.Float](hlen int) *movingMin[F] {
	size := mathutil.NextPow2(hlen, minHistRing)
	m := &movingMin[F]{
		hist: make([]F, size),
		mask: size - 1,
		hlen: hlen,
	}
	m.reset()
	return m
}

// reset refills the window with unity gain.
func (m *movingMin[F]) reset() {
	for i := range m.hist {
		m.hist[i] = 1
	}
	m.vmin = 1
	m.hold = m.hlen
	m.wind = 0
}

// write inserts v and returns the minimum over the last hlen values.
func (m *movingMin[F]) write(v F) F {
	i := m.wind
	m.hist[i] = v
	if v <= m.vmin {
		m.vmin = v
		m.hold = m.hlen
	} else {
		m.hold--
		if m.hold == 0 {
			// The minimum fell out of the window; rescan the hlen-1
			// values still inside it. hold lands on the offset of the
			// surviving minimum so the next rescan waits until that
			// value expires in turn.
			m.vmin = v
			m.hold = m.hlen
			for j := 1 - m.hlen; j < 0; j++ {
				v = m.hist[(i+j)&m.mask]
				if v < m.vmin {
					m.vmin = v
					m.hold = m.hlen + j
				}
			}
		}
	}
	m.wind = (i + 1) & m.mask
	return m.vmin
}

// min returns the current windowed minimum without writing.
func (m *movingMin[F]) min() F {
	return m.vmin
}
