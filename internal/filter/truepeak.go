// Package filter holds the fixed FIR data used for inter-sample (true-peak)
// detection: a 4x oversampling cosine-windowed sinc, stored as polyphase rows.
//
// The prototype has the classic interpolator structure: zero crossings at
// multiples of the oversampling factor, so phase 0 degenerates to a pure
// passthrough of the newest input sample. Phases 1 and 3 are a reflected
// pair and phase 2 is symmetric.
package filter

const (
	// Oversample is the oversampling factor of the true-peak estimator.
	Oversample = 4

	// TapsPerPhase is the history length of each polyphase row.
	TapsPerPhase = 48

	// PrototypeLatency is the group delay of the interpolating phases in
	// input samples. It is not reported by the limiter engine; standalone
	// users of the upsampler must drain it themselves.
	PrototypeLatency = 23
)

// phase1 feeds the first interpolated output per input sample.
// Index 0 is the oldest tap; the newest input sample multiplies index 47.
var phase1 = [TapsPerPhase]float64{
	-2.330790e-05, +1.321291e-04, -3.394408e-04, +6.562235e-04,
	-1.094138e-03, +1.665807e-03, -2.385230e-03, +3.268371e-03,
	-4.334012e-03, +5.604985e-03, -7.109989e-03, +8.886314e-03,
	-1.098403e-02, +1.347264e-02, -1.645206e-02, +2.007155e-02,
	-2.456432e-02, +3.031531e-02, -3.800644e-02, +4.896667e-02,
	-6.616853e-02, +9.788141e-02, -1.788607e-01, +9.000753e-01,
	+2.993829e-01, -1.269367e-01, +7.922398e-02, -5.647748e-02,
	+4.295093e-02, -3.385706e-02, +2.724946e-02, -2.218943e-02,
	+1.816976e-02, -1.489313e-02, +1.217411e-02, -9.891211e-03,
	+7.961470e-03, -6.326144e-03, +4.942202e-03, -3.777065e-03,
	+2.805240e-03, -2.006106e-03, +1.362416e-03, -8.592768e-04,
	+4.834383e-04, -2.228007e-04, +6.607267e-05, -2.537056e-06,
}

// phase2 feeds the half-sample-offset output. Symmetric.
var phase2 = [TapsPerPhase]float64{
	-1.450055e-05, +1.359163e-04, -3.928527e-04, +8.006445e-04,
	-1.375510e-03, +2.134915e-03, -3.098103e-03, +4.286860e-03,
	-5.726614e-03, +7.448018e-03, -9.489286e-03, +1.189966e-02,
	-1.474471e-02, +1.811472e-02, -2.213828e-02, +2.700557e-02,
	-3.301023e-02, +4.062971e-02, -5.069345e-02, +6.477499e-02,
	-8.625619e-02, +1.239454e-01, -2.101678e-01, +6.359382e-01,
	+6.359382e-01, -2.101678e-01, +1.239454e-01, -8.625619e-02,
	+6.477499e-02, -5.069345e-02, +4.062971e-02, -3.301023e-02,
	+2.700557e-02, -2.213828e-02, +1.811472e-02, -1.474471e-02,
	+1.189966e-02, -9.489286e-03, +7.448018e-03, -5.726614e-03,
	+4.286860e-03, -3.098103e-03, +2.134915e-03, -1.375510e-03,
	+8.006445e-04, -3.928527e-04, +1.359163e-04, -1.450055e-05,
}

// TruePeakPhases returns the three interpolating polyphase rows.
// Row 0 produces the quarter-sample output, row 1 the half-sample output,
// row 2 the three-quarter-sample output (the reflection of row 0).
// Phase 0 of the prototype is the passthrough and has no row here.
func TruePeakPhases() [Oversample - 1][TapsPerPhase]float64 {
	var rows [Oversample - 1][TapsPerPhase]float64
	rows[0] = phase1
	rows[1] = phase2
	for i, c := range phase1 {
		rows[2][TapsPerPhase-1-i] = c
	}
	return rows
}

// Prototype reconstructs the full oversampled impulse response by
// interleaving the phase rows, with the passthrough phase represented as a
// unit tap at the prototype latency. Intended for offline analysis of the
// filter's frequency response, not for processing.
func Prototype() []float64 {
	rows := TruePeakPhases()
	p := make([]float64, Oversample*TapsPerPhase)
	for tap := range TapsPerPhase {
		// Taps are stored oldest-first; the prototype runs newest-first,
		// so mirror the tap index.
		t := TapsPerPhase - 1 - tap
		for phase := range Oversample - 1 {
			p[Oversample*t+phase+1] = rows[phase][tap]
		}
	}
	p[Oversample*PrototypeLatency] = 1.0
	return p
}
