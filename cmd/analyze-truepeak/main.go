// Command analyze-truepeak reports the frequency response of the 4x
// oversampling filter used for inter-sample peak detection.
//
// It reconstructs the oversampled prototype from the polyphase rows, runs
// an FFT, and prints per-phase DC gains, passband ripple, and image-band
// rejection. Useful when judging how much true-peak slip-through the
// detector admits on extreme transients.
package main

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-audio-limiter/internal/filter"
	"github.com/tphakala/go-audio-limiter/internal/mathutil"
)

const (
	// fftSize pads the 192-tap prototype for fine frequency resolution.
	fftSize = 8192

	// Band edges as fractions of the oversampled rate. The original
	// Nyquist sits at 1/(2*Oversample) = 0.125; the passband is measured
	// slightly inside it and the image band slightly outside.
	passbandEdge  = 0.90 / (2.0 * filter.Oversample)
	imageBandLow  = 1.10 / (2.0 * filter.Oversample)
	imageBandHigh = 0.5

	// Response table resolution.
	tablePoints = 12
)

func main() {
	rows := filter.TruePeakPhases()

	fmt.Println("=== True-peak interpolator analysis ===")
	fmt.Printf("Oversampling: %dx, %d taps per phase, group delay %d samples\n\n",
		filter.Oversample, filter.TapsPerPhase, filter.PrototypeLatency)

	fmt.Println("DC gain per phase:")
	fmt.Printf("  Phase 0: %.10f (passthrough)\n", 1.0)
	for p, row := range rows {
		var sum float64
		for _, c := range row {
			sum += c
		}
		fmt.Printf("  Phase %d: %.10f\n", p+1, sum)
	}

	proto := filter.Prototype()
	padded := make([]float64, fftSize)
	copy(padded, proto)

	fft := fourier.NewFFT(fftSize)
	coeffs := fft.Coefficients(nil, padded)

	// Normalize out the interpolator's inherent gain of Oversample.
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c) / filter.Oversample
	}

	var passRippleDB float64
	minImageAttenDB := math.Inf(1)
	for i, m := range mags {
		f := float64(i) / fftSize
		db := mathutil.GainToDB(m)
		switch {
		case f <= passbandEdge:
			if r := math.Abs(db); r > passRippleDB {
				passRippleDB = r
			}
		case f >= imageBandLow && f <= imageBandHigh:
			if -db < minImageAttenDB {
				minImageAttenDB = -db
			}
		}
	}

	fmt.Printf("\nPassband ripple (0..%.4f): %.3f dB\n", passbandEdge, passRippleDB)
	fmt.Printf("Image rejection (%.4f..%.1f): %.1f dB minimum\n", imageBandLow, imageBandHigh, minImageAttenDB)

	fmt.Println("\nResponse:")
	for k := range tablePoints {
		f := imageBandHigh * float64(k) / float64(tablePoints-1)
		bin := int(f * fftSize)
		if bin >= len(mags) {
			bin = len(mags) - 1
		}
		fmt.Printf("  f=%.4f  %8.2f dB\n", f, mathutil.GainToDB(mags[bin]))
	}
}
