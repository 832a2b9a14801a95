// Package limiter provides a look-ahead digital peak limiter for
// multi-channel audio in pure Go.
//
// The algorithm is based on Fons Adriaensen's zita-audiotools peak limiter,
// as also shipped in Robin Gareus' sound-gambit: a short look-ahead delay,
// dual-timescale peak detection with moving-minimum hold, and an asymmetric
// attack/release gain smoother, coordinated across channels.
//
// # Features
//
//   - Brick-wall limiting of interleaved multi-channel streams (up to 64 channels)
//   - ~1.2 ms look-ahead; reported latency is constant after construction
//   - Automatic extended hold on bass-heavy material via a separate
//     low-frequency detector, allowing short release times without pumping
//   - Optional inter-sample ("true-peak") detection using 4x polyphase
//     oversampling, SIMD-accelerated via github.com/tphakala/simd
//   - Input gain ramping, free of zipper noise, shared by all channels
//   - Running statistics: peak level versus threshold, gain envelope extremes
//   - Pure Go, no CGO dependencies
//
// # Quick Start
//
// For simple one-shot limiting:
//
//	output, err := limiter.LimitMono(input, 48000, -1.0, 0.05)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For streaming use with a reusable limiter:
//
//	config := &limiter.Config{
//	    SampleRate:  48000,
//	    Channels:    2,
//	    ThresholdDB: -1.0,
//	    Release:     0.05,
//	}
//	lim, err := limiter.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out := make([]float64, blockSize*2)
//	for chunk := range audioChunks {
//	    if err := lim.Process(chunk, out); err != nil {
//	        log.Fatal(err)
//	    }
//	    writeOutput(out)
//	}
//
// The output is delayed by [Limiter.Latency] samples. Callers that need
// sample-aligned output discard the first Latency() output frames and feed
// an equal number of zero frames after the last input block; the one-shot
// helpers do this internally.
//
// # Architecture
//
// The engine slices each block into chunks aligned to an internal detector
// cycle. Per sample it ramps the input gain, stores the result in a delay
// ring, and tracks two peak measurements: the full-band digital (or
// oversampled true) peak, and the magnitude of a 500 Hz low-passed copy.
// Each detector feeds a moving-minimum window that turns peaks above
// threshold into gain targets; the smoothed minimum of the two targets is
// applied to the delayed signal. Fast attack and user-set release give
// brick-wall behaviour without audible pumping on sustained content.
//
// # Thread Safety
//
// A Limiter instance is single-threaded: parameter setters mutate shared
// state without synchronization and must be serialized against Process by
// the caller. Distinct instances are independent. In a real-time host, let
// the audio thread own the limiter and deposit parameter changes through a
// single-writer mailbox.
package limiter
