package limiter

// Channel constants.
const (
	stereoChannels = 2 // Stereo channel count (used by interleave functions)

	// MaxChannels is the maximum supported channel count.
	MaxChannels = 64
)

// Parameter ranges enforced by Config.Validate and the parameter setters.
// The DSP core itself accepts any finite value; these bounds keep the
// public surface inside the range the algorithm was tuned for.
const (
	// MinInputGainDB and MaxInputGainDB bound the input gain applied
	// before limiting.
	MinInputGainDB = -10.0
	MaxInputGainDB = 30.0

	// MinThresholdDB and MaxThresholdDB bound the limiting threshold.
	// 0 dBFS is full scale; no output sample exceeds the threshold.
	MinThresholdDB = -10.0
	MaxThresholdDB = 0.0

	// MinRelease and MaxRelease bound the release time in seconds.
	MinRelease = 1e-3
	MaxRelease = 1.0
)

// Default parameter values.
const (
	// DefaultThresholdDB leaves ~1 dB of headroom below full scale.
	DefaultThresholdDB = -1.0

	// DefaultRelease is a mid-range release suitable for program material.
	// It is applied when Config.Release is zero.
	DefaultRelease = 0.05
)
