package limiter

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-limiter/internal/engine"
)

// Common errors returned by the limiter.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid limiter configuration")

	// ErrParamOutOfRange indicates a parameter setter was called with a
	// value outside its documented range.
	ErrParamOutOfRange = errors.New("parameter out of range")

	// ErrNotInitialized indicates use of a zero-value Limiter; create one
	// with New.
	ErrNotInitialized = errors.New("limiter not initialized")

	// ErrBufferMismatch indicates Process was called with buffers that
	// violate the block contract (unequal lengths, not a multiple of the
	// channel count, or aliased input and output).
	ErrBufferMismatch = errors.New("buffer mismatch")
)

// Config holds limiter configuration. SampleRate and Channels are fixed for
// the lifetime of a Limiter; the remaining fields are starting values for
// the runtime parameters.
type Config struct {
	// SampleRate is the sample rate of the audio in Hz. Must be positive.
	// The look-ahead window, and with it the reported latency, scales
	// with the sample rate.
	SampleRate float64

	// Channels is the number of interleaved audio channels (1..MaxChannels).
	// All channels share one gain envelope.
	Channels int

	// InputGainDB is additional gain applied before limiting, in dB.
	// Range MinInputGainDB..MaxInputGainDB.
	InputGainDB float64

	// ThresholdDB is the limiting threshold in dBFS. No output sample
	// exceeds it. Range MinThresholdDB..MaxThresholdDB; zero is full scale.
	ThresholdDB float64

	// Release is the release time in seconds. Zero selects
	// DefaultRelease; otherwise range MinRelease..MaxRelease.
	Release float64

	// TruePeak enables inter-sample peak detection via 4x oversampling.
	// The oversampler's internal delay is not added to Latency; extreme
	// transients may occasionally slip through.
	TruePeak bool
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	}
	if c.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1", ErrInvalidConfig)
	}
	if c.Channels > MaxChannels {
		return fmt.Errorf("%w: too many channels (max %d)", ErrInvalidConfig, MaxChannels)
	}
	if c.InputGainDB < MinInputGainDB || c.InputGainDB > MaxInputGainDB {
		return fmt.Errorf("%w: input gain must be %g..%g dB", ErrInvalidConfig, MinInputGainDB, MaxInputGainDB)
	}
	if c.ThresholdDB < MinThresholdDB || c.ThresholdDB > MaxThresholdDB {
		return fmt.Errorf("%w: threshold must be %g..%g dBFS", ErrInvalidConfig, MinThresholdDB, MaxThresholdDB)
	}
	if c.Release != 0 && (c.Release < MinRelease || c.Release > MaxRelease) {
		return fmt.Errorf("%w: release must be %g..%g s", ErrInvalidConfig, MinRelease, MaxRelease)
	}
	return nil
}

// Stats holds the observables gathered between resets.
type Stats struct {
	// Peak is the highest input level observed, relative to the
	// threshold: 1.0 means the input just reached it.
	Peak float64

	// GainMax and GainMin are the extremes of the applied gain envelope.
	// GainMin == 1 means the limiter never engaged.
	GainMax float64
	GainMin float64
}

// Limiter applies look-ahead peak limiting to interleaved audio blocks.
// Create one with New; see the package documentation for the latency
// contract.
type Limiter struct {
	config Config
	eng    *engine.Limiter[float64]

	// Scratch for ProcessFloat32 conversions, grown on demand.
	in64  []float64
	out64 []float64
}

// New creates a new limiter with the specified configuration.
func New(config *Config) (*Limiter, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Release == 0 {
		cfg.Release = DefaultRelease
	}

	eng, err := engine.New[float64](cfg.SampleRate, cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	eng.SetInputGain(cfg.InputGainDB)
	eng.SetThreshold(cfg.ThresholdDB)
	eng.SetRelease(cfg.Release)
	eng.SetTruePeak(cfg.TruePeak)

	return &Limiter{config: cfg, eng: eng}, nil
}

// Process limits one interleaved block. inp and out must be distinct slices
// of equal length, a multiple of the channel count. The output equals the
// input delayed by Latency() frames with the gain envelope applied.
func (l *Limiter) Process(inp, out []float64) error {
	if l.eng == nil {
		return ErrNotInitialized
	}
	if err := l.eng.Process(inp, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBufferMismatch, err)
	}
	return nil
}

// ProcessFloat32 is like Process but for float32 samples. Conversion runs
// through internal float64 scratch buffers.
func (l *Limiter) ProcessFloat32(inp, out []float32) error {
	if l.eng == nil {
		return ErrNotInitialized
	}
	if len(inp) != len(out) {
		return fmt.Errorf("%w: input length %d != output length %d", ErrBufferMismatch, len(inp), len(out))
	}
	if cap(l.in64) < len(inp) {
		l.in64 = make([]float64, len(inp))
		l.out64 = make([]float64, len(inp))
	}
	in64 := l.in64[:len(inp)]
	out64 := l.out64[:len(inp)]
	for i, v := range inp {
		in64[i] = float64(v)
	}
	if err := l.eng.Process(in64, out64); err != nil {
		return fmt.Errorf("%w: %v", ErrBufferMismatch, err)
	}
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return nil
}

// SetInputGain sets the input gain in dB. The applied gain ramps smoothly
// to the new target.
func (l *Limiter) SetInputGain(db float64) error {
	if db < MinInputGainDB || db > MaxInputGainDB {
		return fmt.Errorf("%w: input gain %g dB outside %g..%g", ErrParamOutOfRange, db, MinInputGainDB, MaxInputGainDB)
	}
	l.config.InputGainDB = db
	l.eng.SetInputGain(db)
	return nil
}

// SetThreshold sets the limiting threshold in dBFS.
func (l *Limiter) SetThreshold(db float64) error {
	if db < MinThresholdDB || db > MaxThresholdDB {
		return fmt.Errorf("%w: threshold %g dBFS outside %g..%g", ErrParamOutOfRange, db, MinThresholdDB, MaxThresholdDB)
	}
	l.config.ThresholdDB = db
	l.eng.SetThreshold(db)
	return nil
}

// SetRelease sets the release time in seconds, silently clamped to
// MinRelease..MaxRelease.
func (l *Limiter) SetRelease(sec float64) {
	if sec > MaxRelease {
		sec = MaxRelease
	}
	if sec < MinRelease {
		sec = MinRelease
	}
	l.config.Release = sec
	l.eng.SetRelease(sec)
}

// SetTruePeak enables or disables inter-sample peak detection. Toggling
// clears the oversampler history.
func (l *Limiter) SetTruePeak(enable bool) {
	l.config.TruePeak = enable
	l.eng.SetTruePeak(enable)
}

// Latency returns the look-ahead delay in frames. Constant for the lifetime
// of the limiter.
func (l *Limiter) Latency() int {
	return l.eng.Latency()
}

// Stats returns the observables since the last call and arms a reset: the
// next Process restarts Peak at zero and regrows the gain interval around
// the last observed values.
func (l *Limiter) Stats() Stats {
	peak, gmax, gmin := l.eng.Stats()
	return Stats{Peak: peak, GainMax: gmax, GainMin: gmin}
}

// Reset clears all signal state and statistics, keeping the configuration.
func (l *Limiter) Reset() {
	l.eng.Reset()
}
