package limiter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-limiter/internal/testutil"
)

func validConfig() *Config {
	return &Config{
		SampleRate:  48000,
		Channels:    2,
		ThresholdDB: -1,
		Release:     0.05,
	}
}

// TestConfig_Validate verifies configuration bounds.
func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero_release_selects_default", func(c *Config) { c.Release = 0 }, false},
		{"zero_threshold_is_full_scale", func(c *Config) { c.ThresholdDB = 0 }, false},
		{"max_channels", func(c *Config) { c.Channels = MaxChannels }, false},
		{"zero_sample_rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"negative_sample_rate", func(c *Config) { c.SampleRate = -44100 }, true},
		{"zero_channels", func(c *Config) { c.Channels = 0 }, true},
		{"too_many_channels", func(c *Config) { c.Channels = MaxChannels + 1 }, true},
		{"gain_too_low", func(c *Config) { c.InputGainDB = -11 }, true},
		{"gain_too_high", func(c *Config) { c.InputGainDB = 31 }, true},
		{"threshold_too_low", func(c *Config) { c.ThresholdDB = -11 }, true},
		{"threshold_positive", func(c *Config) { c.ThresholdDB = 0.5 }, true},
		{"release_too_short", func(c *Config) { c.Release = 1e-4 }, true},
		{"release_too_long", func(c *Config) { c.Release = 1.5 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestNew_NilConfig verifies the nil guard.
func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestLimiter_ProcessBasic verifies end-to-end limiting through the public
// API: a hot tone comes out at the ceiling, clean and finite.
func TestLimiter_ProcessBasic(t *testing.T) {
	lim, err := New(validConfig())
	require.NoError(t, err)

	input := testutil.Sine(2*8192, 1000, 48000, 1.5)
	out := make([]float64, len(input))
	require.NoError(t, lim.Process(input, out))

	ceiling := math.Pow(10, -1.0/20)
	testutil.AssertNoNaNOrInf(t, out)
	testutil.AssertPeakBelow(t, out, ceiling*1.02)

	stats := lim.Stats()
	assert.Greater(t, stats.Peak, 1.0, "input exceeded the threshold")
	assert.Less(t, stats.GainMin, 1.0, "limiter engaged")
	assert.LessOrEqual(t, stats.GainMin, stats.GainMax)
}

// TestLimiter_Setters verifies range checks and clamping on the public
// parameter setters.
func TestLimiter_Setters(t *testing.T) {
	lim, err := New(validConfig())
	require.NoError(t, err)

	assert.NoError(t, lim.SetInputGain(12))
	assert.ErrorIs(t, lim.SetInputGain(-20), ErrParamOutOfRange)
	assert.ErrorIs(t, lim.SetInputGain(40), ErrParamOutOfRange)

	assert.NoError(t, lim.SetThreshold(-6))
	assert.ErrorIs(t, lim.SetThreshold(1), ErrParamOutOfRange)
	assert.ErrorIs(t, lim.SetThreshold(-12), ErrParamOutOfRange)

	// Release clamps silently.
	lim.SetRelease(5.0)
	lim.SetRelease(0)
	lim.SetTruePeak(true)
	lim.SetTruePeak(false)
}

// TestLimiter_Latency verifies the latency contract at a few rates.
func TestLimiter_Latency(t *testing.T) {
	for rate, want := range map[float64]int{44100: 56, 48000: 64, 96000: 128} {
		cfg := validConfig()
		cfg.SampleRate = rate
		lim, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, want, lim.Latency(), "latency at %.0f Hz", rate)
	}
}

// TestLimiter_ProcessFloat32Parity verifies the float32 entry point matches
// the float64 path within conversion tolerance.
func TestLimiter_ProcessFloat32Parity(t *testing.T) {
	lim64, err := New(validConfig())
	require.NoError(t, err)
	lim32, err := New(validConfig())
	require.NoError(t, err)

	input := testutil.Sine(2*4096, 440, 48000, 1.3)
	in32 := make([]float32, len(input))
	for i, v := range input {
		in32[i] = float32(v)
	}

	out64 := make([]float64, len(input))
	out32 := make([]float32, len(input))
	require.NoError(t, lim64.Process(input, out64))
	require.NoError(t, lim32.ProcessFloat32(in32, out32))

	for i := range out64 {
		require.InDelta(t, out64[i], float64(out32[i]), 1e-3, "sample %d", i)
	}

	assert.ErrorIs(t, lim32.ProcessFloat32(in32, out32[:8]), ErrBufferMismatch, "length mismatch")
}

// TestLimiter_SentinelErrors verifies the documented sentinels surface via
// errors.Is on the hot-path entry points.
func TestLimiter_SentinelErrors(t *testing.T) {
	var zero Limiter
	buf := make([]float64, 64)
	assert.ErrorIs(t, zero.Process(buf, make([]float64, 64)), ErrNotInitialized)
	assert.ErrorIs(t, zero.ProcessFloat32(nil, nil), ErrNotInitialized)

	lim, err := New(validConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, lim.Process(buf, buf[:32]), ErrBufferMismatch, "length mismatch")
	assert.ErrorIs(t, lim.Process(buf[:31], make([]float64, 31)), ErrBufferMismatch, "not a multiple of channels")
	assert.ErrorIs(t, lim.Process(buf, buf), ErrBufferMismatch, "in-place processing")
}

// TestLimiter_Reset verifies Reset restores fresh behaviour while keeping
// configuration.
func TestLimiter_Reset(t *testing.T) {
	lim, err := New(validConfig())
	require.NoError(t, err)

	input := testutil.Sine(2*4096, 1000, 48000, 1.5)
	out1 := make([]float64, len(input))
	require.NoError(t, lim.Process(input, out1))

	lim.Reset()
	out2 := make([]float64, len(input))
	require.NoError(t, lim.Process(input, out2))

	assert.Equal(t, out1, out2, "reset must reproduce the first run")
}
