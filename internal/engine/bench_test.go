package engine

import (
	"math"
	"testing"
)

func benchInput(frames, nchan int) []float64 {
	input := make([]float64, frames*nchan)
	for f := 0; f < frames; f++ {
		v := 1.3 * math.Sin(2*math.Pi*1000*float64(f)/48000)
		for j := 0; j < nchan; j++ {
			input[f*nchan+j] = v
		}
	}
	return input
}

// BenchmarkProcessStereo measures the digital-peak hot path.
func BenchmarkProcessStereo(b *testing.B) {
	l, err := New[float64](48000, 2)
	if err != nil {
		b.Fatal(err)
	}
	l.SetThreshold(-1)

	input := benchInput(4096, 2)
	out := make([]float64, len(input))

	b.SetBytes(int64(len(input) * 8))
	b.ReportAllocs()
	for b.Loop() {
		if err := l.Process(input, out); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkProcessStereoTruePeak measures the oversampled hot path.
func BenchmarkProcessStereoTruePeak(b *testing.B) {
	l, err := New[float64](48000, 2)
	if err != nil {
		b.Fatal(err)
	}
	l.SetThreshold(-1)
	l.SetTruePeak(true)

	input := benchInput(4096, 2)
	out := make([]float64, len(input))

	b.SetBytes(int64(len(input) * 8))
	b.ReportAllocs()
	for b.Loop() {
		if err := l.Process(input, out); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkProcessStereoTruePeakFloat32 measures the float32 variant.
func BenchmarkProcessStereoTruePeakFloat32(b *testing.B) {
	l, err := New[float32](48000, 2)
	if err != nil {
		b.Fatal(err)
	}
	l.SetThreshold(-1)
	l.SetTruePeak(true)

	in64 := benchInput(4096, 2)
	input := make([]float32, len(in64))
	for i, v := range in64 {
		input[i] = float32(v)
	}
	out := make([]float32, len(input))

	b.SetBytes(int64(len(input) * 4))
	b.ReportAllocs()
	for b.Loop() {
		if err := l.Process(input, out); err != nil {
			b.Fatal(err)
		}
	}
}
