// Command limit-wav applies a look-ahead digital peak limiter to WAV files.
//
// Usage:
//
//	limit-wav -threshold -1 input.wav output.wav
//	limit-wav -input-gain 3 -threshold -1.2 -release 50 music.wav louder.wav
//	limit-wav -true-peak -auto-gain input.wav maximized.wav
//	limit-wav -fast input.wav output.wav                # float32 engine
//
// The output file keeps the input's sample rate, channel count and bit
// depth. The limiter's look-ahead latency is compensated: the first
// latency frames are discarded and the tail is recovered by flushing
// zeros, so output length equals input length.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"

	"github.com/tphakala/go-audio-limiter/internal/engine"
	"github.com/tphakala/go-audio-limiter/internal/mathutil"
	"github.com/tphakala/go-audio-limiter/internal/simdops"
)

const (
	// Processing block size in frames. Larger blocks reduce I/O overhead.
	blockFrames = 4096

	// Parameter ranges (matching the library's public bounds).
	minInputGainDB = -10.0
	maxInputGainDB = 30.0
	minThresholdDB = -10.0
	maxThresholdDB = 0.0
	minReleaseMs   = 1.0
	maxReleaseMs   = 1000.0

	// CLI defaults.
	defaultThresholdDB = -1.0
	defaultReleaseMs   = 50.0
	msPerSecond        = 1000.0
	minRequiredArgs    = 2

	// Sample format constants.
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants.
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// WAV format constants.
	wavHeaderSize      = 44 // Total WAV header size in bytes
	wavRiffHeaderSize  = 36 // RIFF header size (file size - 8 = riffHeaderSize + dataSize)
	wavPCMSubchunkSize = 16 // fmt subchunk size for PCM format
	wavFileSizeOffset  = 4  // Byte offset for file size field in header
	wavDataSizeOffset  = 40 // Byte offset for data size field in header

	// Byte sizes for PCM sample formats.
	bytesPerSample16 = 2
	bytesPerSample24 = 3
	bytesPerSample32 = 4
	bitsPerByte      = 8

	// Bit shift amounts for 24-bit sample encoding.
	bitShift8  = 8
	bitShift16 = 16

	// I/O buffer sizes.
	wavWriterBufferSize = 256 * 1024 // 256KB write buffer
	uint32Size          = 4          // Size of uint32 in bytes
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	inputGain := flag.Float64("input-gain", 0, "Input gain in dB (-10..30)")
	threshold := flag.Float64("threshold", defaultThresholdDB, "Threshold in dBFS (-10..0)")
	releaseMs := flag.Float64("release", defaultReleaseMs, "Release time in ms (1..1000)")
	truePeak := flag.Bool("true-peak", false, "Limit inter-sample (true) peaks via 4x oversampling")
	autoGain := flag.Bool("auto-gain", false, "Two-pass mode: pre-scan the file and derive the input gain that lands its peak on the threshold")
	fast := flag.Bool("fast", false, "Use float32 precision (faster, matches 16/24-bit sources)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -input-gain 3 -threshold -1.2 music.wav louder.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -true-peak -auto-gain album.wav maximized.wav\n", os.Args[0])
		return fmt.Errorf("insufficient arguments")
	}

	inputPath := args[0]
	outputPath := args[1]
	if inputPath == outputPath {
		return fmt.Errorf("input and output must be distinct files")
	}

	if *inputGain < minInputGainDB || *inputGain > maxInputGainDB {
		return fmt.Errorf("input gain %g dB outside %g..%g", *inputGain, minInputGainDB, maxInputGainDB)
	}
	if *threshold < minThresholdDB || *threshold > maxThresholdDB {
		return fmt.Errorf("threshold %g dBFS outside %g..%g", *threshold, minThresholdDB, maxThresholdDB)
	}
	if *releaseMs < minReleaseMs || *releaseMs > maxReleaseMs {
		return fmt.Errorf("release time %g ms outside %g..%g", *releaseMs, minReleaseMs, maxReleaseMs)
	}

	params := limitParams{
		inputGainDB: *inputGain,
		thresholdDB: *threshold,
		release:     *releaseMs / msPerSecond,
		truePeak:    *truePeak,
		autoGain:    *autoGain,
		verbose:     *verbose,
	}

	if *verbose {
		log.Printf("Input: %s", inputPath)
		log.Printf("Output: %s", outputPath)
		log.Printf("Threshold: %g dBFS, release: %g ms, true-peak: %v", *threshold, *releaseMs, *truePeak)
		if *fast {
			log.Printf("Precision: float32 (fast mode)")
		} else {
			log.Printf("Precision: float64")
		}
	}

	start := time.Now()
	var stats *limitStats
	var err error
	if *fast {
		stats, err = limitWAV[float32](inputPath, outputPath, params)
	} else {
		stats, err = limitWAV[float64](inputPath, outputPath, params)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Limited %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %d Hz, %d channels, %d-bit, %d frames\n",
		stats.rate, stats.channels, stats.bitDepth, stats.frames)
	if params.autoGain {
		fmt.Printf("  Auto input gain : %.2f dB\n", stats.appliedGainDB)
	}
	fmt.Printf("  Max attenuation : %.2f dB\n", mathutil.GainToDB(stats.gmin))
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
		elapsed.Seconds(),
		float64(stats.frames)/float64(stats.rate)/elapsed.Seconds())

	return nil
}

// limitParams collects the validated processing parameters.
type limitParams struct {
	inputGainDB float64
	thresholdDB float64
	release     float64 // seconds
	truePeak    bool
	autoGain    bool
	verbose     bool
}

// limitStats summarizes a completed run.
type limitStats struct {
	rate          int
	channels      int
	bitDepth      int
	frames        int64
	appliedGainDB float64
	gmin          float64
}

func limitWAV[F simdops.Float](inputPath, outputPath string, params limitParams) (stats *limitStats, err error) {
	input, err := openWAVInput(inputPath, params.verbose)
	if err != nil {
		return nil, err
	}
	defer func() {
		if input != nil {
			_ = input.Close()
		}
	}()

	// Auto-gain pre-scan consumes the decoder; reopen for the second pass.
	if params.autoGain {
		peak, err := scanPeak[F](input, params.truePeak)
		if err != nil {
			return nil, err
		}
		params.inputGainDB = autoGainDB(peak, params.thresholdDB)
		if params.verbose {
			log.Printf("Pre-scan peak: %.2f dBFS, derived input gain: %.2f dB",
				mathutil.GainToDB(peak), params.inputGainDB)
		}
		_ = input.Close()
		input, err = openWAVInput(inputPath, false)
		if err != nil {
			return nil, err
		}
	}

	lim, err := engine.New[F](float64(input.rate), input.channels)
	if err != nil {
		return nil, err
	}
	lim.SetInputGain(params.inputGainDB)
	lim.SetThreshold(params.thresholdDB)
	lim.SetRelease(params.release)
	lim.SetTruePeak(params.truePeak)

	outputFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	writer, err := newFastWAVWriter(outputFile, input.rate, input.bitDepth, input.channels)
	if err != nil {
		_ = outputFile.Close()
		return nil, fmt.Errorf("failed to create WAV writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		if closeErr := outputFile.Close(); err == nil {
			err = closeErr
		}
	}()

	nchan := input.channels
	maxVal := getMaxValue(input.bitDepth)
	invMaxVal := 1.0 / maxVal

	intBuf := &audio.IntBuffer{
		Format: input.format,
		Data:   make([]int, blockFrames*nchan),
	}
	inBuf := make([]F, blockFrames*nchan)
	outBuf := make([]F, blockFrames*nchan)
	pcmOut := make([]int, blockFrames*nchan)

	stats = &limitStats{
		rate:          input.rate,
		channels:      nchan,
		bitDepth:      input.bitDepth,
		appliedGainDB: params.inputGainDB,
	}

	// Discard the first latency frames so output aligns with input.
	latency := lim.Latency()

	// Per-block Stats calls arm a reset each time, so the final summary
	// tracks the overall minimum separately.
	gminAll := 1.0

	for {
		n, err := input.decoder.PCMBuffer(intBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}
		stats.frames += int64(n)

		samples := intBuf.Data[:n*nchan]
		in := inBuf[:len(samples)]
		out := outBuf[:len(samples)]
		convertIn(samples, in, invMaxVal)
		if err := lim.Process(in, out); err != nil {
			return nil, err
		}

		if latency > 0 {
			ns := 0
			if n > latency {
				ns = n - latency
			}
			if ns > 0 {
				written := convertOut(out[latency*nchan:(latency+ns)*nchan], pcmOut, maxVal)
				if err := writer.WriteSamples(pcmOut[:written]); err != nil {
					return nil, fmt.Errorf("failed to write audio data: %w", err)
				}
			}
			if n >= latency {
				latency = 0
			} else {
				latency -= n
			}
		} else {
			written := convertOut(out, pcmOut, maxVal)
			if err := writer.WriteSamples(pcmOut[:written]); err != nil {
				return nil, fmt.Errorf("failed to write audio data: %w", err)
			}
		}

		if params.verbose {
			peak, gmax, gmin := lim.Stats()
			if float64(gmin) < gminAll {
				gminAll = float64(gmin)
			}
			log.Printf("Level below threshold: %6.1f dB, max gain: %4.1f dB, min gain: %4.1f dB",
				mathutil.GainToDB(float64(peak)), mathutil.GainToDB(float64(gmax)), mathutil.GainToDB(float64(gmin)))
		}

		intBuf.Data = intBuf.Data[:cap(intBuf.Data)]
	}

	// Recover the delayed tail by flushing latency frames of silence.
	for i := range inBuf {
		inBuf[i] = 0
	}
	latency = lim.Latency()
	for latency > 0 {
		n := min(latency, blockFrames)
		in := inBuf[:n*nchan]
		out := outBuf[:n*nchan]
		if err := lim.Process(in, out); err != nil {
			return nil, err
		}
		written := convertOut(out, pcmOut, maxVal)
		if err := writer.WriteSamples(pcmOut[:written]); err != nil {
			return nil, fmt.Errorf("failed to write flushed data: %w", err)
		}
		latency -= n
	}

	_, _, gmin := lim.Stats()
	stats.gmin = float64(gmin)
	if stats.gmin > gminAll {
		stats.gmin = gminAll
	}

	return stats, nil
}
