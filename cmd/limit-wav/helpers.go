package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-audio-limiter/internal/engine"
	"github.com/tphakala/go-audio-limiter/internal/mathutil"
	"github.com/tphakala/go-audio-limiter/internal/simdops"
)

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file         *os.File
	decoder      *wav.Decoder
	rate         int
	channels     int
	bitDepth     int
	totalSamples int64
	format       *audio.Format
}

// openWAVInput opens and validates a WAV file, returning format information.
func openWAVInput(path string, verbose bool) (*wavInputInfo, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	inputRate := format.SampleRate
	channels := format.NumChannels
	bitDepth := int(decoder.BitDepth)

	if channels > engine.MaxChannels {
		_ = inputFile.Close()
		return nil, fmt.Errorf("only up to %d channels are supported, file has %d", engine.MaxChannels, channels)
	}

	if verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit", inputRate, channels, bitDepth)
	}

	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}
	totalSamples := int64(duration.Seconds() * float64(inputRate))

	return &wavInputInfo{
		file:         inputFile,
		decoder:      decoder,
		rate:         inputRate,
		channels:     channels,
		bitDepth:     bitDepth,
		totalSamples: totalSamples,
		format:       format,
	}, nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// convertIn normalizes interleaved int PCM samples into dst as [-1, 1] floats.
func convertIn[F simdops.Float](data []int, dst []F, invMaxVal float64) {
	for i, s := range data {
		dst[i] = F(float64(s) * invMaxVal)
	}
}

// convertOut denormalizes interleaved float samples into dst, clamping to
// [-1, 1]. Returns the number of elements written.
func convertOut[F simdops.Float](src []F, dst []int, maxVal float64) int {
	for i, v := range src {
		sample := float64(v)
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}
		dst[i] = int(math.Round(sample * maxVal))
	}
	return len(src)
}

// scanPeak runs the auto-gain pre-scan pass: it reads the whole file and
// returns the highest sample magnitude, oversampled when truePeak is set.
// The oversampler's group delay is drained with zero frames so late peaks
// are not missed.
func scanPeak[F simdops.Float](input *wavInputInfo, truePeak bool) (float64, error) {
	var up *engine.Upsampler[F]
	if truePeak {
		up = engine.NewUpsampler[F](input.channels)
	}

	intBuf := &audio.IntBuffer{
		Format: input.format,
		Data:   make([]int, blockFrames*input.channels),
	}
	floatBuf := make([]F, blockFrames*input.channels)
	invMaxVal := 1.0 / getMaxValue(input.bitDepth)

	var pk F
	for {
		n, err := input.decoder.PCMBuffer(intBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}
		samples := intBuf.Data[:n*input.channels]
		buf := floatBuf[:len(samples)]
		convertIn(samples, buf, invMaxVal)

		if up != nil {
			pk, err = up.PeakAll(buf, pk)
			if err != nil {
				return 0, err
			}
		} else {
			for _, v := range buf {
				if v < 0 {
					v = -v
				}
				if v > pk {
					pk = v
				}
			}
		}
		intBuf.Data = intBuf.Data[:cap(intBuf.Data)]
	}

	if up != nil {
		drain := make([]F, up.Latency()*input.channels)
		var err error
		pk, err = up.PeakAll(drain, pk)
		if err != nil {
			return 0, err
		}
	}
	return float64(pk), nil
}

// autoGainDB derives the input gain that lands the scanned peak on the
// threshold, clamped to the supported gain range.
func autoGainDB(peak, thresholdDB float64) float64 {
	gain := thresholdDB - mathutil.GainToDB(peak)
	if math.IsInf(gain, 1) || gain > maxInputGainDB {
		return maxInputGainDB
	}
	if gain < minInputGainDB {
		return minInputGainDB
	}
	return gain
}

// fastWAVWriter writes PCM data directly without per-sample allocations.
type fastWAVWriter struct {
	w          *bufio.Writer
	f          *os.File
	sampleRate int
	bitDepth   int
	channels   int
	dataSize   uint32
	byteBuf    []byte // Preallocated buffer for encoding
}

// newFastWAVWriter creates a WAV writer matching the input's format.
func newFastWAVWriter(f *os.File, sampleRate, bitDepth, channels int) (*fastWAVWriter, error) {
	w := &fastWAVWriter{
		w:          bufio.NewWriterSize(f, wavWriterBufferSize),
		f:          f,
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		channels:   channels,
		byteBuf:    make([]byte, blockFrames*channels*(bitDepth/bitsPerByte)),
	}

	// Write WAV header (44 bytes) with placeholder sizes
	if err := w.writeHeader(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *fastWAVWriter) writeHeader() error {
	byteRate := w.sampleRate * w.channels * (w.bitDepth / bitsPerByte)
	blockAlign := w.channels * (w.bitDepth / bitsPerByte)

	header := make([]byte, wavHeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // Placeholder for file size - 8
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)   // Subchunk1Size (16 for PCM)
	binary.LittleEndian.PutUint16(header[20:22], 1)                    // AudioFormat (1 = PCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))   // NumChannels
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate)) // SampleRate
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))     // ByteRate
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))   // BlockAlign
	binary.LittleEndian.PutUint16(header[34:36], uint16(w.bitDepth))   // BitsPerSample

	// data subchunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // Placeholder for data size

	_, err := w.w.Write(header)
	return err
}

// WriteSamples writes interleaved samples using the configured bit depth.
func (w *fastWAVWriter) WriteSamples(samples []int) error {
	switch w.bitDepth {
	case bitsPerSample24:
		return w.writeSamples24(samples)
	case bitsPerSample32:
		return w.writeSamples32(samples)
	default:
		return w.writeSamples16(samples)
	}
}

func (w *fastWAVWriter) writeSamples16(samples []int) error {
	needed := len(samples) * bytesPerSample16
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}

	buf := w.byteBuf[:needed]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*bytesPerSample16:], uint16(int16(s)))
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

func (w *fastWAVWriter) writeSamples24(samples []int) error {
	needed := len(samples) * bytesPerSample24
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}

	buf := w.byteBuf[:needed]
	for i, s := range samples {
		buf[i*bytesPerSample24] = byte(s)
		buf[i*bytesPerSample24+1] = byte(s >> bitShift8)
		buf[i*bytesPerSample24+2] = byte(s >> bitShift16)
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

func (w *fastWAVWriter) writeSamples32(samples []int) error {
	needed := len(samples) * bytesPerSample32
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}

	buf := w.byteBuf[:needed]
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample32:], uint32(int32(s)))
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

// Close flushes the buffer and updates the WAV header with final sizes.
func (w *fastWAVWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}

	// Patch the RIFF and data chunk sizes written as placeholders.
	fileSize := wavRiffHeaderSize + w.dataSize

	if _, err := w.f.Seek(wavFileSizeOffset, io.SeekStart); err != nil {
		return err
	}
	sizeBytes := make([]byte, uint32Size)
	binary.LittleEndian.PutUint32(sizeBytes, fileSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	if _, err := w.f.Seek(wavDataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, w.dataSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	return nil
}
