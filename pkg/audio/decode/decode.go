// Package decode turns audio files into mono float64 PCM suitable for
// feature extraction. Stereo sources are downmixed by channel average.
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Buffer holds decoded mono PCM
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// DurationMs returns the buffer length in milliseconds
func (b *Buffer) DurationMs() int64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return int64(float64(len(b.Samples)) / float64(b.SampleRate) * 1000.0)
}

// File decodes an audio file by extension. Supported: .mp3, .wav.
func File(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return MP3(f)
	case ".wav":
		return WAV(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
}

// MP3 decodes an MP3 stream to mono PCM. go-mp3 always emits 16-bit
// stereo interleaved regardless of the source channel layout.
func MP3(r io.Reader) (*Buffer, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return pcm16ToMono(pcm, 2, decoder.SampleRate())
}

// WAV decodes a RIFF/WAVE stream carrying 16-bit PCM.
func WAV(r io.Reader) (*Buffer, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		data       []byte
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("failed to read WAV chunk: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			fmtChunk := make([]byte, size)
			if _, err := io.ReadFull(r, fmtChunk); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if len(fmtChunk) < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", len(fmtChunk))
			}
			format := binary.LittleEndian.Uint16(fmtChunk[0:2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported WAV encoding %d, expected PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
		case "data":
			data = make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("failed to read data chunk: %w", err)
			}
		default:
			// Chunks are word aligned
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("failed to skip %s chunk: %w", id, err)
			}
		}

		if data != nil && sampleRate > 0 {
			break
		}
	}

	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if data == nil {
		return nil, fmt.Errorf("missing data chunk")
	}
	if bitDepth != 16 {
		return nil, fmt.Errorf("unsupported WAV bit depth %d, expected 16", bitDepth)
	}

	return pcm16ToMono(data, channels, sampleRate)
}

// PCM16 converts raw 16-bit little-endian interleaved PCM to mono.
func PCM16(data []byte, channels, sampleRate int) (*Buffer, error) {
	return pcm16ToMono(data, channels, sampleRate)
}

func pcm16ToMono(data []byte, channels, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	frameBytes := channels * 2
	frames := len(data) / frameBytes
	samples := make([]float64, frames)

	for i := 0; i < frames; i++ {
		offset := i * frameBytes
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := int16(binary.LittleEndian.Uint16(data[offset+ch*2:]))
			sum += float64(v)
		}
		samples[i] = sum / float64(channels) / 32768.0
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}
