package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotWav is returned when the data carries no RIFF/WAVE header.
	ErrNotWav = errors.New("not a RIFF/WAVE file")

	// ErrUnsupportedFormat is returned for anything other than PCM16 mono.
	ErrUnsupportedFormat = errors.New("unsupported wav format; want PCM16 mono")

	// ErrSampleRateMismatch is returned when the file rate differs from the
	// rate the caller asked for.
	ErrSampleRateMismatch = errors.New("wav sample rate mismatch")
)

// NewWavBuffer wraps raw PCM16 mono bytes in a WAV container.
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWavPCM16Mono parses a WAV file image and returns its samples. The
// file must be PCM16 mono at wantRate; pass wantRate <= 0 to accept any rate.
func DecodeWavPCM16Mono(data []byte, wantRate int) ([]int16, error) {
	if len(data) < 44 ||
		!bytes.Equal(data[0:4], []byte("RIFF")) ||
		!bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, ErrNotWav
	}

	var (
		format, channels, bits uint16
		rate                   uint32
		sawFmt                 bool
		dataChunk              []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8
		if size < 0 || start+size > len(data) {
			// Tolerate a short final data chunk; anything else is garbage.
			if id == "data" && start < len(data) {
				size = len(data) - start
			} else {
				break
			}
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedFormat
			}
			format = binary.LittleEndian.Uint16(data[start : start+2])
			channels = binary.LittleEndian.Uint16(data[start+2 : start+4])
			rate = binary.LittleEndian.Uint32(data[start+4 : start+8])
			bits = binary.LittleEndian.Uint16(data[start+14 : start+16])
			sawFmt = true
		case "data":
			dataChunk = data[start : start+size]
		}
		if sawFmt && dataChunk != nil {
			break
		}
		pos = start + size
	}

	if !sawFmt || dataChunk == nil {
		return nil, ErrNotWav
	}
	if format != 1 || channels != 1 || bits != 16 {
		return nil, ErrUnsupportedFormat
	}
	if wantRate > 0 && int(rate) != wantRate {
		return nil, fmt.Errorf("%w: file is %d Hz, want %d Hz", ErrSampleRateMismatch, rate, wantRate)
	}

	return BytesToPCM16(dataChunk), nil
}

// ReadWavPCM16Mono reads and decodes a PCM16 mono WAV file.
func ReadWavPCM16Mono(path string, wantRate int) ([]int16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav %q: %w", path, err)
	}
	samples, err := DecodeWavPCM16Mono(data, wantRate)
	if err != nil {
		return nil, fmt.Errorf("decode wav %q: %w", path, err)
	}
	return samples, nil
}

// WriteWavFile writes samples as a PCM16 mono WAV file.
func WriteWavFile(path string, samples []int16, sampleRate int) error {
	if err := os.WriteFile(path, NewWavBuffer(PCM16ToBytes(samples), sampleRate), 0o644); err != nil {
		return fmt.Errorf("write wav %q: %w", path, err)
	}
	return nil
}
