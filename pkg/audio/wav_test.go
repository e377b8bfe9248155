package audio

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestNewWavBuffer(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	sampleRate := 16000
	wav := NewWavBuffer(pcm, sampleRate)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("Expected RIFF prefix")
	}

	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("Expected WAVE format identifier")
	}

	expectedLen := 44 + len(pcm)
	if len(wav) != expectedLen {
		t.Errorf("Expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestDecodeWavRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 42}
	wav := NewWavBuffer(PCM16ToBytes(samples), 16000)

	got, err := DecodeWavPCM16Mono(wav, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestDecodeWavRejectsGarbage(t *testing.T) {
	_, err := DecodeWavPCM16Mono([]byte("definitely not a wav file, not even close!!!"), 16000)
	if !errors.Is(err, ErrNotWav) {
		t.Errorf("expected ErrNotWav, got %v", err)
	}

	_, err = DecodeWavPCM16Mono(nil, 16000)
	if !errors.Is(err, ErrNotWav) {
		t.Errorf("expected ErrNotWav for empty input, got %v", err)
	}
}

func TestDecodeWavRejectsWrongRate(t *testing.T) {
	wav := NewWavBuffer(PCM16ToBytes([]int16{1, 2, 3}), 44100)
	_, err := DecodeWavPCM16Mono(wav, 16000)
	if !errors.Is(err, ErrSampleRateMismatch) {
		t.Errorf("expected ErrSampleRateMismatch, got %v", err)
	}

	// Any rate accepted when wantRate <= 0.
	if _, err := DecodeWavPCM16Mono(wav, 0); err != nil {
		t.Errorf("unexpected error with rate check disabled: %v", err)
	}
}

func TestDecodeWavRejectsStereo(t *testing.T) {
	wav := NewWavBuffer(PCM16ToBytes([]int16{1, 2, 3, 4}), 16000)
	// Channel count lives at offset 22 in the canonical header.
	wav[22] = 2
	_, err := DecodeWavPCM16Mono(wav, 16000)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadWriteWavFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	samples := []int16{5, -5, 1000, -1000}

	if err := WriteWavFile(path, samples, 16000); err != nil {
		t.Fatal(err)
	}

	got, err := ReadWavPCM16Mono(path, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}

	if _, err := ReadWavPCM16Mono(filepath.Join(t.TempDir(), "missing.wav"), 16000); err == nil {
		t.Fatal("expected error for missing file")
	}
}
