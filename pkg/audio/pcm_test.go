package audio

import "testing"

func TestPCM16Float64RoundTrip(t *testing.T) {
	src := []int16{0, 1, -1, 16384, -16384, 32767, -32768}
	f := make([]float64, len(src))
	back := make([]int16, len(src))

	PCM16ToFloat64(src, f)
	Float64ToPCM16(f, back)

	for i := range src {
		// One-count slack: the scale down uses 32768, the scale up 32767.
		diff := int(src[i]) - int(back[i])
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d: %d -> %v -> %d", i, src[i], f[i], back[i])
		}
	}
}

func TestFloat64ToPCM16Clips(t *testing.T) {
	src := []float64{2.0, -2.0, 1.0, -1.0}
	dst := make([]int16, len(src))
	Float64ToPCM16(src, dst)

	if dst[0] != 32767 {
		t.Errorf("expected +2.0 to clip to 32767, got %d", dst[0])
	}
	if dst[1] != -32767 {
		t.Errorf("expected -2.0 to clip to -32767, got %d", dst[1])
	}
	if dst[2] != 32767 || dst[3] != -32767 {
		t.Errorf("full-scale samples mangled: %d, %d", dst[2], dst[3])
	}
}

func TestBytesPCM16RoundTrip(t *testing.T) {
	samples := []int16{0, 257, -2, 32767, -32768}
	data := PCM16ToBytes(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(data))
	}

	back := BytesToPCM16(data)
	if len(back) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(back))
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, back[i], samples[i])
		}
	}
}

func TestBytesToPCM16DropsTrailingByte(t *testing.T) {
	got := BytesToPCM16([]byte{0x01, 0x00, 0xff})
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected single sample 1, got %v", got)
	}
}
