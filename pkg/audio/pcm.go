// Package audio holds the PCM and WAV glue shared by the echogate demos.
// The suppressor core works on normalized float blocks; everything here
// converts to and from the 16-bit little-endian PCM used at the device and
// file boundaries, at the fixed ±32768 scale.
package audio

import "math"

const pcmScale = 32768.0

// PCM16ToFloat64 converts int16 samples into normalized floats in [-1, 1).
// dst must be at least as long as src; no allocation, so it is usable inside
// an audio callback.
func PCM16ToFloat64(src []int16, dst []float64) {
	for i, s := range src {
		dst[i] = float64(s) / pcmScale
	}
}

// Float64ToPCM16 converts normalized floats back to int16, clipping to
// [-1, 1] first. Clipping happens here, at the re-encoding boundary, not in
// the suppressor's float domain.
func Float64ToPCM16(src []float64, dst []int16) {
	for i, v := range src {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = int16(math.Round(v * 32767))
	}
}

// BytesToPCM16 decodes 16-bit little-endian PCM bytes into samples. A
// trailing odd byte is dropped.
func BytesToPCM16(data []byte) []int16 {
	samples := make([]int16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		samples = append(samples, int16(data[i])|(int16(data[i+1])<<8))
	}
	return samples
}

// PCM16ToBytes encodes samples as 16-bit little-endian PCM bytes.
func PCM16ToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[2*i] = byte(s)
		data[2*i+1] = byte(s >> 8)
	}
	return data
}
