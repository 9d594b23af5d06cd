package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// WireSampleRate is the sample rate used on the wire in both directions:
// mono 16-bit signed little-endian PCM at 24kHz, base64-encoded per chunk.
const WireSampleRate = 24000

// EncodeChunk packs samples as little-endian PCM16 and base64-encodes them.
// Each chunk is encoded independently; there is no shared framing state.
func EncodeChunk(samples []int16) string {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeChunk reverses EncodeChunk. A malformed trailing byte (odd-length
// payload) is dropped rather than treated as an error.
func DecodeChunk(data string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	n := len(raw) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

// RMS returns the root-mean-square energy of the frame normalized to 0..1.
// Empty frames have zero energy.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
