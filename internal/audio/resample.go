package audio

import "math"

// Resample converts samples from one rate to another using linear
// interpolation. When the rates match the input is returned as-is; the caller
// must not rely on getting a fresh slice back. Output length is
// round(len(samples) * toRate / fromRate). No extrapolation past the last
// sample: positions beyond the upper index clamp to it.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	out := make([]int16, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		if idx+1 < len(samples) {
			v := float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac
			out[i] = clampSample(v)
		} else if idx < len(samples) {
			out[i] = samples[idx]
		}
	}
	return out
}

func clampSample(v float64) int16 {
	r := math.Round(v)
	if r > 32767 {
		return 32767
	}
	if r < -32768 {
		return -32768
	}
	return int16(r)
}
