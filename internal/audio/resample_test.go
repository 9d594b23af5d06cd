package audio

import (
	"math"
	"testing"
)

func sine(n int, freq float64, rate int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestResampleIdentity(t *testing.T) {
	for _, rate := range []int{8000, 16000, 24000, 44100, 48000} {
		in := sine(480, 440, rate)
		out := Resample(in, rate, rate)
		if len(out) != len(in) {
			t.Fatalf("rate %d: length changed", rate)
		}
		for i := range in {
			if out[i] != in[i] {
				t.Fatalf("rate %d: sample %d changed", rate, i)
			}
		}
	}
}

func TestResampleOutputLength(t *testing.T) {
	cases := []struct {
		n, from, to int
	}{
		{4800, 48000, 24000},
		{4410, 44100, 24000},
		{1200, 24000, 48000},
		{160, 16000, 24000},
		{1, 48000, 24000},
	}
	for _, c := range cases {
		out := Resample(sine(c.n, 200, c.from), c.from, c.to)
		want := float64(c.n) * float64(c.to) / float64(c.from)
		if math.Abs(float64(len(out))-want) > 1 {
			t.Fatalf("%d @ %d->%d: got len %d want ~%.1f", c.n, c.from, c.to, len(out), want)
		}
	}
}

func TestResampleUpDownReconstructs(t *testing.T) {
	in := sine(2400, 440, 24000)
	up := Resample(in, 24000, 48000)
	down := Resample(up, 48000, 24000)

	n := len(in)
	if len(down) < n {
		n = len(down)
	}
	var maxErr float64
	for i := 0; i < n; i++ {
		if d := math.Abs(float64(in[i]) - float64(down[i])); d > maxErr {
			maxErr = d
		}
	}
	// Linear interpolation error for a 440Hz tone at these rates is small
	// relative to the 10000-amplitude signal.
	if maxErr > 200 {
		t.Fatalf("reconstruction error too large: %f", maxErr)
	}
}

func TestResampleDeterministic(t *testing.T) {
	in := sine(441, 440, 44100)
	a := Resample(in, 44100, 24000)
	b := Resample(in, 44100, 24000)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic output at %d", i)
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	if out := Resample(nil, 48000, 24000); len(out) != 0 {
		t.Fatalf("expected empty output")
	}
}
