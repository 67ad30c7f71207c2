package modem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// concat builds a recording from tone segments of (freq, seconds); a zero
// frequency is silence.
func concat(t *testing.T, sampleRate int, segments ...[2]float64) []float32 {
	t.Helper()
	var out []float64
	for _, seg := range segments {
		var part []float64
		var err error
		if seg[0] == 0 {
			part, err = Silence(seg[1], sampleRate)
		} else {
			part, err = GenerateTone(seg[0], seg[1], sampleRate)
		}
		require.NoError(t, err)
		out = append(out, part...)
	}
	return Float64ToFloat32(out)
}

func bitTones(cfg Config, bits string) [][2]float64 {
	segs := make([][2]float64, len(bits))
	for i, b := range bits {
		f := cfg.Freq0
		if b == '1' {
			f = cfg.Freq1
		}
		segs[i] = [2]float64{f, cfg.BitDuration}
	}
	return segs
}
