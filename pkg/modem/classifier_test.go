package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestDominantFrequency(t *testing.T) {
	for _, freq := range []float64{500, 1000, 1300, 2000, 3000} {
		tone, err := GenerateTone(freq, 0.1, 44100)
		require.NoError(t, err)
		got := DominantFrequency(Float64ToFloat32(tone), 44100, 0.01)
		assert.Equal(t, freq, got)
	}
}

func TestDominantFrequencySilence(t *testing.T) {
	assert.Equal(t, 0.0, DominantFrequency(make([]float32, 4410), 44100, 0.01))
	assert.Equal(t, 0.0, DominantFrequency(nil, 44100, 0.01))
	assert.Equal(t, 0.0, DominantFrequency([]float32{0.9}, 44100, 0.01))

	// a real tone far below the amplitude floor is still silence
	tone, err := GenerateTone(1000, 0.1, 44100)
	require.NoError(t, err)
	quiet := Float64ToFloat32(tone)
	for i := range quiet {
		quiet[i] *= 1e-6
	}
	assert.Equal(t, 0.0, DominantFrequency(quiet, 44100, 0.01))
	assert.Equal(t, Noise, Classify(DominantFrequency(quiet, 44100, 0.01), DefaultConfig()))
}

func TestDominantFrequencyNoisy(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tone, err := GenerateTone(2000, 0.1, 44100)
	require.NoError(t, err)
	chunk := make([]float32, len(tone))
	for i, v := range tone {
		chunk[i] = float32(0.5*v + 0.1*(rng.Float64()*2-1))
	}
	assert.Equal(t, One, Classify(DominantFrequency(chunk, 44100, 0.01), DefaultConfig()))
}

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		freq float64
		want Classification
	}{
		{500, Start},
		{549.9, Start},
		{550, Noise},
		{450.1, Start},
		{3000, End},
		{2960, End},
		{1000, Zero},
		{1049, Zero},
		{2000, One},
		{1950.5, One},
		{1300, Noise},
		{1500, Noise},
		{0, Noise},
		{10000, Noise},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.freq, cfg), "%v Hz", tt.freq)
	}
}

func TestClassificationWindowsDoNotOverlap(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	for f := 0.0; f <= 4000; f += 0.25 {
		matches := 0
		for _, named := range cfg.named() {
			if abs(f-named) < cfg.FreqTolerance {
				matches++
			}
		}
		assert.LessOrEqual(t, matches, 1, "%v Hz", f)
	}
}

// 0 Hz is what the detector reports for silence, so no accepted config may
// give it a named window.
func TestSilenceIsNoiseForEveryValidConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	accepted := 0
	for i := 0; i < 2000; i++ {
		cfg := Config{
			SampleRate:    []int{8000, 10240, 22050, 44100, 48000}[rng.Intn(5)],
			BitDuration:   0.1,
			Freq0:         rng.Float64() * 4000,
			Freq1:         rng.Float64() * 4000,
			FreqStart:     rng.Float64() * 4000,
			FreqEnd:       rng.Float64() * 4000,
			FreqTolerance: 1 + rng.Float64()*150,
		}
		if cfg.Validate() != nil {
			continue
		}
		accepted++
		assert.Equal(t, Noise, Classify(0, cfg), "%+v", cfg)
	}
	require.Positive(t, accepted)

	cfg := DefaultConfig()
	cfg.FreqStart = 51
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Noise, Classify(0, cfg))
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "START", Start.String())
	assert.Equal(t, "END", End.String())
	assert.Equal(t, "0", Zero.String())
	assert.Equal(t, "1", One.String())
	assert.Equal(t, "NOISE", Noise.String())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
