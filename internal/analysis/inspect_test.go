package analysis

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundchat/pkg/modem"
)

func TestInspectFrame(t *testing.T) {
	cfg := modem.DefaultConfig()
	sig, err := modem.Encode("HI", cfg)
	require.NoError(t, err)

	r, err := Inspect(sig.Float32(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, sig.Len(), r.Samples)
	assert.InDelta(t, 0.8, r.Max, 1e-2)
	assert.InDelta(t, -0.8, r.Min, 1e-2)
	assert.Greater(t, r.RMS, 0.1)

	require.Len(t, r.Chunks, 22)
	assert.Equal(t, 2, r.Counts[modem.Start])
	assert.Equal(t, 11, r.Counts[modem.Zero])
	assert.Equal(t, 5, r.Counts[modem.One])
	assert.Equal(t, 2, r.Counts[modem.End])
	assert.Equal(t, 2, r.Counts[modem.Noise])

	require.NoError(t, r.Err)
	require.NotNil(t, r.Result)
	assert.Equal(t, "HI", r.Result.Text)

	// most of the frame is spent on the '0' tone
	assert.InDelta(t, 1000, r.Spectrum.PeakFrequency, 20)
	assert.Greater(t, r.Spectrum.ToneToFloor(), 20.0)
}

func TestInspectSilence(t *testing.T) {
	cfg := modem.DefaultConfig()
	r, err := Inspect(make([]float32, cfg.SampleRate), cfg, nil)
	require.NoError(t, err)

	assert.Nil(t, r.Result)
	assert.ErrorIs(t, r.Err, modem.ErrNoStartSignal)
	assert.Equal(t, 10, r.Counts[modem.Noise])
	assert.True(t, math.IsInf(r.Spectrum.ToneToFloor(), 1))

	var buf bytes.Buffer
	_, err = r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no start signal")
}

func TestInspectInvalidConfig(t *testing.T) {
	cfg := modem.DefaultConfig()
	cfg.BitDuration = 0
	_, err := Inspect(nil, cfg, nil)
	assert.ErrorIs(t, err, modem.ErrInvalidDuration)
}

func TestWelchPureTone(t *testing.T) {
	const sampleRate = 8000
	x := make([]float64, sampleRate)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 1500 * float64(i) / sampleRate)
	}

	s := Welch(x, sampleRate, 800)
	assert.Equal(t, 1024, s.NFFT)
	assert.InDelta(t, 1500, s.PeakFrequency, float64(sampleRate)/1024)
}

func TestReportWriteTo(t *testing.T) {
	cfg := modem.DefaultConfig()
	sig, err := modem.Encode("OK", cfg)
	require.NoError(t, err)
	r, err := Inspect(sig.Float32(), cfg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	assert.Contains(t, out, `text:        "OK"`)
	assert.Contains(t, out, "START")
	assert.Contains(t, out, "END")
	assert.Contains(t, out, "freq (Hz)")
}
