package modem

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

type Classification int

const (
	Noise Classification = iota
	Start
	End
	Zero
	One
)

func (c Classification) String() string {
	switch c {
	case Start:
		return "START"
	case End:
		return "END"
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "NOISE"
	}
}

// Classify maps a dominant frequency to the named tone it lies within
// tolerance of. Start, End, Zero and One are tried in that order.
func Classify(freq float64, cfg Config) Classification {
	switch {
	case math.Abs(freq-cfg.FreqStart) < cfg.FreqTolerance:
		return Start
	case math.Abs(freq-cfg.FreqEnd) < cfg.FreqTolerance:
		return End
	case math.Abs(freq-cfg.Freq0) < cfg.FreqTolerance:
		return Zero
	case math.Abs(freq-cfg.Freq1) < cfg.FreqTolerance:
		return One
	default:
		return Noise
	}
}

// detector finds spectral peaks of chunks. It keeps the FFT plan and work
// buffers of the last chunk length so equal sized chunks share them.
type detector struct {
	sampleRate   int
	minAmplitude float64

	fft    *fourier.FFT
	buf    []float64
	coeffs []complex128
	mags   []float64
}

func newDetector(sampleRate int, minAmplitude float64) *detector {
	return &detector{sampleRate: sampleRate, minAmplitude: minAmplitude}
}

func (d *detector) resize(n int) {
	if d.fft != nil && d.fft.Len() == n {
		return
	}
	d.fft = fourier.NewFFT(n)
	d.buf = make([]float64, n)
	d.coeffs = make([]complex128, n/2+1)
	d.mags = make([]float64, n/2)
}

// dominant returns the frequency of the strongest bin of the Hann windowed
// chunk, or 0 when that bin is weaker than minAmplitude.
func (d *detector) dominant(chunk []float32) float64 {
	n := len(chunk)
	if n < 2 {
		return 0
	}
	d.resize(n)

	for i, v := range chunk {
		d.buf[i] = float64(v)
	}
	window.Hann(d.buf)
	d.coeffs = d.fft.Coefficients(d.coeffs, d.buf)

	for k := range d.mags {
		d.mags[k] = cmplx.Abs(d.coeffs[k])
	}
	idx := floats.MaxIdx(d.mags)
	if d.mags[idx] < d.minAmplitude {
		return 0
	}
	return float64(idx) * float64(d.sampleRate) / float64(n)
}

// DominantFrequency reports the frequency of the largest non-negative
// spectral bin of chunk. A return of 0 means no bin reached minAmplitude.
func DominantFrequency(chunk []float32, sampleRate int, minAmplitude float64) float64 {
	return newDetector(sampleRate, minAmplitude).dominant(chunk)
}
