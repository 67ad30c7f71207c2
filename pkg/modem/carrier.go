package modem

import "math"

type CarrierConfig struct {
	Amplitude  float64
	Freq       float64
	Phase      float64
	SampleRate float64
	Size       int
}

func (p CarrierConfig) New() []float64 {
	signal := make([]float64, p.Size)
	for i := 0; i < p.Size; i++ {
		t := float64(i) / p.SampleRate
		signal[i] = p.Amplitude * math.Sin(2*math.Pi*p.Freq*t+p.Phase)
	}
	return signal
}

// GenerateTone returns round(sampleRate*duration) samples of a unit sine at
// freq with linear fades on both edges.
func GenerateTone(freq, duration float64, sampleRate int) ([]float64, error) {
	if math.IsNaN(duration) || duration < 0 {
		return nil, newError(InvalidDuration, "tone duration %v", duration)
	}
	if sampleRate <= 0 {
		return nil, newError(InvalidConfig, "sample rate %d must be positive", sampleRate)
	}
	tone := CarrierConfig{
		Amplitude:  1,
		Freq:       freq,
		SampleRate: float64(sampleRate),
		Size:       sampleCount(duration, sampleRate),
	}.New()
	applyFade(tone)
	return tone, nil
}

// Silence returns round(sampleRate*duration) zero samples.
func Silence(duration float64, sampleRate int) ([]float64, error) {
	if math.IsNaN(duration) || duration < 0 {
		return nil, newError(InvalidDuration, "silence duration %v", duration)
	}
	if sampleRate <= 0 {
		return nil, newError(InvalidConfig, "sample rate %d must be positive", sampleRate)
	}
	return make([]float64, sampleCount(duration, sampleRate)), nil
}

// fadeLength is min(MaxFadeSamples, n/10).
func fadeLength(n int) int {
	return min(MaxFadeSamples, n/10)
}

// ramp(k) is the k-th of fade evenly spaced points from 0 to 1 inclusive.
func ramp(k, fade int) float64 {
	if fade <= 1 {
		return 0
	}
	return float64(k) / float64(fade-1)
}

func applyFade(signal []float64) {
	n := len(signal)
	fade := fadeLength(n)
	for k := 0; k < fade; k++ {
		r := ramp(k, fade)
		signal[k] *= r
		signal[n-1-k] *= r
	}
}
