package modem

import "math"

// Frame layout constants, in seconds unless noted.
const (
	StartToneDuration = 0.2
	EndToneDuration   = 0.2
	GapDuration       = 0.1

	// Headroom is the peak amplitude of a normalized signal.
	Headroom = 0.8

	// MaxFadeSamples caps the linear ramp applied to each tone edge.
	MaxFadeSamples = 100
)

// Config is shared out of band by both ends of a transmission. Nothing in it
// is ever negotiated over the channel.
//
// The decoder reads the recording in BitDuration chunks, so the fixed start
// tone, gaps and end tone only line up with chunk edges when their durations
// are whole multiples of BitDuration (0.1, 0.05, 0.02 ...). Other values pass
// Validate, but the misaligned gap chunks can be read as extra bits.
type Config struct {
	SampleRate    int     `yaml:"sample_rate" mapstructure:"sample_rate"`
	BitDuration   float64 `yaml:"bit_duration" mapstructure:"bit_duration"`
	Freq0         float64 `yaml:"freq_0" mapstructure:"freq_0"`
	Freq1         float64 `yaml:"freq_1" mapstructure:"freq_1"`
	FreqStart     float64 `yaml:"freq_start" mapstructure:"freq_start"`
	FreqEnd       float64 `yaml:"freq_end" mapstructure:"freq_end"`
	FreqTolerance float64 `yaml:"freq_tolerance" mapstructure:"freq_tolerance"`
	MinAmplitude  float64 `yaml:"min_amplitude" mapstructure:"min_amplitude"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    44100,
		BitDuration:   0.1,
		Freq0:         1000,
		Freq1:         2000,
		FreqStart:     500,
		FreqEnd:       3000,
		FreqTolerance: 50,
		MinAmplitude:  0.01,
	}
}

// SamplesPerBit is the length of one bit tone and of one decoder chunk.
func (c Config) SamplesPerBit() int {
	return sampleCount(c.BitDuration, c.SampleRate)
}

// FrameSamples is the total length of the signal that carries nBits.
func (c Config) FrameSamples(nBits int) int {
	return sampleCount(StartToneDuration, c.SampleRate) +
		2*sampleCount(GapDuration, c.SampleRate) +
		nBits*c.SamplesPerBit() +
		sampleCount(EndToneDuration, c.SampleRate)
}

func (c Config) named() [4]float64 {
	return [4]float64{c.FreqStart, c.FreqEnd, c.Freq0, c.Freq1}
}

func (c Config) Validate() error {
	if math.IsNaN(c.BitDuration) || c.BitDuration <= 0 {
		return newError(InvalidDuration, "bit duration %v must be positive", c.BitDuration)
	}
	if c.SampleRate <= 0 {
		return newError(InvalidConfig, "sample rate %d must be positive", c.SampleRate)
	}
	if !(c.FreqTolerance > 0) {
		return newError(InvalidConfig, "frequency tolerance %v must be positive", c.FreqTolerance)
	}
	if !(c.MinAmplitude >= 0) {
		return newError(InvalidConfig, "minimum amplitude %v must not be negative", c.MinAmplitude)
	}
	nyquist := float64(c.SampleRate) / 2
	freqs := c.named()
	for i, f := range freqs {
		// 0 Hz stands for silence and must fall outside every window
		if !(f-c.FreqTolerance > 0) || !(f+c.FreqTolerance < nyquist) {
			return newError(InvalidConfig, "frequency %v±%v Hz outside (0, %v) Hz", f, c.FreqTolerance, nyquist)
		}
		for _, g := range freqs[i+1:] {
			if math.Abs(f-g) <= 2*c.FreqTolerance {
				return newError(InvalidConfig, "frequencies %v Hz and %v Hz closer than twice the tolerance", f, g)
			}
		}
	}
	if n := c.SamplesPerBit(); n < 2 {
		return newError(InvalidConfig, "%d samples per bit is too short", n)
	}
	return nil
}

func sampleCount(duration float64, sampleRate int) int {
	return int(math.Round(duration * float64(sampleRate)))
}
