package modem

import (
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Modulator turns text into a framed FSK signal:
//
//	start tone | gap | one tone per bit | gap | end tone
//
// normalized so that its peak equals Headroom.
type Modulator struct {
	Config Config
	Logger *zap.Logger
}

func (m *Modulator) Modulate(text string) (Signal, error) {
	log := orNop(m.Logger)

	if strings.TrimSpace(text) == "" {
		return Signal{}, newError(EmptyMessage, "nothing to send")
	}
	if err := m.Config.Validate(); err != nil {
		return Signal{}, err
	}

	bits, err := TextToBits(text)
	if err != nil {
		return Signal{}, err
	}
	log.Debug("binary representation", zap.String("bits", bits), zap.Int("length", len(bits)))

	cfg := m.Config
	start, err := GenerateTone(cfg.FreqStart, StartToneDuration, cfg.SampleRate)
	if err != nil {
		return Signal{}, err
	}
	end, err := GenerateTone(cfg.FreqEnd, EndToneDuration, cfg.SampleRate)
	if err != nil {
		return Signal{}, err
	}
	gap, err := Silence(GapDuration, cfg.SampleRate)
	if err != nil {
		return Signal{}, err
	}
	var carriers [2][]float64
	if carriers[0], err = GenerateTone(cfg.Freq0, cfg.BitDuration, cfg.SampleRate); err != nil {
		return Signal{}, err
	}
	if carriers[1], err = GenerateTone(cfg.Freq1, cfg.BitDuration, cfg.SampleRate); err != nil {
		return Signal{}, err
	}

	samples := make([]float64, 0, cfg.FrameSamples(len(bits)))
	samples = append(samples, start...)
	samples = append(samples, gap...)
	for i := 0; i < len(bits); i++ {
		samples = append(samples, carriers[bits[i]-'0']...)
		if (i+1)%bitsPerByte == 0 {
			log.Debug("encoded byte", zap.Int("byte", (i+1)/bitsPerByte), zap.Int("total", len(bits)/bitsPerByte))
		}
	}
	samples = append(samples, gap...)
	samples = append(samples, end...)

	normalize(samples)

	sig := Signal{Samples: samples, SampleRate: cfg.SampleRate}
	log.Debug("signal created", zap.Int("samples", sig.Len()), zap.Duration("duration", sig.Duration()))
	return sig, nil
}

// normalize scales samples so that the largest magnitude equals Headroom.
// An all-zero buffer is left untouched.
func normalize(samples []float64) {
	if p := peak(samples); p > 0 {
		floats.Scale(Headroom/p, samples)
	}
}

// Encode modulates text with cfg.
func Encode(text string, cfg Config) (Signal, error) {
	m := Modulator{Config: cfg}
	return m.Modulate(text)
}
