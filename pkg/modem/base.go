// Package modem implements a single-message acoustic FSK link: each bit is a
// tone at one of two frequencies, delimited by a start and an end tone.
package modem

import "go.uber.org/zap"

type Modem interface {
	Modulate(text string) (Signal, error)
	Demodulate(samples []float32) (*Result, error)
}

// FSK pairs a Modulator and a Demodulator sharing one Config.
type FSK struct {
	Modulator
	Demodulator
}

func NewFSK(cfg Config, logger *zap.Logger) *FSK {
	return &FSK{
		Modulator:   Modulator{Config: cfg, Logger: logger},
		Demodulator: Demodulator{Config: cfg, Logger: logger},
	}
}

func (m *FSK) Config() Config {
	return m.Modulator.Config
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
