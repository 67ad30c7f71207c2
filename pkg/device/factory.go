package device

import (
	"fmt"

	"go.uber.org/zap"
)

// Options selects and configures a device for New.
type Options struct {
	Backend    string // "malgo" (default), "asio" or "loopback"
	Name       string
	SampleRate int
	Mode       Mode
	InChannel  int
	OutChannel int
	Logger     *zap.Logger
}

func New(o Options) (Device, error) {
	switch o.Backend {
	case "", "malgo":
		return &Malgo{DeviceName: o.Name, SampleRate: o.SampleRate, Mode: o.Mode, Logger: o.Logger}, nil
	case "asio":
		return newASIO(o)
	case "loopback":
		return &Loopback{SampleRate: float64(o.SampleRate)}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", o.Backend)
	}
}
