//go:build windows

package device

import (
	"github.com/xsjk/go-asio"
	"go.uber.org/zap"
)

// ASIOMono drives one input and one output channel of an ASIO driver.
// Channels the driver does not expose read as silence and are not played.
type ASIOMono struct {
	DeviceName string
	SampleRate float64
	InChannel  int
	OutChannel int
	Logger     *zap.Logger

	device  asio.Device
	silence []int32
	discard []int32
}

func newASIO(o Options) (Device, error) {
	return &ASIOMono{
		DeviceName: o.Name,
		SampleRate: float64(o.SampleRate),
		InChannel:  o.InChannel,
		OutChannel: o.OutChannel,
		Logger:     o.Logger,
	}, nil
}

func (a *ASIOMono) Start(callback func([]int32, []int32)) error {
	a.device.Load(a.DeviceName)
	a.device.SetSampleRate(a.SampleRate)
	a.device.Open()
	a.device.Start(func(in, out [][]int32) {
		callback(a.pick(in, a.InChannel, &a.silence), a.pick(out, a.OutChannel, &a.discard))
	})
	if a.Logger != nil {
		a.Logger.Debug("asio device started", zap.String("driver", a.DeviceName), zap.Float64("sample_rate", a.SampleRate))
	}
	return nil
}

func (a *ASIOMono) pick(channels [][]int32, ch int, spare *[]int32) []int32 {
	if ch >= 0 && ch < len(channels) {
		return channels[ch]
	}
	n := BufferSize
	if len(channels) > 0 {
		n = len(channels[0])
	}
	if cap(*spare) < n {
		*spare = alloci32(n)
	}
	buf := (*spare)[:n]
	cleari32(buf)
	return buf
}

func (a *ASIOMono) Stop() {
	a.device.Stop()
	a.device.Close()
	a.device.Unload()
}
