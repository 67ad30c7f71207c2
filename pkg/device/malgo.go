package device

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

type Mode int

const (
	Playback Mode = iota
	Capture
	Duplex
)

func (m Mode) String() string {
	switch m {
	case Playback:
		return "playback"
	case Capture:
		return "capture"
	default:
		return "duplex"
	}
}

func (m Mode) deviceType() malgo.DeviceType {
	switch m {
	case Playback:
		return malgo.Playback
	case Capture:
		return malgo.Capture
	default:
		return malgo.Duplex
	}
}

// Malgo is a mono 32-bit sound card device backed by miniaudio.
type Malgo struct {
	DeviceName string // empty selects the system default
	SampleRate int
	Mode       Mode
	Logger     *zap.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	dev     *malgo.Device
	in, out []int32
}

func backends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

func initContext(logger *zap.Logger) (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(backends(), malgo.ContextConfig{}, func(message string) {
		if logger != nil {
			logger.Debug("miniaudio", zap.String("message", strings.TrimSpace(message)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return ctx, nil
}

func (m *Malgo) Start(callback func([]int32, []int32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := initContext(m.Logger)
	if err != nil {
		return err
	}

	cfg := malgo.DefaultDeviceConfig(m.Mode.deviceType())
	cfg.Capture.Format = malgo.FormatS32
	cfg.Capture.Channels = 1
	cfg.Playback.Format = malgo.FormatS32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(m.SampleRate)
	cfg.PeriodSizeInFrames = BufferSize
	cfg.Alsa.NoMMap = 1

	if m.DeviceName != "" {
		if m.Mode != Playback {
			info, err := selectDevice(ctx, malgo.Capture, m.DeviceName)
			if err != nil {
				freeContext(ctx)
				return err
			}
			cfg.Capture.DeviceID = info.ID.Pointer()
		}
		if m.Mode != Capture {
			info, err := selectDevice(ctx, malgo.Playback, m.DeviceName)
			if err != nil {
				freeContext(ctx)
				return err
			}
			cfg.Playback.DeviceID = info.ID.Pointer()
		}
	}

	onData := func(pOutput, pInput []byte, frames uint32) {
		n := int(frames)
		if cap(m.in) < n {
			m.in = alloci32(n)
			m.out = alloci32(n)
		}
		in, out := m.in[:n], m.out[:n]
		if len(pInput) >= 4*n {
			for i := range in {
				in[i] = int32(binary.LittleEndian.Uint32(pInput[4*i:]))
			}
		} else {
			cleari32(in)
		}
		callback(in, out)
		if len(pOutput) >= 4*n {
			for i, v := range out {
				binary.LittleEndian.PutUint32(pOutput[4*i:], uint32(v))
			}
		}
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		freeContext(ctx)
		return fmt.Errorf("init %s device: %w", m.Mode, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeContext(ctx)
		return fmt.Errorf("start %s device: %w", m.Mode, err)
	}

	m.ctx, m.dev = ctx, dev
	if m.Logger != nil {
		m.Logger.Debug("audio device started", zap.Stringer("mode", m.Mode), zap.Int("sample_rate", m.SampleRate), zap.String("device", m.DeviceName))
	}
	return nil
}

func (m *Malgo) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev != nil {
		_ = m.dev.Stop()
		m.dev.Uninit()
		m.dev = nil
	}
	if m.ctx != nil {
		freeContext(m.ctx)
		m.ctx = nil
	}
}

func freeContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

// Info describes one sound card endpoint.
type Info struct {
	Index   int
	Name    string
	Default bool
}

// ListDevices returns the capture or playback endpoints of the platform
// backend. Duplex lists capture endpoints.
func ListDevices(mode Mode) ([]Info, error) {
	ctx, err := initContext(nil)
	if err != nil {
		return nil, err
	}
	defer freeContext(ctx)

	kind := malgo.Capture
	if mode == Playback {
		kind = malgo.Playback
	}
	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s devices: %w", mode, err)
	}
	out := make([]Info, 0, len(infos))
	for i := range infos {
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		out = append(out, Info{Index: i, Name: infos[i].Name(), Default: infos[i].IsDefault == 1})
	}
	return out, nil
}

func selectDevice(ctx *malgo.AllocatedContext, kind malgo.DeviceType, name string) (*malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	names := make([]string, len(infos))
	for i := range infos {
		names[i] = infos[i].Name()
	}
	idx := MatchDevice(names, name)
	if idx < 0 {
		return nil, fmt.Errorf("no audio device matches %q among %d devices", name, len(infos))
	}
	return &infos[idx], nil
}

// MatchDevice returns the index of the device named name, falling back to
// the first partial match, or -1.
func MatchDevice(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(name)) {
			return i
		}
	}
	return -1
}
