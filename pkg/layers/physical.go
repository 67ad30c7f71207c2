package layer

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"soundchat/pkg/async"
	"soundchat/pkg/device"
	"soundchat/pkg/modem"
)

var ErrClosed = errors.New("physical layer closed")

// PhysicalLayer plays and records whole FSK frames through a Device. The
// device callback feeds queued tracks to the speaker and pending
// recordings from the microphone; everything else waits on channels.
type PhysicalLayer struct {
	Device  device.Device
	Encoder Encoder
	Decoder Decoder
	Logger  *zap.Logger
}

type Encoder struct {
	Modulator modem.Modulator

	mu    sync.Mutex
	queue []*track
}

type Decoder struct {
	Demodulator modem.Demodulator

	mu         sync.Mutex
	recordings []*Recording
}

type track struct {
	samples []int32
	pos     int
	done    chan struct{}
	err     error
}

func New(dev device.Device, cfg modem.Config, logger *zap.Logger) *PhysicalLayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhysicalLayer{
		Device:  dev,
		Encoder: Encoder{Modulator: modem.Modulator{Config: cfg, Logger: logger.Named("modulator")}},
		Decoder: Decoder{Demodulator: modem.Demodulator{Config: cfg, Logger: logger.Named("demodulator")}},
		Logger:  logger,
	}
}

func (p *PhysicalLayer) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *PhysicalLayer) Open() error {
	return p.Device.Start(func(in, out []int32) {
		p.Decoder.read(in)
		p.Encoder.write(out)
	})
}

// Close stops the device. Pending sends and recordings fail with ErrClosed.
func (p *PhysicalLayer) Close() {
	p.Device.Stop()
	p.Encoder.fail(ErrClosed)
	p.Decoder.fail(ErrClosed)
}

// Send modulates text and blocks until it has been handed to the device.
func (p *PhysicalLayer) Send(ctx context.Context, text string) error {
	sig, err := p.Encoder.Modulator.Modulate(text)
	if err != nil {
		return err
	}
	p.logger().Info("sending", zap.Int("samples", sig.Len()), zap.Duration("duration", sig.Duration()))
	return p.Play(ctx, sig)
}

// Play blocks until every sample of sig and one further buffer have been
// handed to the device, or ctx is done.
func (p *PhysicalLayer) Play(ctx context.Context, sig modem.Signal) error {
	tr := &track{samples: sig.Int32(), done: make(chan struct{})}
	p.Encoder.push(tr)
	if _, err := async.Await(ctx, tr.done); err != nil {
		p.Encoder.remove(tr)
		return err
	}
	return tr.err
}

// Listen starts recording duration worth of samples right away.
func (p *PhysicalLayer) Listen(duration time.Duration) *Recording {
	cfg := p.Decoder.Demodulator.Config
	n := int(math.Round(duration.Seconds() * float64(cfg.SampleRate)))
	r := &Recording{decoder: &p.Decoder, buf: make([]int32, n), done: make(chan struct{})}
	if n == 0 {
		close(r.done)
		return r
	}
	p.Decoder.push(r)
	return r
}

// Record captures duration worth of samples.
func (p *PhysicalLayer) Record(ctx context.Context, duration time.Duration) ([]float32, error) {
	return p.Listen(duration).Wait(ctx)
}

// Receive records for duration and decodes what was heard.
func (p *PhysicalLayer) Receive(ctx context.Context, duration time.Duration) (*modem.Result, error) {
	samples, err := p.Record(ctx, duration)
	if err != nil {
		return nil, err
	}
	lo, hi := Levels(samples)
	p.logger().Info("recording complete", zap.Int("samples", len(samples)), zap.Float32("min", lo), zap.Float32("max", hi))
	return p.Decoder.Demodulator.Demodulate(samples)
}

// Levels returns the smallest and largest sample.
func Levels(samples []float32) (lo, hi float32) {
	for i, v := range samples {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Recording is a capture in progress.
type Recording struct {
	decoder *Decoder
	buf     []int32
	filled  int
	done    chan struct{}
	err     error
}

func (r *Recording) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the recording is full and returns it as float samples.
// If ctx ends first the recording is cancelled.
func (r *Recording) Wait(ctx context.Context) ([]float32, error) {
	if _, err := async.Await(ctx, r.done); err != nil {
		r.Cancel()
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return modem.Int32ToFloat32(r.buf), nil
}

func (r *Recording) Cancel() {
	r.decoder.remove(r, context.Canceled)
}

func (e *Encoder) push(tr *track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, tr)
}

func (e *Encoder) remove(tr *track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.queue {
		if t == tr {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}

func (e *Encoder) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.queue {
		t.err = err
		close(t.done)
	}
	e.queue = nil
}

// write fills out from the queued tracks. A track is complete once a later
// buffer starts, so its last samples have left the callback.
func (e *Encoder) write(out []int32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := 0
	for i < len(out) && len(e.queue) > 0 {
		tr := e.queue[0]
		if tr.pos >= len(tr.samples) {
			close(tr.done)
			e.queue = e.queue[1:]
			continue
		}
		n := copy(out[i:], tr.samples[tr.pos:])
		tr.pos += n
		i += n
		if tr.pos >= len(tr.samples) {
			break
		}
	}
	for ; i < len(out); i++ {
		out[i] = 0
	}
}

func (d *Decoder) push(r *Recording) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recordings = append(d.recordings, r)
}

func (d *Decoder) remove(r *Recording, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, rec := range d.recordings {
		if rec == r {
			r.err = err
			close(r.done)
			d.recordings = append(d.recordings[:i], d.recordings[i+1:]...)
			return
		}
	}
}

func (d *Decoder) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.recordings {
		r.err = err
		close(r.done)
	}
	d.recordings = nil
}

// read appends in to every pending recording and completes the full ones.
func (d *Decoder) read(in []int32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.recordings[:0]
	for _, r := range d.recordings {
		r.filled += copy(r.buf[r.filled:], in)
		if r.filled == len(r.buf) {
			close(r.done)
			continue
		}
		kept = append(kept, r)
	}
	clear(d.recordings[len(kept):])
	d.recordings = kept
}
