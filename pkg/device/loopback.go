package device

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Loopback feeds every output buffer back as the next input buffer, so a
// signal played through it is heard one buffer later.
type Loopback struct {
	SampleRate float64 // the fake sample rate, 0 means no limit
	Noise      float64 // peak amplitude of uniform noise added on the way back
	Seed       uint64

	done chan struct{}
	wg   sync.WaitGroup
}

func (d *Loopback) Start(callback func([]int32, []int32)) error {
	d.done = make(chan struct{})
	rng := rand.New(rand.NewSource(d.Seed))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		var buf = make([][]int32, 2)
		buf[0] = alloci32(BufferSize)
		buf[1] = alloci32(BufferSize)

		swap := true
		update := func() {
			in, out := buf[0], buf[1]
			if !swap {
				in, out = out, in
			}
			noisei32(rng, in, d.Noise)
			callback(in, out)
			swap = !swap
		}
		run(d.done, period(d.SampleRate), update)
	}()
	return nil
}

func (d *Loopback) Stop() {
	close(d.done)
	d.wg.Wait()
}
