package device

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Air simulates one room shared by several devices. Every buffer played by
// any node is mixed, noise is added, and the mix is what all nodes capture
// on the following tick. A node hears its own output as well.
type Air struct {
	SampleRate float64 // the fake sample rate, 0 means no limit
	Noise      float64 // peak amplitude of uniform noise in the room
	Seed       uint64

	mu     sync.Mutex
	nodes  []*airNode
	medium []int32
	next   []int32
	rng    *rand.Rand
	active int
	done   chan struct{}
	wg     sync.WaitGroup
}

type airNode struct {
	air      *Air
	out      []int32
	callback func([]int32, []int32)
}

// Node adds a device to the room.
func (a *Air) Node() Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := &airNode{air: a, out: alloci32(BufferSize)}
	a.nodes = append(a.nodes, n)
	return n
}

func (a *Air) update() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, n := range a.nodes {
		if n.callback != nil {
			n.callback(a.medium, n.out)
		}
	}

	cleari32(a.next)
	for _, n := range a.nodes {
		if n.callback != nil {
			sumi32(a.next, n.out, a.next)
		}
	}
	noisei32(a.rng, a.next, a.Noise)
	a.medium, a.next = a.next, a.medium
}

func (n *airNode) Start(callback func([]int32, []int32)) error {
	a := n.air
	a.mu.Lock()
	defer a.mu.Unlock()

	if n.callback != nil {
		return nil
	}
	n.callback = callback
	cleari32(n.out)
	a.active++
	if a.active > 1 {
		return nil
	}

	if a.medium == nil {
		a.medium = alloci32(BufferSize)
		a.next = alloci32(BufferSize)
		a.rng = rand.New(rand.NewSource(a.Seed))
	}
	done := make(chan struct{})
	a.done = done
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		run(done, period(a.SampleRate), a.update)
	}()
	return nil
}

func (n *airNode) Stop() {
	a := n.air
	a.mu.Lock()
	if n.callback == nil {
		a.mu.Unlock()
		return
	}
	n.callback = nil
	a.active--
	last := a.active == 0
	if last {
		close(a.done)
	}
	a.mu.Unlock()

	if last {
		a.wg.Wait()
	}
}
