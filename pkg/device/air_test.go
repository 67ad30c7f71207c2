package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAirCarriesSoundBetweenNodes(t *testing.T) {
	air := &Air{SampleRate: 512000}
	speaker, listener := air.Node(), air.Node()

	require.NoError(t, speaker.Start(func(in, out []int32) {
		for i := range out {
			out[i] = 1000
		}
	}))

	heard := make(chan []int32, 1)
	require.NoError(t, listener.Start(func(in, out []int32) {
		cleari32(out)
		if in[0] != 0 {
			buf := append([]int32(nil), in...)
			select {
			case heard <- buf:
			default:
			}
		}
	}))

	select {
	case buf := <-heard:
		for _, v := range buf {
			assert.Equal(t, int32(1000), v)
		}
	case <-time.After(time.Second):
		t.Fatal("listener never heard the speaker")
	}

	speaker.Stop()
	listener.Stop()
}

func TestAirMixesAndRestarts(t *testing.T) {
	air := &Air{}
	a, b := air.Node(), air.Node()

	mixed := make(chan int32, 1)
	require.NoError(t, a.Start(func(in, out []int32) {
		for i := range out {
			out[i] = 7
		}
		select {
		case mixed <- in[0]:
		default:
		}
	}))
	require.NoError(t, b.Start(func(in, out []int32) {
		for i := range out {
			out[i] = 5
		}
	}))

	deadline := time.After(time.Second)
	for {
		select {
		case v := <-mixed:
			if v == 12 {
				b.Stop()
				a.Stop()
				// the room can be used again after everyone left
				require.NoError(t, a.Start(func(in, out []int32) { cleari32(out) }))
				a.Stop()
				return
			}
		case <-deadline:
			t.Fatal("outputs were never mixed")
		}
	}
}

func TestAirStopIsIdempotent(t *testing.T) {
	air := &Air{}
	n := air.Node()
	n.Stop()
	require.NoError(t, n.Start(func(in, out []int32) { cleari32(out) }))
	n.Stop()
	n.Stop()
}
