package device

import (
	"time"

	"golang.org/x/exp/rand"
)

func cleari32(a []int32) {
	for i := range a {
		a[i] = 0
	}
}

func randi32(a []int32) {
	for i := range a {
		a[i] = rand.Int31()
	}
}

// noisei32 adds uniform noise of the given peak amplitude (full scale 1)
// to a, saturating at the int32 range.
func noisei32(rng *rand.Rand, a []int32, amplitude float64) {
	if amplitude <= 0 {
		return
	}
	for i := range a {
		n := int64((rng.Float64()*2 - 1) * amplitude * 0x7fffffff)
		a[i] = saturate(int64(a[i]) + n)
	}
}

func sumi32(a, b, c []int32) {
	for i := range a {
		c[i] = saturate(int64(a[i]) + int64(b[i]))
	}
}

func saturate(v int64) int32 {
	if v > 0x7fffffff {
		return 0x7fffffff
	} else if v < -0x80000000 {
		return -0x80000000
	}
	return int32(v)
}

func alloci32(n int) []int32 {
	return make([]int32, n)
}

// period is the wall time one buffer lasts at sampleRate; 0 means no limit.
func period(sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) * BufferSize / sampleRate)
}

// run calls update until done is closed, paced by interval when non-zero.
func run(done <-chan struct{}, interval time.Duration, update func()) {
	if interval == 0 {
		for {
			select {
			case <-done:
				return
			default:
				update()
			}
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			update()
		}
	}
}
