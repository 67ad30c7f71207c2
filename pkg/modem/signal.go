package modem

import (
	"math"
	"time"
)

// Signal is a mono waveform with samples in [-1, 1].
type Signal struct {
	Samples    []float64
	SampleRate int
}

func (s Signal) Len() int {
	return len(s.Samples)
}

func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

func (s Signal) Peak() float64 {
	return peak(s.Samples)
}

func (s Signal) Float32() []float32 {
	return Float64ToFloat32(s.Samples)
}

func (s Signal) Int32() []int32 {
	return Float64ToInt32(s.Samples)
}

func peak(samples []float64) float64 {
	p := 0.0
	for _, v := range samples {
		p = math.Max(p, math.Abs(v))
	}
	return p
}
