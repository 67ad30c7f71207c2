// Package device connects the physical layer to a sound card, or to an
// in-process simulation of one.
package device

// Device drives callback once per buffer with the captured samples in and
// the samples to play in out. Callbacks must not keep or modify in.
type Device interface {
	Start(callback func(in, out []int32)) error
	Stop()
}

const BufferSize = 512
