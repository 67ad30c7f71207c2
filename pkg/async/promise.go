package async

// Result carries the outcome of a fallible background call.
type Result[R any] struct {
	Value R
	Err   error
}

// Promise runs f in its own goroutine and delivers its value. The channel
// is buffered so the goroutine exits even if nobody receives.
func Promise[R any](f func() R) <-chan R {
	out := make(chan R, 1)
	go func() {
		out <- f()
	}()
	return out
}

// Try is Promise for functions that can fail.
func Try[R any](f func() (R, error)) <-chan Result[R] {
	return Promise(func() Result[R] {
		v, err := f()
		return Result[R]{Value: v, Err: err}
	})
}
