package async

import "context"

// Await blocks until a receives a value or ctx is done. A closed channel
// yields the zero value and no error.
func Await[R any](ctx context.Context, a <-chan R) (R, error) {
	select {
	case r := <-a:
		return r, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// AwaitResult unwraps the outcome of Try.
func AwaitResult[R any](ctx context.Context, a <-chan Result[R]) (R, error) {
	r, err := Await(ctx, a)
	if err != nil {
		return r.Value, err
	}
	return r.Value, r.Err
}
