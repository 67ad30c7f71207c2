package async

import (
	"bufio"
	"context"
	"io"
)

// Lines delivers each line read from r without its line ending, and closes
// the channel at EOF or once ctx is done. A blocked Read on r is not
// interrupted; the goroutine exits after that Read returns.
func Lines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
