//go:build !windows

package device

import "errors"

func newASIO(Options) (Device, error) {
	return nil, errors.New("asio backend is only available on windows")
}
