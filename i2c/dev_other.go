//go:build !linux

package i2c

import (
	"context"
	"errors"
)

var errNoDev = errors.New("i2c-dev is only available on linux")

// Dev is a Linux i2c-dev character device; elsewhere it cannot be opened.
type Dev struct{}

func OpenDev(path string) (*Dev, error) {
	return nil, errNoDev
}

func (d *Dev) SelectPeer(address byte) error {
	return errNoDev
}

func (d *Dev) ZeroLengthWrites() bool {
	return false
}

func (d *Dev) Write(ctx context.Context, buffer []byte) (int, error) {
	return 0, errNoDev
}

func (d *Dev) Read(ctx context.Context, buffer []byte) (int, error) {
	return 0, errNoDev
}

func (d *Dev) String() string {
	return "unsupported"
}

func (d *Dev) Close() error {
	return nil
}
