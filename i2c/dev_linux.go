package i2c

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/eectx"
)

// i2cSlave is the i2c-dev ioctl binding a file descriptor to a peer address.
const i2cSlave = 0x0703

var _ eeprom.I2CDevice = &Dev{}
var _ eeprom.PeerSelector = &Dev{}

// Dev is a Linux i2c-dev character device bound to one peer. Every Write is
// one bus transaction; an empty Write is an address-only transaction.
type Dev struct {
	mx      sync.Mutex
	path    string
	fd      int
	address byte
}

// OpenDev opens an i2c-dev node such as /dev/i2c-1. SelectPeer must be
// called before the first transfer.
func OpenDev(path string) (*Dev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	return &Dev{path: path, fd: fd}, nil
}

func (d *Dev) SelectPeer(address byte) error {
	if address > eeprom.MaxPeerAddress {
		return fmt.Errorf("peer address %#x does not fit in 7 bits", address)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := unix.IoctlSetInt(d.fd, i2cSlave, int(address)); err != nil {
		return fmt.Errorf("could not select peer %#x on %s: %w", address, d.path, err)
	}
	d.address = address
	return nil
}

func (d *Dev) ZeroLengthWrites() bool {
	return true
}

func (d *Dev) Write(ctx context.Context, buffer []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if eectx.IsVerbose(ctx) {
		slog.Info("i2c write", "dev", d.path, "addr", d.address, "data", hex.EncodeToString(buffer))
	}
	n, err := unix.Write(d.fd, buffer)
	if err != nil {
		if len(buffer) == 0 && errors.Is(err, unix.EOPNOTSUPP) {
			return 0, fmt.Errorf("write to %x: %w", d.address, eeprom.ErrZeroLengthUnsupported)
		}
		return max(n, 0), fmt.Errorf("could not write to i2c peer %x: %w", d.address, err)
	}
	return n, nil
}

func (d *Dev) Read(ctx context.Context, buffer []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	n, err := unix.Read(d.fd, buffer)
	if err != nil {
		return max(n, 0), fmt.Errorf("could not read from i2c peer %x: %w", d.address, err)
	}
	if eectx.IsVerbose(ctx) {
		slog.Info("i2c read", "dev", d.path, "addr", d.address, "data", hex.EncodeToString(buffer[:n]))
	}
	return n, nil
}

func (d *Dev) String() string {
	return d.path
}

func (d *Dev) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return unix.Close(d.fd)
}
