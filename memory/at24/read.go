package at24

import (
	"context"
	"fmt"

	"github.com/mklimuk/eeprom"
)

type ReadRequest struct {
	Start  uint32
	Length int
}

// ReadRandom sets the device's address pointer to req.Start in one
// transaction and then reads exactly req.Length bytes. Reads need no write
// cycle, so there is no ack polling. A zero length returns an empty slice
// without touching the bus.
func ReadRandom(ctx context.Context, dev eeprom.I2CDevice, geo Geometry, req ReadRequest) ([]byte, error) {
	if req.Length < 0 {
		return nil, opError(OpRead, req.Start, ErrInvalidConfiguration,
			fmt.Errorf("negative read length %d", req.Length))
	}
	var abuf [MaxAddressWidth]byte
	n, err := PutAddress(abuf[:], req.Start, geo.AddressWidth)
	if err != nil {
		return nil, opError(OpEncode, req.Start, ErrInvalidConfiguration, err)
	}
	if req.Length == 0 {
		return []byte{}, nil
	}
	written, err := dev.Write(ctx, abuf[:n])
	if err != nil {
		return nil, opError(OpSetAddress, req.Start, ErrTransportFailure, err)
	}
	if written != n {
		return nil, opError(OpSetAddress, req.Start, ErrTransportFailure,
			fmt.Errorf("short write: %d of %d bytes", written, n))
	}
	out := make([]byte, req.Length)
	got, err := dev.Read(ctx, out)
	if err != nil {
		return nil, opError(OpRead, req.Start, ErrTransportFailure, err)
	}
	if got != req.Length {
		return nil, opError(OpRead, req.Start, ErrTransportFailure,
			fmt.Errorf("short read: %d of %d bytes", got, req.Length))
	}
	return out, nil
}
