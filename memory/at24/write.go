package at24

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/eeprom"
)

// WriteRequest is a payload to store starting at word address Start. The
// payload does not need to be page aligned.
type WriteRequest struct {
	Start   uint32
	Payload []byte
}

// WritePaged stores req on the device behind dev, one page-bounded chunk per
// bus transaction, waiting for the write cycle after each chunk. The first
// failing chunk aborts the request: earlier chunks stay committed and later
// ones are never sent. A page too large for one transaction is rejected
// before anything reaches the bus. A nil poller uses DefaultPollTimeout.
func WritePaged(ctx context.Context, dev eeprom.BusWriter, geo Geometry, req WriteRequest, poller *AckPoller) error {
	return writePaged(ctx, dev, geo, req, poller, slog.Default())
}

func writePaged(ctx context.Context, dev eeprom.BusWriter, geo Geometry, req WriteRequest, poller *AckPoller, logger *slog.Logger) error {
	if err := geo.Validate(); err != nil {
		return opError(OpWriteChunk, req.Start, ErrInvalidConfiguration, err)
	}
	if poller == nil {
		poller = NewAckPoller(DefaultPollTimeout, WithPollLogger(logger))
	}
	chunks := Plan(req.Start, len(req.Payload), geo.PageSize)
	for _, c := range chunks {
		if c.Len > MaxPageSize {
			return opError(OpWriteChunk, c.Addr, ErrInvalidConfiguration,
				fmt.Errorf("chunk of %d bytes exceeds the %d-byte transaction buffer", c.Len, MaxPageSize))
		}
	}
	for _, c := range chunks {
		if err := writeChunk(ctx, dev, geo, c, req.Payload[c.Offset:c.Offset+c.Len]); err != nil {
			return err
		}
		if err := poller.Poll(ctx, dev); err != nil {
			return opError(OpPoll, c.Addr, ErrWriteTimeout, err)
		}
		logger.Debug("chunk committed", "addr", fmt.Sprintf("%#02x", c.Addr), "len", c.Len)
	}
	return nil
}

// writeChunk sends the word address immediately followed by the data as one
// transaction; the device does not accept them split.
func writeChunk(ctx context.Context, dev eeprom.BusWriter, geo Geometry, c Chunk, data []byte) error {
	var buf [MaxAddressWidth + MaxPageSize]byte
	n, err := PutAddress(buf[:], c.Addr, geo.AddressWidth)
	if err != nil {
		return opError(OpEncode, c.Addr, ErrInvalidConfiguration, err)
	}
	n += copy(buf[n:], data)
	tx := buf[:n]
	written, err := dev.Write(ctx, tx)
	if err != nil {
		return opError(OpWriteChunk, c.Addr, ErrTransportFailure, err)
	}
	if written != len(tx) {
		return opError(OpWriteChunk, c.Addr, ErrTransportFailure,
			fmt.Errorf("short write: %d of %d bytes", written, len(tx)))
	}
	return nil
}
