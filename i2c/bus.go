package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/eeprom"
)

var _ eeprom.I2CBus = &GenericBus{}

// GenericBus is a bus opened through the periph host drivers.
type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus opens a bus by periph name ("1", "I2C1", "/dev/i2c-1") or,
// when dev is empty, the first bus periph finds.
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return WrapBus(bus), nil
}

// WrapBus adopts an already opened periph bus.
func WrapBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{
		bus: bus,
	}
}

// ZeroLengthWrites is false: periph returns success for a transaction with
// nothing to write or read without touching the bus.
func (b *GenericBus) ZeroLengthWrites() bool {
	return false
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) == 0 {
		return fmt.Errorf("write to %x: %w", address, eeprom.ErrZeroLengthUnsupported)
	}
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
