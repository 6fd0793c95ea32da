package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/mklimuk/eeprom"
)

// Connector hands out gobot connections to single peers.
type Connector interface {
	GetI2cConnection(address int, busNr int) (gi2c.Connection, error)
}

// Adaptor is a gobot board adaptor with an i2c bus.
type Adaptor interface {
	Connector
	DefaultI2cBus() int
	Connect() error
	Finalize() error
}

var _ eeprom.I2CBus = &GobotBus{}

// GobotBus drives peers through a gobot platform adaptor. Connections are
// opened on first use and kept until Close.
type GobotBus struct {
	mx       sync.Mutex
	conn     Connector
	busNr    int
	peers    map[byte]gi2c.Connection
	finalize func() error
}

func NewGobotBus(conn Connector, busNr int) *GobotBus {
	return &GobotBus{
		conn:  conn,
		busNr: busNr,
		peers: make(map[byte]gi2c.Connection),
	}
}

// OpenAdaptor connects a board adaptor and returns its bus; a negative busNr
// selects the board default.
func OpenAdaptor(a Adaptor, busNr int) (*GobotBus, error) {
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	if busNr < 0 {
		busNr = a.DefaultI2cBus()
	}
	b := NewGobotBus(a, busNr)
	b.finalize = a.Finalize
	return b, nil
}

func OpenNanoPi(busNr int) (*GobotBus, error) {
	return OpenAdaptor(nanopi.NewNeoAdaptor(), busNr)
}

func OpenRaspi(busNr int) (*GobotBus, error) {
	return OpenAdaptor(raspi.NewAdaptor(), busNr)
}

// ZeroLengthWrites is false: gobot connections give no guarantee that an
// empty write reaches the wire.
func (b *GobotBus) ZeroLengthWrites() bool {
	return false
}

func (b *GobotBus) peer(address byte) (gi2c.Connection, error) {
	if c, ok := b.peers[address]; ok {
		return c, nil
	}
	c, err := b.conn.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %x on bus %d: %w", address, b.busNr, err)
	}
	b.peers[address] = c
	return c, nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) == 0 {
		return fmt.Errorf("write to %x: %w", address, eeprom.ErrZeroLengthUnsupported)
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.peer(address)
	if err != nil {
		return err
	}
	n, err := c.Write(buffer)
	if err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.peer(address)
	if err != nil {
		return err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, c := range b.peers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %x: %w", addr, err))
		}
		delete(b.peers, addr)
	}
	if b.finalize != nil {
		if err := b.finalize(); err != nil {
			errs = append(errs, fmt.Errorf("adaptor finalize error: %w", err))
		}
	}
	return errors.Join(errs...)
}
