package eeprom

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// ErrZeroLengthUnsupported is returned (wrapped) by transports whose adapter
// refuses address-only transactions.
var ErrZeroLengthUnsupported = errors.New("zero-length write not supported by transport")

// BusReader reads raw bytes from the device the transport is bound to and
// reports how many bytes were received.
type BusReader interface {
	Read(ctx context.Context, buffer []byte) (int, error)
}

// BusWriter writes raw bytes as a single bus transaction and reports how
// many bytes the device accepted.
type BusWriter interface {
	Write(ctx context.Context, buffer []byte) (int, error)
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a bus able to talk to any peer; the peer address travels with
// every call.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// I2CDevice is a transport handle bound to exactly one peer.
type I2CDevice interface {
	BusReader
	BusWriter
}

// PeerSelector is implemented by handles that can be re-bound to another peer.
type PeerSelector interface {
	SelectPeer(address byte) error
}

// ZeroLengthWriter is implemented by transports that know statically whether
// an empty write reaches the wire as an address-only transaction.
type ZeroLengthWriter interface {
	ZeroLengthWrites() bool
}

// MaxPeerAddress is the highest 7-bit peer address.
const MaxPeerAddress = 0x7F

var _ I2CDevice = &Peer{}

// Peer binds an addressable bus to a single peer address.
type Peer struct {
	bus     I2CBus
	address byte
}

func NewPeer(bus I2CBus, address byte) (*Peer, error) {
	p := &Peer{bus: bus}
	if err := p.SelectPeer(address); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Peer) SelectPeer(address byte) error {
	if address > MaxPeerAddress {
		return fmt.Errorf("peer address %#x does not fit in 7 bits", address)
	}
	p.address = address
	return nil
}

func (p *Peer) Address() byte {
	return p.address
}

// Write forwards the buffer to the bound peer. Addressable buses report
// success or failure only, so a successful call accounts for the whole buffer.
func (p *Peer) Write(ctx context.Context, buffer []byte) (int, error) {
	if err := p.bus.WriteToAddr(ctx, p.address, buffer); err != nil {
		return 0, err
	}
	return len(buffer), nil
}

func (p *Peer) Read(ctx context.Context, buffer []byte) (int, error) {
	if err := p.bus.ReadFromAddr(ctx, p.address, buffer); err != nil {
		return 0, err
	}
	return len(buffer), nil
}

// ZeroLengthWrites reports the capability of the underlying bus. Buses that
// do not declare it are assumed unable to probe with an empty write.
func (p *Peer) ZeroLengthWrites() bool {
	if zl, ok := p.bus.(ZeroLengthWriter); ok {
		return zl.ZeroLengthWrites()
	}
	return false
}
