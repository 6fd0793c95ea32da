package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/adapter"
	"github.com/mklimuk/eeprom/i2c"
	"github.com/mklimuk/eeprom/memory/at24"
)

// Handle is a transport bound to one peer, owned by the running command.
type Handle interface {
	eeprom.I2CDevice
	io.Closer
}

type openFunc func(bus string, peer byte) (Handle, error)

var adapters = map[string]openFunc{
	"i2cdev":  openI2CDev,
	"periph":  openPeriph,
	"nanopi":  openGobot(i2c.OpenNanoPi),
	"raspi":   openGobot(i2c.OpenRaspi),
	"mcp2221": openMCP2221,
	"sim":     openSim,
}

var mcp2221Opts []adapter.MCP2221Opt

// peerHandle binds an addressable bus to a peer and closes the bus with it.
type peerHandle struct {
	*eeprom.Peer
	closer io.Closer
}

func (h *peerHandle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

func bindPeer(bus eeprom.I2CBus, closer io.Closer, peer byte) (Handle, error) {
	p, err := eeprom.NewPeer(bus, peer)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	return &peerHandle{Peer: p, closer: closer}, nil
}

// devPath accepts a bus number or a device path.
func devPath(bus string) string {
	if strings.HasPrefix(bus, "/") {
		return bus
	}
	return "/dev/i2c-" + bus
}

func openI2CDev(bus string, peer byte) (Handle, error) {
	dev, err := i2c.OpenDev(devPath(bus))
	if err != nil {
		return nil, err
	}
	if err := dev.SelectPeer(peer); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return dev, nil
}

func openPeriph(bus string, peer byte) (Handle, error) {
	b, err := i2c.NewGenericBus(bus)
	if err != nil {
		return nil, err
	}
	return bindPeer(b, b, peer)
}

func openGobot(open func(busNr int) (*i2c.GobotBus, error)) openFunc {
	return func(bus string, peer byte) (Handle, error) {
		busNr, err := strconv.Atoi(bus)
		if err != nil {
			return nil, fmt.Errorf("bus id must be a number: %q", bus)
		}
		b, err := open(busNr)
		if err != nil {
			return nil, err
		}
		return bindPeer(b, b, peer)
	}
}

// openMCP2221 takes the bus id as the adapter index; "-" picks the only one.
func openMCP2221(bus string, peer byte) (Handle, error) {
	opts := append([]adapter.MCP2221Opt{}, mcp2221Opts...)
	if bus != "-" {
		id, err := strconv.Atoi(bus)
		if err != nil {
			return nil, fmt.Errorf("bus id must be an adapter index or '-': %q", bus)
		}
		opts = append(opts, adapter.WithDeviceID(id))
	}
	return bindPeer(adapter.NewMCP2221(opts...), nil, peer)
}

// simParts keeps one simulated part per bus id for the life of the process.
var simParts = map[string]*at24.Simulator{}

type simHandle struct {
	*at24.Simulator
}

func (simHandle) Close() error {
	return nil
}

// openSim takes the bus id as a part name, e.g. 24c02. The simulated part
// starts erased and ignores the peer address.
func openSim(bus string, peer byte) (Handle, error) {
	geo, ok := at24.LookupGeometry(bus)
	if !ok {
		return nil, fmt.Errorf("sim bus id must be one of %s: %q", strings.Join(at24.Parts(), ", "), bus)
	}
	key := strings.ToLower(bus)
	sim, ok := simParts[key]
	if !ok {
		sim = at24.NewSimulator(geo)
		simParts[key] = sim
	}
	return simHandle{sim}, nil
}

func closeHandle(h Handle) {
	if err := h.Close(); err != nil {
		slog.Warn("could not close bus", "error", err)
	}
}
