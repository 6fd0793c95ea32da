package at24

import (
	"context"
	"errors"
	"sync"

	"github.com/mklimuk/eeprom"
)

// ErrNoAck is returned by Simulator while its write cycle is in progress.
var ErrNoAck = errors.New("sim: no acknowledge")

var _ eeprom.I2CDevice = &Simulator{}

// Simulator is an in-memory AT24 part usable as a transport without
// hardware. It behaves like the real device: a page write that runs past the
// page end wraps to the page start, the word address wraps at Size, and the
// device refuses BusyFor transactions after every page write.
//
// Example usage:
//
//	sim := NewSimulator(Geometry24C02, WithBusyFor(3))
//	e, _ := New(sim, Geometry24C02)
//	_ = e.Write(ctx, 0x10, []byte("abc"))
type Simulator struct {
	mx         sync.Mutex
	geometry   Geometry
	mem        []byte
	pointer    uint32
	busy       int
	busyFor    int
	zeroLength bool
	pageWrites [][]byte
	probes     int
	pageWraps  int
}

type SimulatorOpt func(*Simulator)

// WithBusyFor sets how many transactions are refused after each page write.
func WithBusyFor(n int) SimulatorOpt {
	return func(s *Simulator) {
		s.busyFor = n
	}
}

// WithZeroLengthWrites sets the capability the simulator declares.
func WithZeroLengthWrites(supported bool) SimulatorOpt {
	return func(s *Simulator) {
		s.zeroLength = supported
	}
}

// WithContent preloads memory starting at address 0.
func WithContent(data []byte) SimulatorOpt {
	return func(s *Simulator) {
		copy(s.mem, data)
	}
}

func NewSimulator(geo Geometry, opts ...SimulatorOpt) *Simulator {
	size := geo.Size
	if size <= 0 {
		size = 1 << (8 * geo.AddressWidth)
	}
	s := &Simulator{
		geometry:   geo,
		mem:        make([]byte, size),
		zeroLength: true,
	}
	for i := range s.mem {
		s.mem[i] = 0xFF
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) ZeroLengthWrites() bool {
	return s.zeroLength
}

func (s *Simulator) Write(ctx context.Context, buffer []byte) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.busy > 0 {
		s.busy--
		s.probes++
		return 0, ErrNoAck
	}
	width := s.geometry.AddressWidth
	if len(buffer) < width {
		// address-only probe or an aborted word address
		s.probes++
		return len(buffer), nil
	}
	addr := uint32(0)
	for _, b := range buffer[:width] {
		addr = addr<<8 | uint32(b)
	}
	s.pointer = addr % uint32(len(s.mem))
	data := buffer[width:]
	if len(data) == 0 {
		return len(buffer), nil
	}
	page := uint32(s.geometry.PageSize)
	base := s.pointer - s.pointer%page
	offset := s.pointer % page
	for i, b := range data {
		if offset+uint32(i) >= page {
			s.pageWraps++
		}
		s.mem[(base+(offset+uint32(i))%page)%uint32(len(s.mem))] = b
	}
	s.pageWrites = append(s.pageWrites, append([]byte(nil), buffer...))
	s.busy = s.busyFor
	return len(buffer), nil
}

func (s *Simulator) Read(ctx context.Context, buffer []byte) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.busy > 0 {
		s.busy--
		return 0, ErrNoAck
	}
	for i := range buffer {
		buffer[i] = s.mem[s.pointer]
		s.pointer = (s.pointer + 1) % uint32(len(s.mem))
	}
	return len(buffer), nil
}

// Memory returns a copy of the whole array.
func (s *Simulator) Memory() []byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]byte(nil), s.mem...)
}

// PageWrites returns every data transaction (word address and data) in order.
func (s *Simulator) PageWrites() [][]byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	out := make([][]byte, len(s.pageWrites))
	copy(out, s.pageWrites)
	return out
}

// PageWraps counts bytes that wrapped inside a page, which a correct
// writer never causes.
func (s *Simulator) PageWraps() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.pageWraps
}

// Probes counts refused transactions and address-only probes.
func (s *Simulator) Probes() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.probes
}
