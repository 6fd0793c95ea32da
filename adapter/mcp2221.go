package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/eectx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// maxChunk is the payload carried by one I2C data report.
const maxChunk = 60

const (
	cmdStatus       = 0x10
	cmdI2CWrite     = 0x90
	cmdI2CRead      = 0x91
	cmdI2CReadData  = 0x40
	subCmdCancel    = 0x10
	stateAddrNack   = 0x25
	respI2CBusy     = 0x01
	respReadDataErr = 0x41
	dataSizeInvalid = 127
)

// ErrAddressNack is returned when the addressed peer did not acknowledge.
var ErrAddressNack = errors.New("address not acknowledged")

// HIDDevice is an open USB HID handle.
type HIDDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// Opener opens the adapter with the given enumeration index; a negative
// index means the only attached adapter.
type Opener func(id int) (HIDDevice, error)

var _ eeprom.I2CBus = &MCP2221{}

// MCP2221 is a Microchip USB-to-I2C bridge. Each command opens the HID
// device, exchanges one 64-byte report pair and closes it again.
type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	open         Opener
	id           int
	logger       *slog.Logger
}

type MCP2221Status struct {
	I2CState               int    `yaml:"i2c_state"`
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Opt func(*MCP2221)

// WithResponseWait sets the pause between a request and its response.
func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

// WithDeviceID selects one of several attached adapters by enumeration index.
func WithDeviceID(id int) MCP2221Opt {
	return func(d *MCP2221) {
		d.id = id
	}
}

func WithOpener(open Opener) MCP2221Opt {
	return func(d *MCP2221) {
		d.open = open
	}
}

func WithAdapterLogger(logger *slog.Logger) MCP2221Opt {
	return func(d *MCP2221) {
		d.logger = logger
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
		open:         openHID,
		id:           -1,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func openHID(id int) (HIDDevice, error) {
	if !hid.Supported() {
		return nil, fmt.Errorf("USB HID is not supported on this platform")
	}
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, fmt.Errorf("MCP2221 device not found")
	}
	if id < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification")
		}
		id = 0
	}
	if id >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", id)
	}
	dev, err := devs[id].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// ZeroLengthWrites is true: the bridge issues an address-only transaction
// for a write command with a zero length.
func (d *MCP2221) ZeroLengthWrites() bool {
	return true
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	offset := 0
	for {
		chunk := min(len(buffer)-offset, maxChunk)
		d.resetBuffers()
		d.request[0] = cmdI2CWrite
		binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
		d.request[3] = address << 1
		copy(d.request[4:], buffer[offset:offset+chunk])
		err := d.send(ctx, true)
		if err != nil {
			return fmt.Errorf("write to %x failed: %w", address, err)
		}
		if d.response[1] == respI2CBusy {
			d.logger.Debug("adapter busy", "address", address)
			_, _ = d.cancel(ctx)
			return eeprom.ErrBusBusy
		}
		offset += chunk
		if offset >= len(buffer) {
			break
		}
	}
	return d.checkAck(ctx, address)
}

// checkAck reads the engine state after a write and reports a NACK from the
// peer; the engine is reset so the next command starts from idle.
func (d *MCP2221) checkAck(ctx context.Context, address byte) error {
	status, err := d.status(ctx)
	if err != nil {
		return fmt.Errorf("write to %x: %w", address, err)
	}
	if status.I2CState == stateAddrNack {
		_, _ = d.cancel(ctx)
		return fmt.Errorf("write to %x: %w", address, ErrAddressNack)
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CRead
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == respI2CBusy {
		_, _ = d.cancel(ctx)
		return eeprom.ErrBusBusy
	}
	offset := 0
	for offset < len(buffer) {
		d.resetBuffers()
		d.request[0] = cmdI2CReadData
		err = d.send(ctx, true)
		if err != nil {
			return fmt.Errorf("error getting read data from adapter: %w", err)
		}
		if d.response[1] == respReadDataErr {
			_, _ = d.cancel(ctx)
			return fmt.Errorf("error reading the I2C slave data from the I2C engine")
		}
		size := int(d.response[3])
		if size == dataSizeInvalid || size > maxChunk || size > len(buffer)-offset {
			return fmt.Errorf("invalid data size byte; expected at most %d, got %d", len(buffer)-offset, size)
		}
		if size == 0 {
			return fmt.Errorf("adapter returned no data after %d of %d bytes", offset, len(buffer))
		}
		copy(buffer[offset:], d.response[4:4+size])
		offset += size
	}
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.status(ctx)
}

func (d *MCP2221) status(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		8: Internal I2C state machine value
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CState:             int(buffer[8]),
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.cancel(ctx)
	return err
}

// ReleaseBus cancels the current transfer and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.cancel(ctx)
}

func (d *MCP2221) cancel(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = subCmdCancel
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context, response bool) error {
	dev, err := d.open(d.id)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			d.logger.Debug("could not close adapter", "error", err)
		}
	}()
	verbose := eectx.IsVerbose(ctx)
	if verbose {
		d.logger.Info("sending message to adapter", "report", hex.EncodeToString(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	time.Sleep(d.responseWait)
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		d.logger.Info("read message from adapter", "report", hex.EncodeToString(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
