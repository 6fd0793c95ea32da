// Package at24 drives AT24C-family serial EEPROMs over a two-wire bus.
//
// Writes are split into chunks that never cross a page boundary; each chunk
// is sent as one transaction (word address followed by data) and the device
// is then ack-polled until its internal write cycle completes. Reads set the
// address pointer and read sequentially.
//
// Example usage:
//
//	bus, _ := i2c.OpenDev("/dev/i2c-1")
//	_ = bus.SelectPeer(0x50)
//	e, err := at24.New(bus, at24.Geometry24C02)
//	if err != nil { log.Fatal(err) }
//	err = e.Write(ctx, 0x06, []byte("hello"))
//	data, err := e.Read(ctx, 0x06, 5)
package at24

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/eeprom"
)

var ErrVerifyMismatch = errors.New("read-back mismatch")

// MismatchError reports the first byte that differs after a write.
type MismatchError struct {
	Addr uint32
	Want byte
	Got  byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("at24: %v at %#02x: wrote %#02x, read %#02x", ErrVerifyMismatch, e.Addr, e.Want, e.Got)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrVerifyMismatch
}

type Opts struct {
	PollTimeout time.Duration
	Probe       ProbeMode
	Logger      *slog.Logger
	Poller      *AckPoller
}

type Opt func(*Opts)

func WithPollTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.PollTimeout = timeout
	}
}

func WithProbe(mode ProbeMode) Opt {
	return func(o *Opts) {
		o.Probe = mode
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithPoller overrides PollTimeout and Probe with a prepared poller.
func WithPoller(poller *AckPoller) Opt {
	return func(o *Opts) {
		o.Poller = poller
	}
}

// AT24 is one EEPROM behind a transport handle. It holds the handle for the
// whole of each logical operation, so a multi-chunk write is never
// interleaved with another call on the same AT24. The handle is borrowed:
// AT24 never closes or reconfigures it.
type AT24 struct {
	mx       sync.Mutex
	dev      eeprom.I2CDevice
	geometry Geometry
	poller   *AckPoller
	logger   *slog.Logger
}

func New(dev eeprom.I2CDevice, geo Geometry, opts ...Opt) (*AT24, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	config := Opts{
		PollTimeout: DefaultPollTimeout,
		Probe:       ProbeAuto,
		Logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	poller := config.Poller
	if poller == nil {
		poller = NewAckPoller(config.PollTimeout, WithProbeMode(config.Probe), WithPollLogger(config.Logger))
	}
	if poller.Resolve(dev) == ProbeDataByte {
		config.Logger.Warn("ack polling sends a throw-away data byte; this is only harmless on AT24-style parts")
	}
	return &AT24{
		dev:      dev,
		geometry: geo,
		poller:   poller,
		logger:   config.Logger,
	}, nil
}

func (e *AT24) Geometry() Geometry {
	return e.geometry
}

func (e *AT24) Write(ctx context.Context, addr uint32, data []byte) error {
	e.mx.Lock()
	defer e.mx.Unlock()
	return writePaged(ctx, e.dev, e.geometry, WriteRequest{Start: addr, Payload: data}, e.poller, e.logger)
}

func (e *AT24) Read(ctx context.Context, addr uint32, length int) ([]byte, error) {
	e.mx.Lock()
	defer e.mx.Unlock()
	return ReadRandom(ctx, e.dev, e.geometry, ReadRequest{Start: addr, Length: length})
}

// WriteString stores the bytes of s, followed by a single 0x00 when
// terminated is set.
func (e *AT24) WriteString(ctx context.Context, addr uint32, s string, terminated bool) error {
	return e.Write(ctx, addr, StringPayload(s, terminated))
}

// ReadString reads up to limit bytes and returns the text before the first
// 0x00. Without a terminator all limit bytes are returned.
func (e *AT24) ReadString(ctx context.Context, addr uint32, limit int) (string, error) {
	data, err := e.Read(ctx, addr, limit)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0x00); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}

// Verify reads len(data) bytes back from addr and compares them with data.
func (e *AT24) Verify(ctx context.Context, addr uint32, data []byte) error {
	got, err := e.Read(ctx, addr, len(data))
	if err != nil {
		return err
	}
	for i := range data {
		if got[i] != data[i] {
			return &MismatchError{Addr: addr + uint32(i), Want: data[i], Got: got[i]}
		}
	}
	return nil
}

// WriteVerified writes data, reads it back and repeats the whole cycle up to
// retries more times on a retryable failure or a mismatch. A negative
// retries counts as zero; the write is always attempted once.
func (e *AT24) WriteVerified(ctx context.Context, addr uint32, data []byte, retries int) error {
	retries = max(retries, 0)
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			e.logger.Warn("retrying verified write", "attempt", attempt, "error", err)
		}
		err = e.Write(ctx, addr, data)
		if err == nil {
			err = e.Verify(ctx, addr, data)
		}
		if err == nil {
			return nil
		}
		if !IsRetryable(err) && !errors.Is(err, ErrVerifyMismatch) {
			return err
		}
	}
	return err
}

// StringPayload returns the bytes written for s.
func StringPayload(s string, terminated bool) []byte {
	payload := make([]byte, 0, len(s)+1)
	payload = append(payload, s...)
	if terminated {
		payload = append(payload, 0x00)
	}
	return payload
}
