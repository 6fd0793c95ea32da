package at24

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mklimuk/eeprom"
)

const (
	DefaultPollInterval = time.Millisecond
	// DefaultPollTimeout covers the 5ms write cycle of common parts with a
	// wide margin.
	DefaultPollTimeout = 50 * time.Millisecond
)

// ProbeMode selects how the poller asks a busy device whether its write
// cycle has finished.
type ProbeMode int

const (
	// ProbeAuto uses the transport's declared capability. Without one, each
	// attempt tries an empty write and then a single data byte.
	ProbeAuto ProbeMode = iota
	// ProbeZeroLength sends address-only transactions.
	ProbeZeroLength
	// ProbeDataByte sends one 0x00 byte. AT24 parts read it as the first half
	// of a word address and discard it when the transaction ends; other
	// device families may not.
	ProbeDataByte
)

func (m ProbeMode) String() string {
	switch m {
	case ProbeZeroLength:
		return "zero"
	case ProbeDataByte:
		return "byte"
	default:
		return "auto"
	}
}

func ParseProbeMode(s string) (ProbeMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ProbeAuto, nil
	case "zero", "zero-length":
		return ProbeZeroLength, nil
	case "byte", "data-byte":
		return ProbeDataByte, nil
	}
	return ProbeAuto, fmt.Errorf("%w: unknown probe mode %q", ErrInvalidConfiguration, s)
}

// TimeoutError is returned by Poll when the device never acknowledged. It
// matches ErrWriteTimeout and unwraps to the last transport error seen.
type TimeoutError struct {
	Probes int
	Last   error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("no acknowledge after %d probes", e.Probes)
	}
	return fmt.Sprintf("no acknowledge after %d probes: %v", e.Probes, e.Last)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrWriteTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

type PollerOpts struct {
	Interval time.Duration
	Probe    ProbeMode
	Sleep    func(time.Duration)
	Logger   *slog.Logger
}

type PollerOpt func(*PollerOpts)

func WithInterval(interval time.Duration) PollerOpt {
	return func(o *PollerOpts) {
		o.Interval = interval
	}
}

func WithProbeMode(mode ProbeMode) PollerOpt {
	return func(o *PollerOpts) {
		o.Probe = mode
	}
}

// WithSleep replaces time.Sleep between attempts.
func WithSleep(sleep func(time.Duration)) PollerOpt {
	return func(o *PollerOpts) {
		o.Sleep = sleep
	}
}

func WithPollLogger(logger *slog.Logger) PollerOpt {
	return func(o *PollerOpts) {
		o.Logger = logger
	}
}

// AckPoller waits for a device to finish its internal write cycle by probing
// it until it acknowledges again.
type AckPoller struct {
	config   PollerOpts
	attempts int
}

// NewAckPoller returns a poller making one attempt per interval for the
// duration of timeout (50 attempts for 50ms at the default 1ms interval).
func NewAckPoller(timeout time.Duration, opts ...PollerOpt) *AckPoller {
	config := PollerOpts{
		Interval: DefaultPollInterval,
		Probe:    ProbeAuto,
		Sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.Sleep == nil {
		config.Sleep = time.Sleep
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	attempts := 0
	if timeout > 0 {
		attempts = int(timeout / config.Interval)
	}
	return &AckPoller{config: config, attempts: attempts}
}

// Attempts is the probe budget of one Poll call.
func (p *AckPoller) Attempts() int {
	return p.attempts
}

// Resolve returns the probe mode Poll will start with on w.
func (p *AckPoller) Resolve(w eeprom.BusWriter) ProbeMode {
	if p.config.Probe != ProbeAuto {
		return p.config.Probe
	}
	if zl, ok := w.(eeprom.ZeroLengthWriter); ok {
		if zl.ZeroLengthWrites() {
			return ProbeZeroLength
		}
		return ProbeDataByte
	}
	return ProbeAuto
}

// Poll returns nil as soon as the device acknowledges a probe, or a
// *TimeoutError once the attempt budget is spent. Poll does not observe ctx
// cancellation: a started write cycle is always waited out.
func (p *AckPoller) Poll(ctx context.Context, w eeprom.BusWriter) error {
	mode := p.Resolve(w)
	var last error
	for i := 0; i < p.attempts; i++ {
		if i > 0 {
			p.config.Sleep(p.config.Interval)
		}
		ready, err := p.probe(ctx, w, &mode)
		if ready {
			p.config.Logger.Debug("device acknowledged", "probes", i+1, "mode", mode)
			return nil
		}
		if err != nil {
			last = err
		}
	}
	return &TimeoutError{Probes: p.attempts, Last: last}
}

func (p *AckPoller) probe(ctx context.Context, w eeprom.BusWriter, mode *ProbeMode) (bool, error) {
	var buf [1]byte
	switch *mode {
	case ProbeZeroLength:
		n, err := w.Write(ctx, buf[:0])
		return err == nil && n == 0, err
	case ProbeDataByte:
		n, err := w.Write(ctx, buf[:])
		return err == nil && n == 1, err
	}
	n, err := w.Write(ctx, buf[:0])
	if err == nil && n == 0 {
		return true, nil
	}
	if errors.Is(err, eeprom.ErrZeroLengthUnsupported) {
		p.config.Logger.Debug("transport rejects empty writes, probing with a data byte")
		*mode = ProbeDataByte
	}
	n, err = w.Write(ctx, buf[:])
	return err == nil && n == 1, err
}
