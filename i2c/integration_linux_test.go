package i2c

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/memory/at24"
)

type testHandle interface {
	eeprom.I2CDevice
	Close() error
}

type peerCloser struct {
	*eeprom.Peer
	bus *GenericBus
}

func (p peerCloser) Close() error {
	return p.bus.Close()
}

// openTestEEPROM opens the EEPROM named by the AT24_TEST_* variables.
func openTestEEPROM(t *testing.T) (testHandle, at24.Geometry, uint32) {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION_ENABLED") != "1" {
		t.Skip("integration tests disabled")
	}
	geo, ok := at24.LookupGeometry(os.Getenv("AT24_TEST_PART"))
	require.True(t, ok, "unknown part %q", os.Getenv("AT24_TEST_PART"))
	peer, err := strconv.ParseUint(os.Getenv("AT24_TEST_PEER"), 16, 7)
	require.NoError(t, err)
	offset, err := strconv.ParseUint(os.Getenv("AT24_TEST_OFFSET"), 16, 16)
	require.NoError(t, err)
	bus := os.Getenv("AT24_TEST_BUS")

	switch adapter := os.Getenv("AT24_TEST_ADAPTER"); adapter {
	case "i2cdev":
		dev, err := OpenDev("/dev/i2c-" + bus)
		require.NoError(t, err)
		require.NoError(t, dev.SelectPeer(byte(peer)))
		return dev, geo, uint32(offset)
	case "periph":
		b, err := NewGenericBus(bus)
		require.NoError(t, err)
		p, err := eeprom.NewPeer(b, byte(peer))
		require.NoError(t, err)
		return peerCloser{Peer: p, bus: b}, geo, uint32(offset)
	default:
		t.Fatalf("unsupported adapter %q", adapter)
		return nil, geo, 0
	}
}

func TestIntegration_WriteReadBack(t *testing.T) {
	h, geo, offset := openTestEEPROM(t)
	defer h.Close()
	e, err := at24.New(h, geo)
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := e.Read(ctx, offset, 16)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, e.Write(ctx, offset, saved))
	}()

	pattern := bytes.Repeat([]byte{0xA5, 0x5A}, 8)
	require.NoError(t, e.WriteVerified(ctx, offset, pattern, 1))
	got, err := e.Read(ctx, offset, len(pattern))
	require.NoError(t, err)
	require.Equal(t, pattern, got)
}
