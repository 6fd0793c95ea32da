package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/eeprom"
)

// MockConnection overrides the stream methods of a gobot connection.
type MockConnection struct {
	gi2c.Connection
	mock.Mock
}

func (m *MockConnection) Write(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *MockConnection) Read(b []byte) (int, error) {
	args := m.Called(len(b))
	if data, ok := args.Get(0).([]byte); ok {
		copy(b, data)
	}
	return args.Int(1), args.Error(2)
}

func (m *MockConnection) Close() error {
	return m.Called().Error(0)
}

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) GetI2cConnection(address int, busNr int) (gi2c.Connection, error) {
	args := m.Called(address, busNr)
	c, _ := args.Get(0).(gi2c.Connection)
	return c, args.Error(1)
}

func TestGobotBus_ReusesConnection(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Write", []byte{0x00, 0x01}).Return(2, nil).Twice()
	conn.On("Read", 3).Return([]byte{1, 2, 3}, 3, nil).Once()
	conn.On("Close").Return(nil).Once()
	connector := new(MockConnector)
	connector.On("GetI2cConnection", 0x50, 1).Return(conn, nil).Once()
	bus := NewGobotBus(connector, 1)
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x50, []byte{0x00, 0x01}))
	require.NoError(t, bus.WriteToAddr(ctx, 0x50, []byte{0x00, 0x01}))
	buf := make([]byte, 3)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x50, buf))
	assert.Equal(t, []byte{1, 2, 3}, buf)
	require.NoError(t, bus.Close())

	conn.AssertExpectations(t)
	connector.AssertExpectations(t)
}

func TestGobotBus_Errors(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Write", []byte{0x00}).Return(0, errors.New("remote I/O error")).Once()
	conn.On("Read", 2).Return([]byte{1}, 1, nil).Once()
	connector := new(MockConnector)
	connector.On("GetI2cConnection", 0x50, 0).Return(conn, nil)
	connector.On("GetI2cConnection", 0x51, 0).Return(nil, errors.New("no such bus"))
	bus := NewGobotBus(connector, 0)
	ctx := context.Background()

	assert.ErrorContains(t, bus.WriteToAddr(ctx, 0x50, []byte{0x00}), "remote I/O error")
	assert.ErrorContains(t, bus.ReadFromAddr(ctx, 0x50, make([]byte, 2)), "short read")
	assert.ErrorContains(t, bus.ReadFromAddr(ctx, 0x51, make([]byte, 2)), "no such bus")
	assert.ErrorIs(t, bus.WriteToAddr(ctx, 0x50, nil), eeprom.ErrZeroLengthUnsupported)
	assert.False(t, bus.ZeroLengthWrites())
}
