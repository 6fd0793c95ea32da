package at24

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReadRandom_TwoByteAddress(t *testing.T) {
	geo := Geometry{AddressWidth: 2}
	data := []byte{0x10, 0x11, 0x12, 0x13, 0x14}
	dev := newMockDevice()
	set := dev.On("Write", mock.Anything, []byte{0x00, 0x10}).Return(2, nil).Once()
	dev.On("Read", mock.Anything, 5).Return(data, 5, nil).Once().NotBefore(set)

	got, err := ReadRandom(context.Background(), dev, geo, ReadRequest{Start: 0x10, Length: 5})

	require.NoError(t, err)
	assert.Equal(t, data, got)
	dev.AssertExpectations(t)
}

func TestReadRandom_OneByteAddressTruncates(t *testing.T) {
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{0x34}).Return(1, nil).Once()
	dev.On("Read", mock.Anything, 1).Return([]byte{0xAB}, 1, nil).Once()

	got, err := ReadRandom(context.Background(), dev, Geometry{AddressWidth: 1}, ReadRequest{Start: 0x1234, Length: 1})

	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB}, got)
}

func TestReadRandom_Failures(t *testing.T) {
	geo := Geometry{AddressWidth: 1}
	tests := []struct {
		name  string
		setup func(dev *MockDevice)
		op    string
	}{
		{
			name: "address write error",
			setup: func(dev *MockDevice) {
				dev.On("Write", mock.Anything, []byte{0x20}).Return(0, errNack)
			},
			op: OpSetAddress,
		},
		{
			name: "short address write",
			setup: func(dev *MockDevice) {
				dev.On("Write", mock.Anything, []byte{0x20}).Return(0, nil)
			},
			op: OpSetAddress,
		},
		{
			name: "read error",
			setup: func(dev *MockDevice) {
				dev.On("Write", mock.Anything, []byte{0x20}).Return(1, nil)
				dev.On("Read", mock.Anything, 4).Return(nil, 0, errNack)
			},
			op: OpRead,
		},
		{
			name: "short read",
			setup: func(dev *MockDevice) {
				dev.On("Write", mock.Anything, []byte{0x20}).Return(1, nil)
				dev.On("Read", mock.Anything, 4).Return([]byte{1, 2}, 2, nil)
			},
			op: OpRead,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev := newMockDevice()
			test.setup(dev)
			got, err := ReadRandom(context.Background(), dev, geo, ReadRequest{Start: 0x20, Length: 4})
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrTransportFailure)
			var opErr *OpError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, test.op, opErr.Op)
		})
	}
}

func TestReadRandom_ZeroLength(t *testing.T) {
	dev := newMockDevice()
	got, err := ReadRandom(context.Background(), dev, Geometry{AddressWidth: 2}, ReadRequest{Start: 0x10})
	require.NoError(t, err)
	assert.Empty(t, got)
	dev.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestReadRandom_InvalidRequest(t *testing.T) {
	dev := newMockDevice()
	_, err := ReadRandom(context.Background(), dev, Geometry{AddressWidth: 3}, ReadRequest{Start: 0x10, Length: 2})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = ReadRandom(context.Background(), dev, Geometry{AddressWidth: 1}, ReadRequest{Start: 0x10, Length: -1})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	dev.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}
