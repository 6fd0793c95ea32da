package at24

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var page8 = Geometry{AddressWidth: 1, PageSize: 8}

func fastPoller(timeout time.Duration) *AckPoller {
	return NewAckPoller(timeout, WithSleep((&noSleep{}).sleep))
}

func TestWritePaged_SingleChunk(t *testing.T) {
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{0x06, 'A', 'B'}).Return(3, nil).Once()
	dev.On("Write", mock.Anything, []byte{}).Return(0, nil).Once()

	err := WritePaged(context.Background(), dev, page8, WriteRequest{Start: 6, Payload: []byte("AB")}, fastPoller(50*time.Millisecond))

	require.NoError(t, err)
	dev.AssertNumberOfCalls(t, "Write", 2)
	dev.AssertExpectations(t)
}

func TestWritePaged_CrossesPageBoundary(t *testing.T) {
	payload := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	dev := newMockDevice()
	first := dev.On("Write", mock.Anything, []byte{0x06, 0, 1}).Return(3, nil).Once()
	poll1 := dev.On("Write", mock.Anything, []byte{}).Return(0, nil).Once().NotBefore(first)
	second := dev.On("Write", mock.Anything, []byte{0x08, 2, 3, 4, 5, 6, 7, 8, 9}).Return(9, nil).Once().NotBefore(poll1)
	dev.On("Write", mock.Anything, []byte{}).Return(0, nil).Once().NotBefore(second)

	err := WritePaged(context.Background(), dev, page8, WriteRequest{Start: 6, Payload: payload}, fastPoller(50*time.Millisecond))

	require.NoError(t, err)
	dev.AssertNumberOfCalls(t, "Write", 4)
	dev.AssertExpectations(t)
}

func TestWritePaged_TwoByteAddressing(t *testing.T) {
	geo := Geometry{AddressWidth: 2, PageSize: 32}
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{0x01, 0x1E, 0xAA, 0xBB}).Return(4, nil).Once()
	dev.On("Write", mock.Anything, []byte{0x01, 0x20, 0xCC}).Return(3, nil).Once()
	dev.On("Write", mock.Anything, []byte{}).Return(0, nil).Twice()

	err := WritePaged(context.Background(), dev, geo, WriteRequest{Start: 0x011E, Payload: []byte{0xAA, 0xBB, 0xCC}}, fastPoller(50*time.Millisecond))

	require.NoError(t, err)
	dev.AssertExpectations(t)
}

func TestWritePaged_EmptyPayload(t *testing.T) {
	dev := newMockDevice()
	err := WritePaged(context.Background(), dev, page8, WriteRequest{Start: 3}, nil)
	require.NoError(t, err)
	dev.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestWritePaged_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		geo  Geometry
	}{
		{"zero page size", Geometry{AddressWidth: 1, PageSize: 0}},
		{"negative page size", Geometry{AddressWidth: 2, PageSize: -8}},
		{"three byte addressing", Geometry{AddressWidth: 3, PageSize: 8}},
		{"no addressing", Geometry{AddressWidth: 0, PageSize: 8}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev := newMockDevice()
			err := WritePaged(context.Background(), dev, test.geo, WriteRequest{Start: 0, Payload: []byte{1, 2, 3}}, nil)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.False(t, IsRetryable(err))
			dev.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
		})
	}
}

func TestWritePaged_OversizedChunk(t *testing.T) {
	geo := Geometry{AddressWidth: 2, PageSize: 512}
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{}).Return(0, nil)
	dev.On("Write", mock.Anything, mock.MatchedBy(func(b []byte) bool { return len(b) == 12 })).Return(12, nil)

	// fits in the transaction buffer
	err := WritePaged(context.Background(), dev, geo, WriteRequest{Start: 0, Payload: make([]byte, 10)}, fastPoller(time.Millisecond))
	require.NoError(t, err)

	dev = newMockDevice()
	err = WritePaged(context.Background(), dev, geo, WriteRequest{Start: 0, Payload: make([]byte, 300)}, fastPoller(time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	dev.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestWritePaged_OversizedLaterChunkSendsNothing(t *testing.T) {
	geo := Geometry{AddressWidth: 2, PageSize: 300}
	dev := newMockDevice()

	// {250,50} would fit, {300,300} does not
	err := WritePaged(context.Background(), dev, geo, WriteRequest{Start: 250, Payload: make([]byte, 400)}, fastPoller(time.Millisecond))

	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, uint32(300), opErr.Addr)
	dev.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestWritePaged_InvalidConfigurationMessage(t *testing.T) {
	dev := newMockDevice()
	err := WritePaged(context.Background(), dev, Geometry{AddressWidth: 1, PageSize: 0}, WriteRequest{Start: 6, Payload: []byte{1}}, nil)
	assert.Equal(t, "at24: write chunk at 0x06: invalid configuration: page size must be positive, got 0", err.Error())
}

func TestWritePaged_ShortWriteAborts(t *testing.T) {
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{0x06, 0, 0}).Return(2, nil).Once()

	err := WritePaged(context.Background(), dev, page8, WriteRequest{Start: 6, Payload: make([]byte, 10)}, fastPoller(50*time.Millisecond))

	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.True(t, IsRetryable(err))
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpWriteChunk, opErr.Op)
	assert.Equal(t, uint32(6), opErr.Addr)
	assert.Contains(t, err.Error(), "short write: 2 of 3 bytes")
	// no poll and no second chunk
	dev.AssertNumberOfCalls(t, "Write", 1)
}

func TestWritePaged_TransportErrorAbortsRemainingChunks(t *testing.T) {
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{0x00, 1, 1, 1, 1, 1, 1, 1, 1}).Return(9, nil).Once()
	dev.On("Write", mock.Anything, []byte{}).Return(0, nil).Once()
	dev.On("Write", mock.Anything, []byte{0x08, 1, 1, 1, 1, 1, 1, 1, 1}).Return(0, errNack).Once()

	payload := bytes.Repeat([]byte{1}, 24)
	err := WritePaged(context.Background(), dev, page8, WriteRequest{Start: 0, Payload: payload}, fastPoller(50*time.Millisecond))

	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.ErrorIs(t, err, errNack)
	dev.AssertNumberOfCalls(t, "Write", 3)
	dev.AssertExpectations(t)
}

func TestWritePaged_PollTimeoutAborts(t *testing.T) {
	dev := newMockDevice()
	dev.On("Write", mock.Anything, []byte{0x06, 0, 0}).Return(3, nil).Once()
	dev.On("Write", mock.Anything, []byte{}).Return(0, errNack)

	err := WritePaged(context.Background(), dev, page8, WriteRequest{Start: 6, Payload: make([]byte, 10)}, fastPoller(5*time.Millisecond))

	assert.ErrorIs(t, err, ErrWriteTimeout)
	assert.NotErrorIs(t, err, ErrTransportFailure)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpPoll, opErr.Op)
	assert.Equal(t, "at24: ack poll at 0x06: write cycle timeout: no acknowledge after 5 probes: remote I/O error", err.Error())
	// one chunk, five probes, never the second chunk
	dev.AssertNumberOfCalls(t, "Write", 6)
}

func TestWritePaged_Simulator(t *testing.T) {
	for _, geo := range []Geometry{Geometry24C02, Geometry24C32, Geometry24C512, {AddressWidth: 1, PageSize: 3}} {
		t.Run(geo.String(), func(t *testing.T) {
			sim := NewSimulator(geo, WithBusyFor(2))
			payload := make([]byte, 200)
			for i := range payload {
				payload[i] = byte(i * 7)
			}
			err := WritePaged(context.Background(), sim, geo, WriteRequest{Start: 45, Payload: payload}, fastPoller(10*time.Millisecond))
			require.NoError(t, err)
			assert.Zero(t, sim.PageWraps())
			assert.Equal(t, payload, sim.Memory()[45:245])
			assert.Len(t, sim.PageWrites(), len(Plan(45, 200, geo.PageSize)))
		})
	}
}
