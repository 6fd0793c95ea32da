package at24

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

var errNack = errors.New("remote I/O error")

// MockDevice is a testify mock of a transport bound to one peer.
type MockDevice struct {
	mock.Mock
	zeroLength    bool
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func newMockDevice() *MockDevice {
	return &MockDevice{zeroLength: true}
}

// newTrialDevice returns a mock that declares no probe capability.
func newTrialDevice() *mockTrialDevice {
	return &mockTrialDevice{dev: &MockDevice{}}
}

func (m *MockDevice) enter() {
	m.mu.Lock()
	concurrent := atomic.AddInt64(&m.concurrentOps, 1)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
	m.mu.Unlock()
}

func (m *MockDevice) leave() {
	atomic.AddInt64(&m.concurrentOps, -1)
}

func (m *MockDevice) Write(ctx context.Context, buffer []byte) (int, error) {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, append([]byte{}, buffer...))
	return args.Int(0), args.Error(1)
}

func (m *MockDevice) Read(ctx context.Context, buffer []byte) (int, error) {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, len(buffer))
	if data, ok := args.Get(0).([]byte); ok {
		copy(buffer, data)
	}
	return args.Int(1), args.Error(2)
}

func (m *MockDevice) ZeroLengthWrites() bool {
	return m.zeroLength
}

// mockTrialDevice hides the ZeroLengthWrites capability.
type mockTrialDevice struct {
	dev *MockDevice
}

func (m *mockTrialDevice) Write(ctx context.Context, buffer []byte) (int, error) {
	return m.dev.Write(ctx, buffer)
}

func (m *mockTrialDevice) Read(ctx context.Context, buffer []byte) (int, error) {
	return m.dev.Read(ctx, buffer)
}

// noSleep keeps poll tests fast and counts the pauses.
type noSleep struct {
	calls int
}

func (n *noSleep) sleep(time.Duration) {
	n.calls++
}
