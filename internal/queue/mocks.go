package queue

import (
	"context"
	"sync"
)

// MockAdapter is a test double over the in-process store with overridable
// behavior per operation.
type MockAdapter struct {
	mu sync.Mutex

	SendFunc    func(ctx context.Context, queueName string, payload []byte) error
	ReceiveFunc func(ctx context.Context, queueName string) ([]byte, bool, error)
	HealthyFunc func(ctx context.Context) bool

	inner *MemoryAdapter
	sends map[string]int
}

// NewMockAdapter creates a mock backed by a fresh MemoryAdapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inner: NewMemoryAdapter(),
		sends: make(map[string]int),
	}
}

func (m *MockAdapter) Send(ctx context.Context, queueName string, payload []byte) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, queueName, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.sends[queueName]++
	m.mu.Unlock()
	return m.inner.Send(ctx, queueName, payload)
}

func (m *MockAdapter) Receive(ctx context.Context, queueName string) ([]byte, bool, error) {
	if m.ReceiveFunc != nil {
		return m.ReceiveFunc(ctx, queueName)
	}
	return m.inner.Receive(ctx, queueName)
}

func (m *MockAdapter) IsHealthy(ctx context.Context) bool {
	if m.HealthyFunc != nil {
		return m.HealthyFunc(ctx)
	}
	return true
}

func (m *MockAdapter) Statistics(ctx context.Context, queueName string) (Stats, error) {
	return m.inner.Statistics(ctx, queueName)
}

func (m *MockAdapter) Close() error {
	return nil
}

// SendCount reports how many payloads were accepted for queueName.
func (m *MockAdapter) SendCount(queueName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends[queueName]
}

// Drain pops every payload currently queued under queueName.
func (m *MockAdapter) Drain(queueName string) [][]byte {
	var payloads [][]byte
	for {
		payload, ok, err := m.inner.Receive(context.Background(), queueName)
		if err != nil || !ok {
			return payloads
		}
		payloads = append(payloads, payload)
	}
}
