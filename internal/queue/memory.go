package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryAdapter is an in-process FIFO store, one queue per name. It is safe
// for concurrent producers and consumers and needs no external locking by
// callers.
type MemoryAdapter struct {
	mu     sync.Mutex
	queues map[string][][]byte

	processed atomic.Int64
	failed    atomic.Int64
}

// NewMemoryAdapter creates an empty in-process queue store.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{queues: make(map[string][][]byte)}
}

// Send appends payload to the tail of the named queue.
func (a *MemoryAdapter) Send(ctx context.Context, queueName string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		a.failed.Add(1)
		return err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)

	a.mu.Lock()
	a.queues[queueName] = append(a.queues[queueName], buf)
	a.mu.Unlock()
	return nil
}

// Receive pops the head of the named queue, returning ok=false when empty.
func (a *MemoryAdapter) Receive(ctx context.Context, queueName string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	q := a.queues[queueName]
	if len(q) == 0 {
		return nil, false, nil
	}
	payload := q[0]
	a.queues[queueName] = q[1:]
	a.processed.Add(1)
	return payload, true, nil
}

// IsHealthy always reports true for the in-process store.
func (a *MemoryAdapter) IsHealthy(ctx context.Context) bool {
	return true
}

// Statistics reports the named queue's depth and lifetime counters.
func (a *MemoryAdapter) Statistics(ctx context.Context, queueName string) (Stats, error) {
	a.mu.Lock()
	depth := int64(len(a.queues[queueName]))
	a.mu.Unlock()

	return Stats{
		Depth:     depth,
		Processed: a.processed.Load(),
		Failed:    a.failed.Load(),
	}, nil
}

// Close is a no-op for the in-process store.
func (a *MemoryAdapter) Close() error {
	return nil
}
