package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_FIFO(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, adapter.Send(ctx, "q", []byte(fmt.Sprintf("msg-%d", i))))
	}

	for i := 0; i < 3; i++ {
		payload, ok, err := adapter.Receive(ctx, "q")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), string(payload))
	}

	_, ok, err := adapter.Receive(ctx, "q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAdapter_QueuesAreIndependent(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, adapter.Send(ctx, "a", []byte("for-a")))
	require.NoError(t, adapter.Send(ctx, "b", []byte("for-b")))

	payload, ok, err := adapter.Receive(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "for-b", string(payload))

	stats, err := adapter.Statistics(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Depth)
}

func TestMemoryAdapter_CopiesPayload(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx := context.Background()

	payload := []byte("original")
	require.NoError(t, adapter.Send(ctx, "q", payload))
	payload[0] = 'X'

	got, ok, err := adapter.Receive(ctx, "q")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", string(got))
}

func TestMemoryAdapter_ConcurrentProducersAndConsumers(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx := context.Background()

	const producers = 4
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = adapter.Send(ctx, "q", []byte(fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	received := 0
	for {
		_, ok, err := adapter.Receive(ctx, "q")
		require.NoError(t, err)
		if !ok {
			break
		}
		received++
	}
	assert.Equal(t, producers*perProducer, received)
}

func TestMemoryAdapter_Statistics(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, adapter.Send(ctx, "q", []byte("one")))
	require.NoError(t, adapter.Send(ctx, "q", []byte("two")))

	_, ok, err := adapter.Receive(ctx, "q")
	require.NoError(t, err)
	require.True(t, ok)

	stats, err := adapter.Statistics(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Depth)
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestMemoryAdapter_CancelledContext(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := adapter.Send(ctx, "q", []byte("payload"))
	assert.Error(t, err)

	_, _, err = adapter.Receive(ctx, "q")
	assert.Error(t, err)
}

func TestMemoryAdapter_IsHealthy(t *testing.T) {
	assert.True(t, NewMemoryAdapter().IsHealthy(context.Background()))
}
