package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAdapter(t *testing.T) {
	logger := zap.NewNop()

	t.Run("defaults to memory", func(t *testing.T) {
		adapter, err := NewAdapter(Config{}, logger)
		require.NoError(t, err)
		assert.IsType(t, &MemoryAdapter{}, adapter)
	})

	t.Run("kafka requires brokers", func(t *testing.T) {
		_, err := NewAdapter(Config{Backend: "kafka"}, logger)
		assert.Error(t, err)
	})

	t.Run("redis requires url", func(t *testing.T) {
		_, err := NewAdapter(Config{Backend: "redis"}, logger)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewAdapter(Config{Backend: "rabbitmq"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq")
	})
}
