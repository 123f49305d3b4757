package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, "mt103-incoming", cfg.Pipeline.InputQueue)
	assert.Equal(t, "mt103-completed", cfg.Pipeline.CompletedQueue)
	assert.Equal(t, "mt103-dead-letter", cfg.Pipeline.DeadLetterQueue)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 5, cfg.Pipeline.MaxConcurrent)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("PIPELINE_MAX_RETRIES", "5")
	t.Setenv("PIPELINE_BASE_BACKOFF", "250ms")

	cfg := Load()
	assert.Equal(t, "kafka", cfg.Queue.Backend)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Queue.KafkaBrokers)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.BaseBackoff)
	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Queue.Backend = "sqs" }},
		{"kafka without brokers", func(c *Config) {
			c.Queue.Backend = "kafka"
			c.Queue.KafkaBrokers = nil
		}},
		{"redis without url", func(c *Config) {
			c.Queue.Backend = "redis"
			c.Queue.RedisURL = ""
		}},
		{"empty queue name", func(c *Config) { c.Pipeline.InputQueue = "" }},
		{"zero retries", func(c *Config) { c.Pipeline.MaxRetries = 0 }},
		{"zero concurrency", func(c *Config) { c.Pipeline.MaxConcurrent = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
