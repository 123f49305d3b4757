// Package queue provides a uniform send/receive contract over named queues.
// Backends are interchangeable: an in-process FIFO store, a Kafka client and
// a Redis list client all satisfy the same Adapter interface.
package queue

import (
	"context"
	"time"
)

// Stats describes a named queue and the adapter's lifetime counters.
type Stats struct {
	Depth     int64 `json:"depth"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Adapter is the backend-agnostic queue contract. Receive is a bounded-wait
// single-message pop: it returns ok=false when no message arrived within the
// backend's wait window and never blocks the caller indefinitely.
type Adapter interface {
	Send(ctx context.Context, queueName string, payload []byte) error
	Receive(ctx context.Context, queueName string) (payload []byte, ok bool, err error)
	IsHealthy(ctx context.Context) bool
	Statistics(ctx context.Context, queueName string) (Stats, error)
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is one of "memory", "kafka" or "redis".
	Backend string
	// Brokers and GroupID configure the kafka backend.
	Brokers []string
	GroupID string
	// RedisURL configures the redis backend.
	RedisURL string
	// ReceiveMaxWait bounds how long a single Receive may wait for a message.
	ReceiveMaxWait time.Duration
}
