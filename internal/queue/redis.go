package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter backs each named queue with a Redis list. Receive uses BRPOP
// with a bounded timeout so it long-polls instead of busy-polling.
type RedisAdapter struct {
	client  *redis.Client
	maxWait time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

// NewRedisAdapter connects to the Redis instance named by connString
// (redis:// URL).
func NewRedisAdapter(connString string, maxWait time.Duration) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(connString)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &RedisAdapter{client: redis.NewClient(opts), maxWait: maxWait}, nil
}

// Send pushes payload onto the head of the list; consumers pop the tail.
func (a *RedisAdapter) Send(ctx context.Context, queueName string, payload []byte) error {
	if err := a.client.LPush(ctx, queueName, payload).Err(); err != nil {
		a.failed.Add(1)
		return fmt.Errorf("redis send to %s: %w", queueName, err)
	}
	return nil
}

// Receive blocks for at most the configured wait window; an empty queue
// reports ok=false.
func (a *RedisAdapter) Receive(ctx context.Context, queueName string) ([]byte, bool, error) {
	res, err := a.client.BRPop(ctx, a.maxWait, queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, false, nil
		}
		a.failed.Add(1)
		return nil, false, fmt.Errorf("redis receive from %s: %w", queueName, err)
	}
	// BRPop returns [key, value]
	if len(res) != 2 {
		return nil, false, nil
	}
	a.processed.Add(1)
	return []byte(res[1]), true, nil
}

// IsHealthy pings the server.
func (a *RedisAdapter) IsHealthy(ctx context.Context) bool {
	return a.client.Ping(ctx).Err() == nil
}

// Statistics reports the list length plus the adapter counters.
func (a *RedisAdapter) Statistics(ctx context.Context, queueName string) (Stats, error) {
	depth, err := a.client.LLen(ctx, queueName).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis llen %s: %w", queueName, err)
	}
	return Stats{
		Depth:     depth,
		Processed: a.processed.Load(),
		Failed:    a.failed.Load(),
	}, nil
}

// Close releases the client connection.
func (a *RedisAdapter) Close() error {
	return a.client.Close()
}
