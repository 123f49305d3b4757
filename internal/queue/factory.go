package queue

import (
	"fmt"

	"go.uber.org/zap"
)

// NewAdapter creates the backend selected by cfg.Backend.
func NewAdapter(cfg Config, logger *zap.Logger) (Adapter, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryAdapter(), nil
	case "kafka":
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("kafka queue backend requires brokers")
		}
		return NewKafkaAdapter(cfg.Brokers, cfg.GroupID, cfg.ReceiveMaxWait, logger), nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis queue backend requires a redis url")
		}
		return NewRedisAdapter(cfg.RedisURL, cfg.ReceiveMaxWait)
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s", cfg.Backend)
	}
}
