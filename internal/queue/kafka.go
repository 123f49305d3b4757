package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaAdapter satisfies the Adapter contract against a Kafka cluster, one
// topic per queue name. Writer and reader handles are resolved lazily on
// first use and cached behind a mutex so concurrent resolutions do not
// duplicate the lookup.
type KafkaAdapter struct {
	brokers []string
	groupID string
	maxWait time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers map[string]*kafka.Reader

	processed atomic.Int64
	failed    atomic.Int64
}

// NewKafkaAdapter creates an adapter over the given brokers. maxWait bounds
// how long a single Receive may block waiting for a message.
func NewKafkaAdapter(brokers []string, groupID string, maxWait time.Duration, logger *zap.Logger) *KafkaAdapter {
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &KafkaAdapter{
		brokers: brokers,
		groupID: groupID,
		maxWait: maxWait,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
		readers: make(map[string]*kafka.Reader),
	}
}

func (a *KafkaAdapter) writer(queueName string) *kafka.Writer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if w, ok := a.writers[queueName]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(a.brokers...),
		Topic:        queueName,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		Async:        false,
	}
	a.writers[queueName] = w
	return w
}

func (a *KafkaAdapter) reader(queueName string) *kafka.Reader {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.readers[queueName]; ok {
		return r
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  a.brokers,
		Topic:    queueName,
		GroupID:  a.groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  a.maxWait,
	})
	a.readers[queueName] = r
	return r
}

// Send publishes payload to the topic named queueName.
func (a *KafkaAdapter) Send(ctx context.Context, queueName string, payload []byte) error {
	err := a.writer(queueName).WriteMessages(ctx, kafka.Message{
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		a.failed.Add(1)
		return fmt.Errorf("kafka send to %s: %w", queueName, err)
	}
	return nil
}

// Receive long-polls the topic for at most the configured wait window. An
// elapsed window is not an error; it reports ok=false.
func (a *KafkaAdapter) Receive(ctx context.Context, queueName string) ([]byte, bool, error) {
	r := a.reader(queueName)

	fetchCtx, cancel := context.WithTimeout(ctx, a.maxWait)
	defer cancel()

	m, err := r.FetchMessage(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, false, nil
		}
		a.failed.Add(1)
		return nil, false, fmt.Errorf("kafka receive from %s: %w", queueName, err)
	}

	if err := r.CommitMessages(ctx, m); err != nil {
		a.logger.Error("failed to commit message", zap.String("queue", queueName), zap.Error(err))
	}
	a.processed.Add(1)
	return m.Value, true, nil
}

// IsHealthy dials the first broker and fetches partition metadata.
func (a *KafkaAdapter) IsHealthy(ctx context.Context) bool {
	if len(a.brokers) == 0 {
		return false
	}
	conn, err := kafka.DialContext(ctx, "tcp", a.brokers[0])
	if err != nil {
		return false
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return false
	}
	return true
}

// Statistics reports consumer lag as depth plus the adapter counters.
func (a *KafkaAdapter) Statistics(ctx context.Context, queueName string) (Stats, error) {
	stats := Stats{
		Processed: a.processed.Load(),
		Failed:    a.failed.Load(),
	}

	a.mu.Lock()
	r, ok := a.readers[queueName]
	a.mu.Unlock()
	if ok {
		lag, err := r.ReadLag(ctx)
		if err != nil {
			return stats, fmt.Errorf("kafka lag for %s: %w", queueName, err)
		}
		stats.Depth = lag
	}
	return stats, nil
}

// Close shuts down every cached writer and reader.
func (a *KafkaAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for name, w := range a.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close writer %s: %w", name, err)
		}
	}
	for name, r := range a.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close reader %s: %w", name, err)
		}
	}
	a.writers = make(map[string]*kafka.Writer)
	a.readers = make(map[string]*kafka.Reader)
	return firstErr
}
