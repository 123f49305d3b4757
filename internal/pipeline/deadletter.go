package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"swift-gateway/internal/observability"
	"swift-gateway/internal/queue"
	"swift-gateway/pkg/models"
)

// DeadLetterRouter packages failing raw payloads with diagnostics and places
// them on the dead-letter queue. A failing message is never dropped silently:
// when the dead-letter send itself fails, the loss is logged at the highest
// severity and counted.
type DeadLetterRouter struct {
	queues    queue.Adapter
	queueName string
	logger    *zap.Logger
	metrics   observability.PipelineMetrics
}

// NewDeadLetterRouter creates a router targeting queueName.
func NewDeadLetterRouter(queues queue.Adapter, queueName string, logger *zap.Logger, metrics observability.PipelineMetrics) *DeadLetterRouter {
	return &DeadLetterRouter{
		queues:    queues,
		queueName: queueName,
		logger:    logger,
		metrics:   metrics,
	}
}

// Route builds the fixed-shape envelope and sends it. The send runs on a
// detached context so pipeline cancellation cannot interrupt it.
func (r *DeadLetterRouter) Route(rawPayload []byte, stage models.Stage, reason string) error {
	envelope := models.DeadLetterEnvelope{
		RawPayload: string(rawPayload),
		Stage:      stage,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		// envelope fields are plain strings; this cannot happen in practice
		return &SystemError{Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.queues.Send(ctx, r.queueName, body); err != nil {
		r.metrics.RecordLost()
		r.logger.Error("dead-letter delivery failed, message may be lost",
			zap.Bool("fatal", true),
			zap.String("queue", r.queueName),
			zap.String("stage", string(stage)),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return &RoutingError{Queue: r.queueName, Err: err}
	}

	r.metrics.RecordDeadLettered()
	r.logger.Info("message routed to dead-letter queue",
		zap.String("stage", string(stage)),
		zap.String("reason", reason),
	)
	return nil
}
