// Package pipeline orchestrates MT103 processing: parse, validate, persist
// and route, with per-stage retry policy and dead-letter escalation. The
// pipeline is driven by a polling loop whose lifecycle is controlled through
// command messages, never through shared mutable flags.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"swift-gateway/internal/observability"
	"swift-gateway/internal/queue"
	"swift-gateway/internal/store"
	"swift-gateway/internal/swift"
	"swift-gateway/internal/validate"
	"swift-gateway/pkg/models"
)

// Config parameterizes the pipeline. Queue names, retry bounds and
// concurrency limits are supplied externally.
type Config struct {
	InputQueue      string
	CompletedQueue  string
	DeadLetterQueue string

	MaxRetries     int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	MaxConcurrent  int
	PollInterval   time.Duration
	ProcessTimeout time.Duration
}

func (c *Config) withDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = 30 * time.Second
	}
}

// Status is the control surface's view of the loop.
type Status struct {
	Polling       bool      `json:"polling"`
	LastProcessed time.Time `json:"last_processed,omitempty"`
	Queued        int64     `json:"queued"`
	Processed     int64     `json:"processed"`
	Failed        int64     `json:"failed"`
	DeadLettered  int64     `json:"dead_lettered"`
	AvgLatencyMS  int64     `json:"avg_latency_ms"`
}

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdRestart
	cmdStatus
)

type controlMsg struct {
	cmd   command
	reply chan Status
}

// Pipeline ties parser, validator, store, queues and dead-letter routing
// together.
type Pipeline struct {
	cfg      Config
	queues   queue.Adapter
	store    store.MessageStore
	parser   *swift.Parser
	dlq      *DeadLetterRouter
	metrics  observability.PipelineMetrics
	logger   *zap.Logger
	policies retryPolicies

	ctrl          chan controlMsg
	lastProcessed atomic.Int64 // unix nanos
}

// New assembles a pipeline. The dead-letter router shares the queue adapter.
func New(cfg Config, queues queue.Adapter, messageStore store.MessageStore, metrics observability.PipelineMetrics, logger *zap.Logger) *Pipeline {
	cfg.withDefaults()
	if metrics == nil {
		metrics = observability.NewInMemoryMetrics()
	}
	return &Pipeline{
		cfg:      cfg,
		queues:   queues,
		store:    messageStore,
		parser:   swift.NewParser(),
		dlq:      NewDeadLetterRouter(queues, cfg.DeadLetterQueue, logger, metrics),
		metrics:  metrics,
		logger:   logger,
		policies: newRetryPolicies(cfg.MaxRetries, cfg.BaseBackoff, cfg.MaxBackoff),
		ctrl:     make(chan controlMsg),
	}
}

// Run owns the polling loop until ctx is cancelled. Control commands are the
// only way to pause or resume polling; a stop lets in-flight messages finish
// and takes effect before the next dequeue.
func (p *Pipeline) Run(ctx context.Context) error {
	polling := true
	sem := make(chan struct{}, p.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	defer func() {
		wg.Wait()
		snap := p.metrics.Snapshot()
		p.logger.Info("pipeline stopped",
			zap.Int64("processed", snap.Processed),
			zap.Int64("failed", snap.Failed),
			zap.Int64("dead_lettered", snap.DeadLettered),
		)
	}()

	for {
		if !polling {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-p.ctrl:
				p.handleControl(ctx, msg, &polling)
			}
			continue
		}

		// control and cancellation are consulted before every dequeue
		select {
		case <-ctx.Done():
			return nil
		case msg := <-p.ctrl:
			p.handleControl(ctx, msg, &polling)
			continue
		default:
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		case msg := <-p.ctrl:
			p.handleControl(ctx, msg, &polling)
			continue
		}

		payload, ok, err := p.queues.Receive(ctx, p.cfg.InputQueue)
		if err != nil {
			<-sem
			p.logger.Error("failed to receive from input queue", zap.Error(err))
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}
		if !ok {
			<-sem
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}

		wg.Add(1)
		go func(raw []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processMessage(raw)
		}(payload)
	}
}

func (p *Pipeline) handleControl(ctx context.Context, msg controlMsg, polling *bool) {
	switch msg.cmd {
	case cmdStart:
		*polling = true
	case cmdStop:
		*polling = false
	case cmdRestart:
		*polling = true
	case cmdStatus:
	}
	msg.reply <- p.status(ctx, *polling)
}

func (p *Pipeline) status(ctx context.Context, polling bool) Status {
	snap := p.metrics.Snapshot()
	st := Status{
		Polling:      polling,
		Processed:    snap.Processed,
		Failed:       snap.Failed,
		DeadLettered: snap.DeadLettered,
		AvgLatencyMS: snap.AvgLatency.Milliseconds(),
	}
	if ns := p.lastProcessed.Load(); ns > 0 {
		st.LastProcessed = time.Unix(0, ns).UTC()
	}
	statCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if stats, err := p.queues.Statistics(statCtx, p.cfg.InputQueue); err == nil {
		st.Queued = stats.Depth
	}
	return st
}

func (p *Pipeline) send(ctx context.Context, cmd command) (Status, error) {
	msg := controlMsg{cmd: cmd, reply: make(chan Status, 1)}
	select {
	case p.ctrl <- msg:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-msg.reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Start resumes polling.
func (p *Pipeline) Start(ctx context.Context) (Status, error) {
	return p.send(ctx, cmdStart)
}

// Stop pauses polling before the next dequeue; in-flight messages finish.
func (p *Pipeline) Stop(ctx context.Context) (Status, error) {
	return p.send(ctx, cmdStop)
}

// Restart is a stop followed by a start.
func (p *Pipeline) Restart(ctx context.Context) (Status, error) {
	if _, err := p.send(ctx, cmdStop); err != nil {
		return Status{}, err
	}
	return p.send(ctx, cmdRestart)
}

// GetStatus reports the loop's current state.
func (p *Pipeline) GetStatus(ctx context.Context) (Status, error) {
	return p.send(ctx, cmdStatus)
}

// processMessage runs one raw payload through the full state machine and
// records its outcome exactly once. It uses a detached context so that
// pipeline cancellation lands between messages, never mid-persist.
func (p *Pipeline) processMessage(payload []byte) models.ProcessingResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ProcessTimeout)
	defer cancel()

	id := uuid.NewString()
	logger := p.logger.With(zap.String("message_id", id))

	result := p.process(ctx, id, payload, logger)

	if result.Success {
		p.metrics.RecordProcessed(time.Since(start))
		logger.Info("message processed",
			zap.String("stored_id", result.MessageID),
			zap.Duration("latency", time.Since(start)),
		)
	} else {
		p.metrics.RecordFailed()
		logger.Warn("message failed",
			zap.String("stage", string(result.Stage)),
			zap.String("error_kind", result.ErrorKind),
			zap.String("detail", result.Detail),
		)
	}
	p.lastProcessed.Store(time.Now().UnixNano())
	return result
}

func (p *Pipeline) process(ctx context.Context, id string, payload []byte, logger *zap.Logger) (result models.ProcessingResult) {
	stage := models.StageParsing
	defer func() {
		if r := recover(); r != nil {
			err := &SystemError{Err: fmt.Errorf("panic while %s: %v", stage, r)}
			p.dlq.Route(payload, stage, err.Error())
			result = p.failure(id, stage, err)
		}
	}()

	// Parsing: retried against the same raw payload up to the stage budget.
	msg, err := p.parseWithRetry(ctx, id, payload, logger)
	if err != nil {
		p.dlq.Route(payload, models.StageParsing, err.Error())
		return p.failure(id, models.StageParsing, err)
	}

	// Validating: terminal on failure, no retry.
	stage = models.StageValidating
	if vres := validate.Validate(msg); !vres.Valid() {
		verr := vres.Err()
		p.dlq.Route(payload, models.StageValidating, verr.Error())
		return p.failure(id, models.StageValidating, verr)
	}
	msg.Status = models.StatusValidated

	// Persisting: retried with backoff; the store is idempotent per id.
	stage = models.StagePersisting
	storedID, err := p.persistWithRetry(ctx, msg, logger)
	if err != nil {
		p.dlq.Route(payload, models.StagePersisting, err.Error())
		return p.failure(id, models.StagePersisting, err)
	}

	// Routing: forward the raw payload verbatim; retries never re-persist.
	stage = models.StageRouting
	if err := p.forwardWithRetry(ctx, payload, logger); err != nil {
		p.dlq.Route(payload, models.StageRouting, err.Error())
		return p.failure(id, models.StageRouting, err)
	}

	if err := p.store.UpdateStatus(ctx, storedID, models.StatusCompleted); err != nil {
		logger.Warn("failed to mark message completed", zap.Error(err))
	}

	return models.ProcessingResult{Success: true, MessageID: storedID}
}

func (p *Pipeline) parseWithRetry(ctx context.Context, id string, payload []byte, logger *zap.Logger) (*models.MT103Message, error) {
	policy := p.policies.PolicyFor(models.StageParsing)
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			p.metrics.RecordRetried()
			if err := p.sleep(ctx, policy.Backoff(attempt-1)); err != nil {
				return nil, lastErr
			}
		}
		msg, err := p.parser.Parse(id, string(payload))
		if err == nil {
			return msg, nil
		}
		lastErr = err
		logger.Warn("parse attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

func (p *Pipeline) persistWithRetry(ctx context.Context, msg *models.MT103Message, logger *zap.Logger) (string, error) {
	policy := p.policies.PolicyFor(models.StagePersisting)
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			p.metrics.RecordRetried()
			if err := p.sleep(ctx, policy.Backoff(attempt-1)); err != nil {
				break
			}
		}
		storedID, err := p.store.SaveMessage(ctx, msg)
		if err == nil {
			msg.Status = models.StatusPersisted
			return storedID, nil
		}
		lastErr = err
		logger.Warn("persist attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Error(err),
		)
	}
	return "", &PersistenceError{Err: lastErr}
}

func (p *Pipeline) forwardWithRetry(ctx context.Context, payload []byte, logger *zap.Logger) error {
	policy := p.policies.PolicyFor(models.StageRouting)
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			p.metrics.RecordRetried()
			if err := p.sleep(ctx, policy.Backoff(attempt-1)); err != nil {
				break
			}
		}
		err := p.queues.Send(ctx, p.cfg.CompletedQueue, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("forward attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Error(err),
		)
	}
	return &RoutingError{Queue: p.cfg.CompletedQueue, Err: lastErr}
}

func (p *Pipeline) failure(id string, stage models.Stage, err error) models.ProcessingResult {
	return models.ProcessingResult{
		Success:   false,
		MessageID: id,
		Stage:     stage,
		ErrorKind: errorKind(err),
		Detail:    err.Error(),
	}
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
