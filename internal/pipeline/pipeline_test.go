package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swift-gateway/internal/observability"
	"swift-gateway/internal/queue"
	"swift-gateway/internal/store"
	"swift-gateway/pkg/models"
)

const validRaw = "{1:F01BANKDEFFAXXX0000000000}{2:I103BANKGB2LXXXXN}{4:\n" +
	":20:REF1\n" +
	":23B:CRED\n" +
	":32A:241215EUR1000,00\n" +
	":50K:/DE89370400440532013000\n" +
	"JOHN DOE\n" +
	":59:/GB29NWBK60161331926819\n" +
	"JANE SMITH\n" +
	":71A:SHA\n" +
	"-}"

// zero amount parses cleanly but breaks the business rules
const invalidAmountRaw = "{1:F01BANKDEFFAXXX0000000000}{2:I103BANKGB2LXXXXN}{4:\n" +
	":20:REF1\n" +
	":23B:CRED\n" +
	":32A:241215EUR0,00\n" +
	":50K:ALICE\n" +
	":59:BOB\n" +
	"-}"

type testRig struct {
	pipeline *Pipeline
	queues   *queue.MockAdapter
	store    *store.MemoryStore
	metrics  *observability.InMemoryMetrics
}

func newTestRig(maxRetries int) *testRig {
	queues := queue.NewMockAdapter()
	messageStore := store.NewMemoryStore()
	metrics := observability.NewInMemoryMetrics()
	p := New(Config{
		InputQueue:      "in",
		CompletedQueue:  "done",
		DeadLetterQueue: "dlq",
		MaxRetries:      maxRetries,
		BaseBackoff:     time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
	}, queues, messageStore, metrics, zap.NewNop())
	return &testRig{pipeline: p, queues: queues, store: messageStore, metrics: metrics}
}

func deadLetters(t *testing.T, rig *testRig) []models.DeadLetterEnvelope {
	t.Helper()
	var envelopes []models.DeadLetterEnvelope
	for _, payload := range rig.queues.Drain("dlq") {
		var envelope models.DeadLetterEnvelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func TestProcessMessage_Success(t *testing.T) {
	rig := newTestRig(3)

	result := rig.pipeline.processMessage([]byte(validRaw))
	require.True(t, result.Success)

	assert.Equal(t, 1, rig.store.Count())
	stored, err := rig.store.GetByID(context.Background(), result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, "REF1", stored.TransactionReference)

	assert.Equal(t, 1, rig.queues.SendCount("done"))
	assert.Equal(t, 0, rig.queues.SendCount("dlq"))

	forwarded := rig.queues.Drain("done")
	require.Len(t, forwarded, 1)
	assert.Equal(t, validRaw, string(forwarded[0]))

	snap := rig.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Processed)
	assert.Equal(t, int64(0), snap.Failed)
}

func TestProcessMessage_ParseFailureRetriesThenDeadLetters(t *testing.T) {
	rig := newTestRig(3)

	result := rig.pipeline.processMessage([]byte("not a swift message"))
	require.False(t, result.Success)
	assert.Equal(t, models.StageParsing, result.Stage)
	assert.Equal(t, "ParsingError", result.ErrorKind)

	envelopes := deadLetters(t, rig)
	require.Len(t, envelopes, 1)
	assert.Equal(t, models.StageParsing, envelopes[0].Stage)
	assert.Equal(t, "not a swift message", envelopes[0].RawPayload)

	assert.Equal(t, 0, rig.store.Count())

	snap := rig.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Retried)
	assert.Equal(t, int64(1), snap.Failed)
	assert.Equal(t, int64(1), snap.DeadLettered)
}

func TestProcessMessage_ValidationFailureIsTerminal(t *testing.T) {
	rig := newTestRig(3)

	result := rig.pipeline.processMessage([]byte(invalidAmountRaw))
	require.False(t, result.Success)
	assert.Equal(t, models.StageValidating, result.Stage)
	assert.Equal(t, "ValidationError", result.ErrorKind)
	assert.Contains(t, result.Detail, "amount")

	// business-rule failures are never persisted and never retried
	assert.Equal(t, 0, rig.store.Count())
	assert.Equal(t, int64(0), rig.metrics.Snapshot().Retried)

	envelopes := deadLetters(t, rig)
	require.Len(t, envelopes, 1)
	assert.Equal(t, models.StageValidating, envelopes[0].Stage)
}

func TestProcessMessage_PersistRecoversAfterRetry(t *testing.T) {
	rig := newTestRig(3)

	calls := 0
	rig.store.SaveFunc = func(ctx context.Context, msg *models.MT103Message) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		rig.store.SaveFunc = nil
		return rig.store.SaveMessage(ctx, msg)
	}

	result := rig.pipeline.processMessage([]byte(validRaw))
	require.True(t, result.Success)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, rig.store.Count())
	assert.Equal(t, int64(2), rig.metrics.Snapshot().Retried)
	assert.Equal(t, 0, rig.queues.SendCount("dlq"))
}

func TestProcessMessage_PersistExhaustionDeadLetters(t *testing.T) {
	rig := newTestRig(2)

	calls := 0
	rig.store.SaveFunc = func(ctx context.Context, msg *models.MT103Message) (string, error) {
		calls++
		return "", errors.New("connection refused")
	}

	result := rig.pipeline.processMessage([]byte(validRaw))
	require.False(t, result.Success)
	assert.Equal(t, models.StagePersisting, result.Stage)
	assert.Equal(t, "PersistenceError", result.ErrorKind)
	assert.Equal(t, 2, calls)

	envelopes := deadLetters(t, rig)
	require.Len(t, envelopes, 1)
	assert.Equal(t, models.StagePersisting, envelopes[0].Stage)
	assert.Equal(t, validRaw, envelopes[0].RawPayload)
}

func TestProcessMessage_ForwardFailureKeepsPersistedRecord(t *testing.T) {
	rig := newTestRig(2)

	rig.queues.SendFunc = func(ctx context.Context, queueName string, payload []byte) error {
		if queueName == "done" {
			return errors.New("broker unavailable")
		}
		return nil
	}

	result := rig.pipeline.processMessage([]byte(validRaw))
	require.False(t, result.Success)
	assert.Equal(t, models.StageRouting, result.Stage)
	assert.Equal(t, "RoutingError", result.ErrorKind)

	// the record survives in its pre-completion state
	require.Equal(t, 1, rig.store.Count())
	msgs, err := rig.store.GetByFilter(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.StatusPersisted, msgs[0].Status)

	envelopes := deadLetters(t, rig)
	require.Len(t, envelopes, 1)
	assert.Equal(t, models.StageRouting, envelopes[0].Stage)
}

func TestRun_ProcessesQueuedMessages(t *testing.T) {
	rig := newTestRig(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rig.pipeline.Run(ctx)
	}()

	require.NoError(t, rig.queues.Send(ctx, "in", []byte(validRaw)))
	require.NoError(t, rig.queues.Send(ctx, "in", []byte(validRaw)))

	require.Eventually(t, func() bool {
		return rig.metrics.Snapshot().Processed == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 2, rig.queues.SendCount("done"))
}

func TestRun_StopPausesPollingUntilStart(t *testing.T) {
	rig := newTestRig(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rig.pipeline.Run(ctx)
	}()

	st, err := rig.pipeline.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, st.Polling)

	require.NoError(t, rig.queues.Send(ctx, "in", []byte(validRaw)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), rig.metrics.Snapshot().Processed)

	st, err = rig.pipeline.Start(ctx)
	require.NoError(t, err)
	assert.True(t, st.Polling)

	require.Eventually(t, func() bool {
		return rig.metrics.Snapshot().Processed == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestRun_RestartAndStatus(t *testing.T) {
	rig := newTestRig(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rig.pipeline.Run(ctx)
	}()

	st, err := rig.pipeline.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.Polling)

	_, err = rig.pipeline.Stop(ctx)
	require.NoError(t, err)

	st, err = rig.pipeline.Restart(ctx)
	require.NoError(t, err)
	assert.True(t, st.Polling)

	require.NoError(t, rig.queues.Send(ctx, "in", []byte(validRaw)))
	require.Eventually(t, func() bool {
		st, err := rig.pipeline.GetStatus(ctx)
		return err == nil && st.Processed == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestControl_FailsWhenLoopIsNotRunning(t *testing.T) {
	rig := newTestRig(3)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rig.pipeline.GetStatus(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "PersistenceError", errorKind(&PersistenceError{Err: errors.New("x")}))
	assert.Equal(t, "RoutingError", errorKind(&RoutingError{Queue: "q", Err: errors.New("x")}))
	assert.Equal(t, "SystemError", errorKind(errors.New("x")))
}
