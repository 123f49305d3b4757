package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swift-gateway/internal/observability"
	"swift-gateway/internal/pipeline"
	"swift-gateway/internal/queue"
	"swift-gateway/internal/store"
	"swift-gateway/pkg/models"
)

type apiRig struct {
	router http.Handler
	queues *queue.MockAdapter
	store  *store.MemoryStore
	cancel context.CancelFunc
	done   chan struct{}
}

func newAPIRig(t *testing.T) *apiRig {
	t.Helper()

	queues := queue.NewMockAdapter()
	messageStore := store.NewMemoryStore()
	p := pipeline.New(pipeline.Config{
		InputQueue:      "in",
		CompletedQueue:  "done",
		DeadLetterQueue: "dlq",
		PollInterval:    5 * time.Millisecond,
	}, queues, messageStore, observability.NewInMemoryMetrics(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &apiRig{
		router: Routes(NewHandlers(p, messageStore, queues)),
		queues: queues,
		store:  messageStore,
		cancel: cancel,
		done:   done,
	}
}

func (r *apiRig) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthHandler(t *testing.T) {
	rig := newAPIRig(t)

	rec := rig.do(http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rig.queues.HealthyFunc = func(ctx context.Context) bool { return false }
	rec = rig.do(http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestControlHandlers(t *testing.T) {
	rig := newAPIRig(t)

	rec := rig.do(http.MethodPost, "/control/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	var st pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Polling)

	rec = rig.do(http.MethodPost, "/control/start")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Polling)

	rec = rig.do(http.MethodPost, "/control/restart")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = rig.do(http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Polling)
}

func TestGetMessageHandler(t *testing.T) {
	rig := newAPIRig(t)

	msg := models.NewMT103Message("id-1", "raw")
	msg.TransactionReference = "REF1"
	_, err := rig.store.SaveMessage(context.Background(), msg)
	require.NoError(t, err)

	rec := rig.do(http.MethodGet, "/messages/id-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.MT103Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "REF1", got.TransactionReference)

	rec = rig.do(http.MethodGet, "/messages/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessagesHandler(t *testing.T) {
	rig := newAPIRig(t)
	ctx := context.Background()

	for _, id := range []string{"id-1", "id-2"} {
		msg := models.NewMT103Message(id, "raw")
		msg.Currency = "EUR"
		_, err := rig.store.SaveMessage(ctx, msg)
		require.NoError(t, err)
	}

	rec := rig.do(http.MethodGet, "/messages/?currency=EUR")
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)

	rec = rig.do(http.MethodGet, "/messages/?currency=USD")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Empty(t, msgs)

	rec = rig.do(http.MethodGet, "/messages/?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
