package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swift-gateway/pkg/models"
)

func sampleMessage(id, reference, currency string) *models.MT103Message {
	msg := models.NewMT103Message(id, "raw")
	msg.TransactionReference = reference
	msg.Currency = currency
	return msg
}

func TestMemoryStore_SaveIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	msg := sampleMessage("id-1", "REF1", "EUR")
	storedID, err := s.SaveMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, "id-1", storedID)

	// a second save of the same id succeeds without touching the record
	duplicate := sampleMessage("id-1", "REF-CHANGED", "USD")
	storedID, err = s.SaveMessage(ctx, duplicate)
	require.NoError(t, err)
	assert.Equal(t, "id-1", storedID)
	assert.Equal(t, 1, s.Count())

	got, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "REF1", got.TransactionReference)
	assert.Equal(t, models.StatusPersisted, got.Status)
}

func TestMemoryStore_GetByID_NotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetByFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.SaveMessage(ctx, sampleMessage("id-1", "REF1", "EUR"))
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, sampleMessage("id-2", "REF2", "USD"))
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, sampleMessage("id-3", "REF3", "EUR"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, "id-3", models.StatusCompleted))

	byCurrency, err := s.GetByFilter(ctx, Filter{Currency: "EUR"})
	require.NoError(t, err)
	require.Len(t, byCurrency, 2)
	assert.Equal(t, "id-1", byCurrency[0].ID)
	assert.Equal(t, "id-3", byCurrency[1].ID)

	byStatus, err := s.GetByFilter(ctx, Filter{Status: models.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "id-3", byStatus[0].ID)

	byReference, err := s.GetByFilter(ctx, Filter{Reference: "REF2"})
	require.NoError(t, err)
	require.Len(t, byReference, 1)

	limited, err := s.GetByFilter(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryStore_UpdateStatus_NotFound(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateStatus(context.Background(), "missing", models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReadsReturnClones(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.SaveMessage(ctx, sampleMessage("id-1", "REF1", "EUR"))
	require.NoError(t, err)

	got, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	got.TransactionReference = "MUTATED"

	again, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "REF1", again.TransactionReference)
}

func TestPartyCodec_RoundTrip(t *testing.T) {
	parties := []models.Party{
		models.BICParty{Account: "123", BIC: "BANKDEFFXXX"},
		models.NameParty{Account: "456", Name: "ALICE", Address: []string{"STREET 1", "BERLIN"}},
	}

	for _, party := range parties {
		data, err := encodeParty(party)
		require.NoError(t, err)
		decoded, err := decodeParty(data)
		require.NoError(t, err)
		assert.Equal(t, party, decoded)
	}
}

func TestPartyCodec_NilAndUnknown(t *testing.T) {
	data, err := encodeParty(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	decoded, err := decodeParty(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = decodeParty([]byte(`{"kind":"corporate"}`))
	assert.Error(t, err)
}
