package store

import (
	"context"
	"errors"
	"testing"

	"click-collect/internal/kvstore"
	"click-collect/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientStore() (*ClientStore, *kvstore.MemoryStorage) {
	kv := kvstore.NewMemoryStorage()
	return NewClientStore(kv, "clickCollectClient_v1", "clickCollectTracking_v1"), kv
}

func TestSession_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s, _ := newClientStore()

	assert.Nil(t, s.LoadSession(ctx, "c1"))

	require.NoError(t, s.SaveSession(ctx, "c1", models.ClientSession{Name: "Alice Martin", Email: "alice@x.com"}))
	session := s.LoadSession(ctx, "c1")
	require.NotNil(t, session)
	assert.Equal(t, "Alice", session.FirstName())

	// sessions are per client
	assert.Nil(t, s.LoadSession(ctx, "c2"))

	require.NoError(t, s.ClearSession(ctx, "c1"))
	assert.Nil(t, s.LoadSession(ctx, "c1"))
}

func TestSession_CorruptIsAbsent(t *testing.T) {
	ctx := context.Background()
	s, kv := newClientStore()
	require.NoError(t, kv.Set(ctx, "clickCollectClient_v1:c1", []byte("{")))

	assert.Nil(t, s.LoadSession(ctx, "c1"))
}

func TestClientState_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newClientStore()

	state := models.ClientState{
		Cart: []models.CartLine{
			{ProductID: "p1", ProductName: "Baguette", Quantity: 2, UnitPrice: decimal.RequireFromString("1.20")},
			{ProductID: "p2", ProductName: "Croissant", Quantity: 1, UnitPrice: decimal.RequireFromString("0.95")},
		},
		Orders: []models.OrderSummary{{Reference: "CMD-ABCDEF-1234", Status: models.OrderStatusReady}},
	}
	require.NoError(t, s.SaveClientState(ctx, "c1", state))

	got, err := s.LoadClientState(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Cart, 2)
	for i := range state.Cart {
		assert.Equal(t, state.Cart[i].ProductID, got.Cart[i].ProductID)
		assert.Equal(t, state.Cart[i].Quantity, got.Cart[i].Quantity)
		assert.True(t, state.Cart[i].UnitPrice.Equal(got.Cart[i].UnitPrice))
	}
	assert.Equal(t, state.Orders[0].Reference, got.Orders[0].Reference)
}

func TestClientState_DropsInvalidLines(t *testing.T) {
	ctx := context.Background()
	s, kv := newClientStore()
	require.NoError(t, kv.Set(ctx, "clickCollectTracking_v1:c1", []byte(`{"cart":[
		{"productId":"p1","quantity":1,"unitPrice":2},
		{"productId":"","quantity":1},
		{"productId":"p3","quantity":0}
	]}`)))

	got, err := s.LoadClientState(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Cart, 1)
	assert.Equal(t, "p1", got.Cart[0].ProductID)
}

type unreadableStorage struct {
	*kvstore.MemoryStorage
}

func (unreadableStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestClientState_AbsentOrCorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, kv := newClientStore()

	state, err := s.LoadClientState(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, state.Cart)

	require.NoError(t, kv.Set(ctx, "clickCollectTracking_v1:c1", []byte("[")))
	state, err = s.LoadClientState(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, state.Cart)
}

func TestClientState_ReadFailureIsReported(t *testing.T) {
	s := NewClientStore(unreadableStorage{kvstore.NewMemoryStorage()}, "clickCollectClient_v1", "clickCollectTracking_v1")

	_, err := s.LoadClientState(context.Background(), "c1")
	assert.Error(t, err)
	assert.Nil(t, s.LoadSession(context.Background(), "c1"))
}
