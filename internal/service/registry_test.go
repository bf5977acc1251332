package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"click-collect/internal/kvstore"
	"click-collect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ctxStorage honours cancellation like the network backends do
type ctxStorage struct {
	*kvstore.MemoryStorage
}

func (s ctxStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStorage.Get(ctx, key)
}

// flakyReads fails the first reads of one key
type flakyReads struct {
	*kvstore.MemoryStorage
	key      string
	failures *int32
}

func (f flakyReads) Get(ctx context.Context, key string) ([]byte, error) {
	if key == f.key && atomic.AddInt32(f.failures, -1) >= 0 {
		return nil, errors.New("connection reset")
	}
	return f.MemoryStorage.Get(ctx, key)
}

func persistedQ(t *testing.T, f *fixture, clientID string, qty int) {
	t.Helper()
	q := productQ()
	require.NoError(t, f.clients.SaveClientState(context.Background(), clientID, models.ClientState{
		Cart: []models.CartLine{{ProductID: q.ID, ProductName: q.Name, ProductSKU: q.SKU, Quantity: qty, UnitPrice: q.Price}},
	}))
}

func TestRegistry_EvictsIdleStorefronts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kvstore.NewMemoryStorage(), productQ())
	reg := f.registry(trackPolicy())
	now := time.Unix(1700000000, 0)
	reg.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		reg.Get(ctx, fmt.Sprintf("one-shot-%d", i))
	}
	_, err := reg.Get(ctx, "regular").AddItem(ctx, "Q")
	require.NoError(t, err)
	require.Equal(t, 101, reg.Len())

	now = now.Add(DefaultIdleTTL - time.Minute)
	reg.Get(ctx, "regular")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 100, reg.EvictIdle())
	assert.Equal(t, 1, reg.Len())

	now = now.Add(DefaultIdleTTL + time.Second)
	assert.Equal(t, 1, reg.EvictIdle())
	assert.Equal(t, 0, reg.Len())

	// the tracking cart is read back from storage
	view := reg.Get(ctx, "regular").Cart(ctx)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Q", view.Lines[0].ProductID)
}

func TestRegistry_ZeroIdleTTLKeepsStorefronts(t *testing.T) {
	ctx := context.Background()
	policy := shopPolicy()
	policy.IdleTTL = 0
	reg := newFixture(t, kvstore.NewMemoryStorage(), productQ()).registry(policy)
	reg.now = func() time.Time { return time.Unix(0, 0) }

	reg.Get(ctx, "c1")
	reg.now = time.Now

	assert.Equal(t, 0, reg.EvictIdle())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RunEviction(t *testing.T) {
	policy := trackPolicy()
	policy.IdleTTL = time.Millisecond
	reg := newFixture(t, kvstore.NewMemoryStorage(), productQ()).registry(policy)
	reg.Get(context.Background(), "c1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.RunEviction(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRegistry_OpenOutlivesCancelledRequest(t *testing.T) {
	f := newFixture(t, ctxStorage{kvstore.NewMemoryStorage()}, productQ())
	persistedQ(t, f, "c1", 2)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	sf := f.registry(trackPolicy()).Get(reqCtx, "c1")

	view := sf.Cart(context.Background())
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
}

func TestStorefront_FailedRestoreDoesNotOverwriteCart(t *testing.T) {
	ctx := context.Background()
	failures := int32(1)
	kv := flakyReads{MemoryStorage: kvstore.NewMemoryStorage(), key: clientKey + ":c1", failures: &failures}
	f := newFixture(t, kv, productP(), productQ())
	persistedQ(t, f, "c1", 2)

	sf := f.registry(trackPolicy()).Get(ctx, "c1")
	assert.True(t, sf.Cart(ctx).Empty)

	view, err := sf.AddItem(ctx, "P")
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)

	persisted := f.persisted(t, "c1")
	require.Len(t, persisted.Cart, 2)
	assert.Equal(t, "Q", persisted.Cart[0].ProductID)
	assert.Equal(t, 2, persisted.Cart[0].Quantity)
	assert.Equal(t, "P", persisted.Cart[1].ProductID)
}

func TestRegistry_GetRetriesFailedRestore(t *testing.T) {
	ctx := context.Background()
	failures := int32(1)
	kv := flakyReads{MemoryStorage: kvstore.NewMemoryStorage(), key: clientKey + ":c1", failures: &failures}
	f := newFixture(t, kv, productQ())
	persistedQ(t, f, "c1", 3)
	reg := f.registry(trackPolicy())

	assert.True(t, reg.Get(ctx, "c1").Cart(ctx).Empty)

	view := reg.Get(ctx, "c1").Cart(ctx)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
}
