//go:build unit

package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"keyshop/internal/domain/reservation"
	"keyshop/internal/domain/stock"
	"keyshop/internal/infra"
	"keyshop/internal/infra/memstore"
	"keyshop/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedItem(t *testing.T, store *memstore.Store, available int) uuid.UUID {
	t.Helper()
	item, err := stock.NewItem("SKU-"+uuid.NewString()[:8], "License Pack", available)
	require.NoError(t, err)
	store.SeedItem(item)
	return item.ID()
}

func TestWithinRollsBackOnError(t *testing.T) {
	store := memstore.New()
	itemID := seedItem(t, store, 10)
	boom := errors.New("boom")

	err := store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		ok, err := tx.Stock().TryDecrement(ctx, itemID, 5, now)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	available, ok := store.AvailableQuantity(itemID)
	require.True(t, ok)
	assert.Equal(t, 10, available)
}

func TestWithinCommitsOnSuccess(t *testing.T) {
	store := memstore.New()
	itemID := seedItem(t, store, 10)

	err := store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		ok, err := tx.Stock().TryDecrement(ctx, itemID, 5, now)
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	available, _ := store.AvailableQuantity(itemID)
	assert.Equal(t, 5, available)
}

func TestTryDecrement(t *testing.T) {
	tests := []struct {
		name      string
		available int
		quantity  int
		wantOK    bool
	}{
		{name: "sufficient stock", available: 10, quantity: 5, wantOK: true},
		{name: "exact stock", available: 5, quantity: 5, wantOK: true},
		{name: "insufficient stock", available: 4, quantity: 5, wantOK: false},
		{name: "zero available", available: 0, quantity: 1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			itemID := seedItem(t, store, tt.available)

			err := store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
				ok, err := tx.Stock().TryDecrement(ctx, itemID, tt.quantity, now)
				require.NoError(t, err)
				assert.Equal(t, tt.wantOK, ok)
				return nil
			})
			require.NoError(t, err)
		})
	}

	t.Run("unknown item decrements nothing", func(t *testing.T) {
		store := memstore.New()
		err := store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
			ok, err := tx.Stock().TryDecrement(ctx, uuid.New(), 1, now)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestReservationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate insert is rejected", func(t *testing.T) {
		store := memstore.New()
		orderID, itemID := uuid.New(), uuid.New()

		err := store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			rec, err := reservation.NewRecord(orderID, itemID, 3, now.Add(time.Hour), now)
			require.NoError(t, err)
			require.NoError(t, tx.Reservations().Insert(ctx, rec))

			dup, err := reservation.NewRecord(orderID, itemID, 1, now.Add(time.Hour), now)
			require.NoError(t, err)
			insertErr := tx.Reservations().Insert(ctx, dup)
			assert.True(t, infra.IsKind(insertErr, infra.KindDuplicateKey))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("find for update reports missing rows as not found", func(t *testing.T) {
		store := memstore.New()
		err := store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			_, findErr := tx.Reservations().FindForUpdate(ctx, uuid.New(), uuid.New())
			assert.True(t, infra.IsKind(findErr, infra.KindNotFound))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("expired scan skips active and released rows", func(t *testing.T) {
		store := memstore.New()
		orderID := uuid.New()
		expired, active := uuid.New(), uuid.New()

		err := store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			expiredRec, err := reservation.NewRecord(orderID, expired, 3, now.Add(-time.Minute), now.Add(-time.Hour))
			require.NoError(t, err)
			require.NoError(t, tx.Reservations().Insert(ctx, expiredRec))

			activeRec, err := reservation.NewRecord(orderID, active, 3, now.Add(time.Hour), now)
			require.NoError(t, err)
			require.NoError(t, tx.Reservations().Insert(ctx, activeRec))
			return nil
		})
		require.NoError(t, err)

		err = store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			recs, err := tx.Reservations().FindExpiredForUpdate(ctx, now)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, expired, recs[0].StockItemID())
			return nil
		})
		require.NoError(t, err)
	})
}
