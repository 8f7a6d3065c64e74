//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"keyshop/internal/domain/order"
	"keyshop/internal/domain/reservation"
	"keyshop/internal/domain/stock"
	"keyshop/internal/infra/memstore"
	"keyshop/internal/pkg/clock"
	"keyshop/internal/pkg/config"
	"keyshop/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	invalidated []uuid.UUID
}

func (r *recordingInvalidator) Invalidate(_ context.Context, itemIDs ...uuid.UUID) {
	r.invalidated = append(r.invalidated, itemIDs...)
}

type checkoutFixture struct {
	store       *memstore.Store
	clock       *clock.MockClock
	invalidator *recordingInvalidator
	checkout    commands.CheckoutCommands
}

func newCheckoutFixture() *checkoutFixture {
	store := memstore.New()
	mockClock := clock.NewMockClock(testNow)
	invalidator := &recordingInvalidator{}
	reservations := commands.NewReservationCommands(store, mockClock)
	cfg := config.ReservationConfig{
		HoldDuration:   20 * time.Minute,
		ExtendDuration: 10 * time.Minute,
		SweepInterval:  time.Minute,
	}
	return &checkoutFixture{
		store:       store,
		clock:       mockClock,
		invalidator: invalidator,
		checkout:    commands.NewCheckoutCommands(store, reservations, invalidator, mockClock, cfg),
	}
}

func (f *checkoutFixture) seedItem(t *testing.T, available int) uuid.UUID {
	t.Helper()
	item, err := stock.NewItem("SKU-"+uuid.NewString()[:8], "Account Slot", available)
	require.NoError(t, err)
	f.store.SeedItem(item)
	return item.ID()
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the order and reserves its lines", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)

		orderID, err := f.checkout.CreateOrder(ctx, "ORD-001", []stock.Line{{StockItemID: itemID, Quantity: 3}})
		require.NoError(t, err)

		status, ok := f.store.OrderStatus(orderID)
		require.True(t, ok)
		assert.Equal(t, order.StatusPending, status)

		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 7, available)

		rec, ok := f.store.ReservationSnapshot(orderID, itemID)
		require.True(t, ok)
		assert.Equal(t, testNow.Add(20*time.Minute), rec.ReservedUntil())

		assert.Equal(t, []uuid.UUID{itemID}, f.invalidator.invalidated)
	})

	t.Run("insufficient stock rolls the order back too", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 1)

		orderID, err := f.checkout.CreateOrder(ctx, "ORD-002", []stock.Line{{StockItemID: itemID, Quantity: 2}})
		assert.ErrorIs(t, err, commands.ErrInsufficientStock)
		assert.Equal(t, uuid.Nil, orderID)

		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 1, available)
		assert.Empty(t, f.invalidator.invalidated)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels the order and returns the stock", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-003", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)
		f.invalidator.invalidated = nil

		require.NoError(t, f.checkout.CancelOrder(ctx, orderID))

		status, _ := f.store.OrderStatus(orderID)
		assert.Equal(t, order.StatusCanceled, status)
		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 10, available)
		rec, _ := f.store.ReservationSnapshot(orderID, itemID)
		assert.Equal(t, reservation.StatusReleased, rec.Status())
		assert.Equal(t, []uuid.UUID{itemID}, f.invalidator.invalidated)
	})

	t.Run("repeated cancellation is a no-op", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-004", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)

		require.NoError(t, f.checkout.CancelOrder(ctx, orderID))
		require.NoError(t, f.checkout.CancelOrder(ctx, orderID))

		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 10, available)
	})

	t.Run("paid orders cannot be canceled", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-005", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)
		require.NoError(t, f.checkout.HandlePaymentConfirmed(ctx, orderID))

		err = f.checkout.CancelOrder(ctx, orderID)
		assert.ErrorIs(t, err, commands.ErrOrderAlreadyPaid)

		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 6, available)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newCheckoutFixture()
		err := f.checkout.CancelOrder(ctx, uuid.New())
		assert.ErrorIs(t, err, commands.ErrOrderNotFound)
	})
}

func TestExtendCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes the hold deadline from now", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-006", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)

		f.clock.Add(15 * time.Minute)
		require.NoError(t, f.checkout.ExtendCheckout(ctx, orderID))

		rec, _ := f.store.ReservationSnapshot(orderID, itemID)
		assert.Equal(t, testNow.Add(15*time.Minute).Add(10*time.Minute), rec.ReservedUntil())
	})

	t.Run("canceled order has nothing to extend", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-007", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)
		require.NoError(t, f.checkout.CancelOrder(ctx, orderID))

		err = f.checkout.ExtendCheckout(ctx, orderID)
		assert.ErrorIs(t, err, commands.ErrNoActiveReservation)
	})
}

func TestHandlePaymentConfirmed(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the order paid and finalizes the hold", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-008", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)

		require.NoError(t, f.checkout.HandlePaymentConfirmed(ctx, orderID))

		status, _ := f.store.OrderStatus(orderID)
		assert.Equal(t, order.StatusPaid, status)
		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 6, available)
		rec, _ := f.store.ReservationSnapshot(orderID, itemID)
		assert.Equal(t, reservation.StatusFinalized, rec.Status())
	})

	t.Run("webhook redelivery is a no-op", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-009", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)

		require.NoError(t, f.checkout.HandlePaymentConfirmed(ctx, orderID))
		require.NoError(t, f.checkout.HandlePaymentConfirmed(ctx, orderID))

		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 6, available)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newCheckoutFixture()
		err := f.checkout.HandlePaymentConfirmed(ctx, uuid.New())
		assert.ErrorIs(t, err, commands.ErrOrderNotFound)
	})

	t.Run("finalized hold survives the expiry sweep", func(t *testing.T) {
		f := newCheckoutFixture()
		itemID := f.seedItem(t, 10)
		orderID, err := f.checkout.CreateOrder(ctx, "ORD-010", []stock.Line{{StockItemID: itemID, Quantity: 4}})
		require.NoError(t, err)
		require.NoError(t, f.checkout.HandlePaymentConfirmed(ctx, orderID))

		f.clock.Add(time.Hour)
		sweeper := commands.NewReservationCommands(f.store, f.clock)
		released, err := sweeper.ReleaseExpiredReservations(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(0), released)
		available, _ := f.store.AvailableQuantity(itemID)
		assert.Equal(t, 6, available)
	})
}
