package commands

import (
	"context"
	"errors"

	"keyshop/internal/domain/order"
	"keyshop/internal/domain/stock"
	"keyshop/internal/infra"
	"keyshop/internal/pkg/clock"
	"keyshop/internal/pkg/config"
	"keyshop/internal/pkg/errs"
	"keyshop/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound    = errs.New("order not found")
	ErrOrderAlreadyPaid = errs.New("order is already paid")
)

// StockCacheInvalidator drops cached stock views after a mutation. Failures
// are tolerated: the cache has a TTL and reads fall through to the database.
type StockCacheInvalidator interface {
	Invalidate(ctx context.Context, itemIDs ...uuid.UUID)
}

// CheckoutCommands is the order-side collaborator of the reservation ledger.
// It owns the order row and drives reservation, release and finalization
// through the shared unit of work so that order state and ledger state commit
// or roll back together.
type CheckoutCommands interface {
	CreateOrder(ctx context.Context, reference string, lines []stock.Line) (uuid.UUID, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
	ExtendCheckout(ctx context.Context, orderID uuid.UUID) error
	HandlePaymentConfirmed(ctx context.Context, orderID uuid.UUID) error
}

type checkoutCommandsImpl struct {
	uow          shared.UnitOfWork
	reservations ReservationCommands
	cache        StockCacheInvalidator
	clock        clock.Clock
	cfg          config.ReservationConfig
}

func NewCheckoutCommands(
	uow shared.UnitOfWork,
	reservations ReservationCommands,
	cache StockCacheInvalidator,
	clock clock.Clock,
	cfg config.ReservationConfig,
) CheckoutCommands {
	return &checkoutCommandsImpl{
		uow:          uow,
		reservations: reservations,
		cache:        cache,
		clock:        clock,
		cfg:          cfg,
	}
}

// CreateOrder inserts the order row and reserves every line in one
// transaction. Insufficient stock on any line rolls back the order as well.
func (c *checkoutCommandsImpl) CreateOrder(
	ctx context.Context,
	reference string,
	lines []stock.Line,
) (uuid.UUID, error) {
	now := c.clock.Now()
	o := order.NewOrder(reference, now)
	reservedUntil := now.Add(c.cfg.HoldDuration)

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Orders().Insert(ctx, o); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return c.reservations.ReserveForOrderInTx(ctx, tx, o.ID(), lines, reservedUntil)
	})
	if err != nil {
		return uuid.Nil, err
	}

	c.invalidateLines(ctx, lines)
	return o.ID(), nil
}

// CancelOrder releases the order's reservation and marks the order canceled.
// Repeated cancellation is a no-op; canceling a paid order is rejected.
func (c *checkoutCommandsImpl) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	var releasedItems []uuid.UUID
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		releasedItems = nil
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := o.Cancel(c.clock.Now()); err != nil {
			if errors.Is(err, order.ErrAlreadyCanceled) {
				return nil
			}
			if errors.Is(err, order.ErrAlreadyPaid) {
				return ErrOrderAlreadyPaid
			}
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		// The rows are locked for us either way; reading them first only
		// serves the cache invalidation after commit.
		recs, err := tx.Reservations().FindReservedByOrderForUpdate(ctx, orderID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		for _, rec := range recs {
			releasedItems = append(releasedItems, rec.StockItemID())
		}
		return c.reservations.ReleaseReservationInTx(ctx, tx, orderID)
	})
	if err != nil {
		return err
	}

	if c.cache != nil && len(releasedItems) > 0 {
		c.cache.Invalidate(ctx, releasedItems...)
	}
	return nil
}

// ExtendCheckout grants more hold time while the customer is still paying.
func (c *checkoutCommandsImpl) ExtendCheckout(ctx context.Context, orderID uuid.UUID) error {
	newDeadline := c.clock.Now().Add(c.cfg.ExtendDuration)
	return c.reservations.ExtendReservation(ctx, orderID, newDeadline)
}

// HandlePaymentConfirmed marks the order paid and finalizes its reservation.
// Payment providers redeliver webhooks, so an already-paid order is a no-op.
func (c *checkoutCommandsImpl) HandlePaymentConfirmed(ctx context.Context, orderID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := o.MarkPaid(c.clock.Now()); err != nil {
			if errors.Is(err, order.ErrAlreadyPaid) {
				return nil
			}
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return c.reservations.FinalizeReservationInTx(ctx, tx, orderID)
	})
}

func (c *checkoutCommandsImpl) invalidateLines(ctx context.Context, lines []stock.Line) {
	if c.cache == nil {
		return
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !line.IsInert() {
			ids = append(ids, line.StockItemID)
		}
	}
	c.cache.Invalidate(ctx, ids...)
}

