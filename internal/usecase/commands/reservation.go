package commands

import (
	"context"
	"time"

	"keyshop/internal/domain/reservation"
	"keyshop/internal/domain/stock"
	"keyshop/internal/infra"
	"keyshop/internal/pkg/clock"
	"keyshop/internal/pkg/errs"
	"keyshop/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrInsufficientStock       = errs.New("insufficient stock")
	ErrNoActiveReservation     = errs.New("no active reservation")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// ReservationCommands is the write side of the inventory reservation ledger.
// Every method is transactional: the plain form opens its own unit of work,
// the InTx form joins a transaction the caller already holds (checkout wraps
// order creation and reservation together).
type ReservationCommands interface {
	ReserveForOrder(ctx context.Context, orderID uuid.UUID, lines []stock.Line, reservedUntil time.Time) error
	ReserveForOrderInTx(ctx context.Context, tx shared.Tx, orderID uuid.UUID, lines []stock.Line, reservedUntil time.Time) error

	ExtendReservation(ctx context.Context, orderID uuid.UUID, newReservedUntil time.Time) error

	ReleaseReservation(ctx context.Context, orderID uuid.UUID) error
	ReleaseReservationInTx(ctx context.Context, tx shared.Tx, orderID uuid.UUID) error

	ReleaseExpiredReservations(ctx context.Context) (int64, error)

	FinalizeReservation(ctx context.Context, orderID uuid.UUID) error
	FinalizeReservationInTx(ctx context.Context, tx shared.Tx, orderID uuid.UUID) error
}

type reservationCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewReservationCommands(uow shared.UnitOfWork, clock clock.Clock) ReservationCommands {
	return &reservationCommandsImpl{
		uow:   uow,
		clock: clock,
	}
}

func (c *reservationCommandsImpl) ReserveForOrder(
	ctx context.Context,
	orderID uuid.UUID,
	lines []stock.Line,
	reservedUntil time.Time,
) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return c.ReserveForOrderInTx(ctx, tx, orderID, lines, reservedUntil)
	})
}

// ReserveForOrderInTx processes each line independently but inside the one
// enclosing transaction: if any line fails with ErrInsufficientStock the
// whole call rolls back, including lines already reserved.
func (c *reservationCommandsImpl) ReserveForOrderInTx(
	ctx context.Context,
	tx shared.Tx,
	orderID uuid.UUID,
	lines []stock.Line,
	reservedUntil time.Time,
) error {
	now := c.clock.Now()
	for _, line := range lines {
		if err := c.reserveLine(ctx, tx, orderID, line, reservedUntil, now); err != nil {
			return err
		}
	}
	return nil
}

func (c *reservationCommandsImpl) reserveLine(
	ctx context.Context,
	tx shared.Tx,
	orderID uuid.UUID,
	line stock.Line,
	reservedUntil time.Time,
	now time.Time,
) error {
	if line.IsInert() {
		return nil
	}

	rec, err := tx.Reservations().FindForUpdate(ctx, orderID, line.StockItemID)
	switch {
	case err == nil:
		return c.rereserveLine(ctx, tx, rec, line, reservedUntil, now)
	case infra.IsKind(err, infra.KindNotFound):
		return c.reserveNewLine(ctx, tx, orderID, line, reservedUntil, now)
	default:
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
}

func (c *reservationCommandsImpl) reserveNewLine(
	ctx context.Context,
	tx shared.Tx,
	orderID uuid.UUID,
	line stock.Line,
	reservedUntil time.Time,
	now time.Time,
) error {
	ok, err := tx.Stock().TryDecrement(ctx, line.StockItemID, line.Quantity, now)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if !ok {
		return ErrInsufficientStock
	}

	rec, err := reservation.NewRecord(orderID, line.StockItemID, line.Quantity, reservedUntil, now)
	if err != nil {
		return err
	}
	if err := tx.Reservations().Insert(ctx, rec); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

// rereserveLine adjusts an existing ledger row to the newly requested
// quantity. Only the diff against the effective held quantity moves through
// the stock counter; a row re-entered from Released starts the diff at zero.
func (c *reservationCommandsImpl) rereserveLine(
	ctx context.Context,
	tx shared.Tx,
	rec *reservation.Record,
	line stock.Line,
	reservedUntil time.Time,
	now time.Time,
) error {
	diff := rec.QuantityDiff(line.Quantity)
	switch {
	case diff > 0:
		ok, err := tx.Stock().TryDecrement(ctx, rec.StockItemID(), diff, now)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !ok {
			return ErrInsufficientStock
		}
	case diff < 0:
		if err := tx.Stock().Increment(ctx, rec.StockItemID(), -diff, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
	}

	if err := rec.Rereserve(line.Quantity, reservedUntil, now); err != nil {
		return err
	}
	if err := tx.Reservations().Update(ctx, rec); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

// ExtendReservation pushes the hold deadline of every reserved row of the
// order. Zero matching rows is a hard error: extending a reservation that no
// longer exists means the caller raced the sweeper or released already.
func (c *reservationCommandsImpl) ExtendReservation(
	ctx context.Context,
	orderID uuid.UUID,
	newReservedUntil time.Time,
) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		affected, err := tx.Reservations().ExtendReserved(ctx, orderID, newReservedUntil, c.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if affected == 0 {
			return ErrNoActiveReservation
		}
		return nil
	})
}

func (c *reservationCommandsImpl) ReleaseReservation(ctx context.Context, orderID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return c.ReleaseReservationInTx(ctx, tx, orderID)
	})
}

// ReleaseReservationInTx restores stock and flips each reserved row to
// Released in one transaction. Idempotent: a second call finds no reserved
// rows and does nothing.
func (c *reservationCommandsImpl) ReleaseReservationInTx(
	ctx context.Context,
	tx shared.Tx,
	orderID uuid.UUID,
) error {
	recs, err := tx.Reservations().FindReservedByOrderForUpdate(ctx, orderID)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return c.releaseRecords(ctx, tx, recs)
}

// ReleaseExpiredReservations sweeps every reserved row past its deadline,
// system-wide, under the same locking discipline as single-order release.
// Returns the number of rows released.
func (c *reservationCommandsImpl) ReleaseExpiredReservations(ctx context.Context) (int64, error) {
	var released int64
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		recs, err := tx.Reservations().FindExpiredForUpdate(ctx, c.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := c.releaseRecords(ctx, tx, recs); err != nil {
			return err
		}
		released = int64(len(recs))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func (c *reservationCommandsImpl) releaseRecords(
	ctx context.Context,
	tx shared.Tx,
	recs []*reservation.Record,
) error {
	now := c.clock.Now()
	for _, rec := range recs {
		if rec.Quantity() > 0 {
			if err := tx.Stock().Increment(ctx, rec.StockItemID(), rec.Quantity(), now); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}
		if err := rec.Release(now); err != nil {
			return err
		}
		if err := tx.Reservations().Update(ctx, rec); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
	}
	return nil
}

func (c *reservationCommandsImpl) FinalizeReservation(ctx context.Context, orderID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return c.FinalizeReservationInTx(ctx, tx, orderID)
	})
}

// FinalizeReservationInTx marks the order's reserved rows as Finalized. Stock
// stays where it is; zero matching rows is a successful no-op.
func (c *reservationCommandsImpl) FinalizeReservationInTx(
	ctx context.Context,
	tx shared.Tx,
	orderID uuid.UUID,
) error {
	if _, err := tx.Reservations().FinalizeReserved(ctx, orderID, c.clock.Now()); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}
