package shared

import (
	"context"
	"time"

	"keyshop/internal/domain/order"
	"keyshop/internal/domain/reservation"

	"github.com/google/uuid"
)

// UnitOfWork is the transaction boundary for every mutating reservation
// operation. Callers that already hold a Tx pass it straight into the
// ...InTx command variants and participate in the ambient transaction;
// everyone else goes through Within, which owns begin/commit/rollback and
// retries serialization failures.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Stock() StockRepository
	Reservations() ReservationRepository
	Orders() OrderRepository
}

// StockRepository mutates the available-quantity counter. Both operations are
// single-statement against the store: the sufficiency check and the decrement
// are indivisible, closing the check-then-write race window.
type StockRepository interface {
	// TryDecrement subtracts quantity if and only if the current available
	// quantity covers it. Reports false when stock is insufficient.
	TryDecrement(ctx context.Context, itemID uuid.UUID, quantity int, now time.Time) (bool, error)
	// Increment returns quantity to the pool. Never blocked.
	Increment(ctx context.Context, itemID uuid.UUID, quantity int, now time.Time) error
}

// ReservationRepository owns the ledger rows. Find* methods lock the returned
// rows for update; a concurrent caller touching the same rows blocks until
// the enclosing transaction completes.
type ReservationRepository interface {
	FindForUpdate(ctx context.Context, orderID, stockItemID uuid.UUID) (*reservation.Record, error)
	FindReservedByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]*reservation.Record, error)
	FindExpiredForUpdate(ctx context.Context, now time.Time) ([]*reservation.Record, error)
	Insert(ctx context.Context, rec *reservation.Record) error
	Update(ctx context.Context, rec *reservation.Record) error
	// ExtendReserved bumps reserved_until on every reserved row of the order
	// and reports how many rows it touched.
	ExtendReserved(ctx context.Context, orderID uuid.UUID, reservedUntil, now time.Time) (int64, error)
	// FinalizeReserved flips every reserved row of the order to finalized.
	FinalizeReserved(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, o *order.Order) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
}
