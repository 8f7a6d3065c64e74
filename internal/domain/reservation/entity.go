package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("reservation quantity cannot be negative")
	ErrNotReserved     = errors.New("reservation is not in reserved state")
	ErrFinalized       = errors.New("reservation is finalized")
)

// Record is one ledger row per (order, stock item) pair. The conservation
// invariant holds across all records of an item: available quantity plus the
// sum of reserved quantities equals total capacity.
type Record struct {
	id            uuid.UUID
	orderID       uuid.UUID
	stockItemID   uuid.UUID
	quantity      int
	status        Status
	reservedUntil time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

func NewRecord(orderID, stockItemID uuid.UUID, quantity int, reservedUntil, now time.Time) (*Record, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		id:            uuid.New(),
		orderID:       orderID,
		stockItemID:   stockItemID,
		quantity:      quantity,
		status:        StatusReserved,
		reservedUntil: reservedUntil,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func ReconstructRecord(
	id, orderID, stockItemID uuid.UUID,
	quantity int,
	status Status,
	reservedUntil time.Time,
	createdAt, updatedAt time.Time,
) *Record {
	return &Record{
		id:            id,
		orderID:       orderID,
		stockItemID:   stockItemID,
		quantity:      quantity,
		status:        status,
		reservedUntil: reservedUntil,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (r *Record) ID() uuid.UUID            { return r.id }
func (r *Record) OrderID() uuid.UUID       { return r.orderID }
func (r *Record) StockItemID() uuid.UUID   { return r.stockItemID }
func (r *Record) Quantity() int            { return r.quantity }
func (r *Record) Status() Status           { return r.status }
func (r *Record) ReservedUntil() time.Time { return r.reservedUntil }
func (r *Record) CreatedAt() time.Time     { return r.createdAt }
func (r *Record) UpdatedAt() time.Time     { return r.updatedAt }

func (r *Record) IsReserved() bool {
	return r.status == StatusReserved
}

// EffectiveQuantity is the number of units this record currently holds out of
// stock. A released or finalized row holds nothing for diff purposes; re-
// reserving after a release starts from zero.
func (r *Record) EffectiveQuantity() int {
	if r.status == StatusReserved {
		return r.quantity
	}
	return 0
}

// QuantityDiff is the stock delta required to move this record to newQuantity.
// Positive: decrement available stock by that much. Negative: return stock.
func (r *Record) QuantityDiff(newQuantity int) int {
	return newQuantity - r.EffectiveQuantity()
}

// Rereserve overwrites the held quantity and re-enters Reserved. The caller
// must have already applied QuantityDiff to the stock counter.
func (r *Record) Rereserve(newQuantity int, reservedUntil, now time.Time) error {
	if newQuantity < 0 {
		return ErrInvalidQuantity
	}
	if r.status.IsTerminal() {
		return ErrFinalized
	}
	r.quantity = newQuantity
	r.status = StatusReserved
	r.reservedUntil = reservedUntil
	r.updatedAt = now
	return nil
}

func (r *Record) Extend(reservedUntil, now time.Time) error {
	if r.status != StatusReserved {
		return ErrNotReserved
	}
	r.reservedUntil = reservedUntil
	r.updatedAt = now
	return nil
}

// Release flips the record to Released. Stock restoration is the caller's
// half of the same transaction; doing one without the other breaks the
// conservation invariant.
func (r *Record) Release(now time.Time) error {
	if r.status != StatusReserved {
		return ErrNotReserved
	}
	r.status = StatusReleased
	r.updatedAt = now
	return nil
}

// Finalize converts the hold into a committed sale. The stock counter is
// untouched: it was already decremented at reservation time.
func (r *Record) Finalize(now time.Time) error {
	if r.status != StatusReserved {
		return ErrNotReserved
	}
	r.status = StatusFinalized
	r.updatedAt = now
	return nil
}

// IsExpired reports whether the sweep may reclaim this record.
func (r *Record) IsExpired(now time.Time) bool {
	return r.status == StatusReserved && r.reservedUntil.Before(now) && r.quantity > 0
}
