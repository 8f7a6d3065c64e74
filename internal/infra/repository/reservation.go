package repository

import (
	"context"
	"time"

	"keyshop/internal/domain/reservation"
	"keyshop/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReservationRepository owns the stock_reservations ledger. All Find* queries
// append FOR UPDATE so a concurrent transaction touching the same rows blocks
// until this one commits.
type ReservationRepository struct {
	db db.DBTX
}

func NewReservationRepository(dbtx db.DBTX) *ReservationRepository {
	return &ReservationRepository{db: dbtx}
}

const reservationColumns = `id, order_id, stock_item_id, quantity, status, reserved_until, created_at, updated_at`

const findReservationForUpdateSQL = `
SELECT ` + reservationColumns + `
FROM stock_reservations
WHERE order_id = $1 AND stock_item_id = $2
FOR UPDATE`

func (r *ReservationRepository) FindForUpdate(ctx context.Context, orderID, stockItemID uuid.UUID) (*reservation.Record, error) {
	row := r.db.QueryRow(ctx, findReservationForUpdateSQL, orderID, stockItemID)
	rec, err := scanReservation(row)
	if err != nil {
		return nil, convertPgError("failed to find reservation", err)
	}
	return rec, nil
}

const findReservedByOrderForUpdateSQL = `
SELECT ` + reservationColumns + `
FROM stock_reservations
WHERE order_id = $1 AND status = 'reserved'
ORDER BY stock_item_id
FOR UPDATE`

func (r *ReservationRepository) FindReservedByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]*reservation.Record, error) {
	rows, err := r.db.Query(ctx, findReservedByOrderForUpdateSQL, orderID)
	if err != nil {
		return nil, convertPgError("failed to list reserved rows", err)
	}
	return collectReservations(rows)
}

// Expired rows are locked in stock_item_id order: the same ordering every
// writer uses, which keeps sweep and checkout from deadlocking each other.
const findExpiredForUpdateSQL = `
SELECT ` + reservationColumns + `
FROM stock_reservations
WHERE status = 'reserved' AND reserved_until < $1 AND quantity > 0
ORDER BY stock_item_id
FOR UPDATE`

func (r *ReservationRepository) FindExpiredForUpdate(ctx context.Context, now time.Time) ([]*reservation.Record, error) {
	rows, err := r.db.Query(ctx, findExpiredForUpdateSQL, now)
	if err != nil {
		return nil, convertPgError("failed to list expired reservations", err)
	}
	return collectReservations(rows)
}

const insertReservationSQL = `
INSERT INTO stock_reservations (id, order_id, stock_item_id, quantity, status, reserved_until, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (r *ReservationRepository) Insert(ctx context.Context, rec *reservation.Record) error {
	_, err := r.db.Exec(ctx, insertReservationSQL,
		rec.ID(),
		rec.OrderID(),
		rec.StockItemID(),
		rec.Quantity(),
		rec.Status().String(),
		rec.ReservedUntil(),
		rec.CreatedAt(),
		rec.UpdatedAt(),
	)
	if err != nil {
		return convertPgError("failed to insert reservation", err)
	}
	return nil
}

const updateReservationSQL = `
UPDATE stock_reservations
SET quantity = $2, status = $3, reserved_until = $4, updated_at = $5
WHERE id = $1`

func (r *ReservationRepository) Update(ctx context.Context, rec *reservation.Record) error {
	_, err := r.db.Exec(ctx, updateReservationSQL,
		rec.ID(),
		rec.Quantity(),
		rec.Status().String(),
		rec.ReservedUntil(),
		rec.UpdatedAt(),
	)
	if err != nil {
		return convertPgError("failed to update reservation", err)
	}
	return nil
}

const extendReservedSQL = `
UPDATE stock_reservations
SET reserved_until = $2, updated_at = $3
WHERE order_id = $1 AND status = 'reserved'`

func (r *ReservationRepository) ExtendReserved(ctx context.Context, orderID uuid.UUID, reservedUntil, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, extendReservedSQL, orderID, reservedUntil, now)
	if err != nil {
		return 0, convertPgError("failed to extend reservations", err)
	}
	return tag.RowsAffected(), nil
}

const finalizeReservedSQL = `
UPDATE stock_reservations
SET status = 'finalized', updated_at = $2
WHERE order_id = $1 AND status = 'reserved'`

func (r *ReservationRepository) FinalizeReserved(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, finalizeReservedSQL, orderID, now)
	if err != nil {
		return 0, convertPgError("failed to finalize reservations", err)
	}
	return tag.RowsAffected(), nil
}

func scanReservation(row pgx.Row) (*reservation.Record, error) {
	var (
		id, orderID, stockItemID uuid.UUID
		quantity                 int
		status                   string
		reservedUntil            time.Time
		createdAt, updatedAt     time.Time
	)
	if err := row.Scan(&id, &orderID, &stockItemID, &quantity, &status, &reservedUntil, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return reservation.ReconstructRecord(
		id, orderID, stockItemID,
		quantity,
		reservation.Status(status),
		reservedUntil,
		createdAt, updatedAt,
	), nil
}

func collectReservations(rows pgx.Rows) ([]*reservation.Record, error) {
	defer rows.Close()

	var recs []*reservation.Record
	for rows.Next() {
		rec, err := scanReservation(rows)
		if err != nil {
			return nil, convertPgError("failed to scan reservation", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, convertPgError("failed to read reservations", err)
	}
	return recs, nil
}
