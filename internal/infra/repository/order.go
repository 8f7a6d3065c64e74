package repository

import (
	"context"
	"time"

	"keyshop/internal/domain/order"
	"keyshop/internal/infra/db"

	"github.com/google/uuid"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

const insertOrderSQL = `
INSERT INTO orders (id, reference, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID(),
		o.Reference(),
		o.Status().String(),
		o.CreatedAt(),
		o.UpdatedAt(),
	)
	if err != nil {
		return convertPgError("failed to insert order", err)
	}
	return nil
}

const findOrderForUpdateSQL = `
SELECT id, reference, status, created_at, updated_at
FROM orders
WHERE id = $1
FOR UPDATE`

func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var (
		orderID              uuid.UUID
		reference, status    string
		createdAt, updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, findOrderForUpdateSQL, id).
		Scan(&orderID, &reference, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, convertPgError("failed to find order", err)
	}
	return order.ReconstructOrder(orderID, reference, order.Status(status), createdAt, updatedAt), nil
}

const updateOrderSQL = `
UPDATE orders
SET reference = $2, status = $3, updated_at = $4
WHERE id = $1`

func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, updateOrderSQL,
		o.ID(),
		o.Reference(),
		o.Status().String(),
		o.UpdatedAt(),
	)
	if err != nil {
		return convertPgError("failed to update order", err)
	}
	return nil
}
