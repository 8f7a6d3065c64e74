package repository

import (
	"context"
	"time"

	"keyshop/internal/infra"
	"keyshop/internal/infra/db"

	"github.com/google/uuid"
)

// StockRepository mutates the available-quantity counter on stock_items.
// The sufficiency guard lives inside the UPDATE itself: check and decrement
// are one statement, so no interleaving can drive the counter negative.
type StockRepository struct {
	db db.DBTX
}

func NewStockRepository(dbtx db.DBTX) *StockRepository {
	return &StockRepository{db: dbtx}
}

const tryDecrementStockSQL = `
UPDATE stock_items
SET available_quantity = available_quantity - $2, updated_at = $3
WHERE id = $1 AND available_quantity >= $2`

func (r *StockRepository) TryDecrement(ctx context.Context, itemID uuid.UUID, quantity int, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryDecrementStockSQL, itemID, quantity, now)
	if err != nil {
		return false, convertPgError("failed to decrement stock", err)
	}
	return tag.RowsAffected() > 0, nil
}

const incrementStockSQL = `
UPDATE stock_items
SET available_quantity = available_quantity + $2, updated_at = $3
WHERE id = $1`

func (r *StockRepository) Increment(ctx context.Context, itemID uuid.UUID, quantity int, now time.Time) error {
	tag, err := r.db.Exec(ctx, incrementStockSQL, itemID, quantity, now)
	if err != nil {
		return convertPgError("failed to increment stock", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(infra.KindNotFound, "stock item not found", nil)
	}
	return nil
}
