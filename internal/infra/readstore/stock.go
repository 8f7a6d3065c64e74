package readstore

import (
	"context"
	"time"

	"keyshop/internal/infra/db"
	"keyshop/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StockReadStore serves the stock level views: available counter straight
// from stock_items plus the reserved sum from the ledger, so callers can see
// both sides of the conservation invariant.
type StockReadStore struct {
	db db.DBTX
}

func NewStockReadStore(dbtx db.DBTX) *StockReadStore {
	return &StockReadStore{db: dbtx}
}

const stockViewSQL = `
SELECT si.id,
       si.sku,
       si.name,
       si.available_quantity,
       COALESCE(SUM(sr.quantity) FILTER (WHERE sr.status = 'reserved'), 0)::int AS reserved_quantity,
       si.updated_at
FROM stock_items si
LEFT JOIN stock_reservations sr ON sr.stock_item_id = si.id
`

const findStockViewSQL = stockViewSQL + `
WHERE si.id = $1
GROUP BY si.id, si.sku, si.name, si.available_quantity, si.updated_at`

func (r *StockReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.StockView, error) {
	view, err := scanStockView(r.db.QueryRow(ctx, findStockViewSQL, id))
	if err != nil {
		return nil, convertPgError("failed to find stock view", err)
	}
	return view, nil
}

const listStockViewsSQL = stockViewSQL + `
GROUP BY si.id, si.sku, si.name, si.available_quantity, si.updated_at
ORDER BY si.sku`

func (r *StockReadStore) List(ctx context.Context) ([]*queries.StockView, error) {
	rows, err := r.db.Query(ctx, listStockViewsSQL)
	if err != nil {
		return nil, convertPgError("failed to list stock views", err)
	}
	defer rows.Close()

	var views []*queries.StockView
	for rows.Next() {
		view, err := scanStockView(rows)
		if err != nil {
			return nil, convertPgError("failed to scan stock view", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, convertPgError("failed to read stock views", err)
	}
	return views, nil
}

func scanStockView(row pgx.Row) (*queries.StockView, error) {
	var (
		view      queries.StockView
		updatedAt time.Time
	)
	err := row.Scan(&view.ID, &view.SKU, &view.Name, &view.AvailableQuantity, &view.ReservedQuantity, &updatedAt)
	if err != nil {
		return nil, err
	}
	view.UpdatedAt = updatedAt
	return &view, nil
}
