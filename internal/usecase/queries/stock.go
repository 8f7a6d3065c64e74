package queries

import (
	"context"

	"keyshop/internal/infra"
	"keyshop/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrStockItemNotFound = errs.New("stock item not found")

type StockReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockView, error)
	List(ctx context.Context) ([]*StockView, error)
}

// StockViewCache is a best-effort cache in front of the read store. A miss
// or a cache failure falls through to the database.
type StockViewCache interface {
	Get(ctx context.Context, id uuid.UUID) (*StockView, bool)
	Set(ctx context.Context, view *StockView)
}

type StockQueries interface {
	GetStock(ctx context.Context, id uuid.UUID) (*StockView, error)
	ListStock(ctx context.Context) ([]*StockView, error)
}

type stockQueriesImpl struct {
	store StockReadStore
	cache StockViewCache
}

func NewStockQueries(store StockReadStore, cache StockViewCache) StockQueries {
	return &stockQueriesImpl{
		store: store,
		cache: cache,
	}
}

func (q *stockQueriesImpl) GetStock(ctx context.Context, id uuid.UUID) (*StockView, error) {
	if q.cache != nil {
		if view, ok := q.cache.Get(ctx, id); ok {
			return view, nil
		}
	}

	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrStockItemNotFound
		}
		return nil, err
	}

	if q.cache != nil {
		q.cache.Set(ctx, view)
	}
	return view, nil
}

// ListStock is admin-facing and infrequent; it always reads the database.
func (q *stockQueriesImpl) ListStock(ctx context.Context) ([]*StockView, error) {
	return q.store.List(ctx)
}
