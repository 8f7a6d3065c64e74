package components

import (
	"keyshop/internal/infra/cache"
	"keyshop/internal/infra/db"
	"keyshop/internal/infra/readstore"
	"keyshop/internal/infra/uow"
	"keyshop/internal/usecase/commands"
	"keyshop/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		// UnitOfWork
		uow.NewPostgresUoW,
		// Read-side stock view
		fx.Annotate(
			readstore.NewStockReadStore,
			fx.As(new(queries.StockReadStore)),
		),
		// Stock view cache, shared by the query side (read-through) and the
		// command side (invalidation)
		fx.Annotate(
			cache.NewStockCache,
			fx.As(new(queries.StockViewCache)),
			fx.As(new(commands.StockCacheInvalidator)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
