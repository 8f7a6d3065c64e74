package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"keyshop/internal/pkg/config"
	"keyshop/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:view:"

// StockCache is a cache-aside layer over the stock read store. Every
// operation is best-effort: Redis being down degrades to database reads,
// never to request failures.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStockCache(client *redis.Client, cfg config.RedisConfig) *StockCache {
	return &StockCache{
		client: client,
		ttl:    cfg.StockTTL,
	}
}

func (c *StockCache) Get(ctx context.Context, id uuid.UUID) (*queries.StockView, bool) {
	if c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, stockKeyPrefix+id.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("stock cache read failed", "item_id", id.String(), "error", err.Error())
		}
		return nil, false
	}

	var view queries.StockView
	if err := json.Unmarshal(payload, &view); err != nil {
		slog.Warn("stock cache payload corrupt", "item_id", id.String(), "error", err.Error())
		return nil, false
	}
	return &view, true
}

func (c *StockCache) Set(ctx context.Context, view *queries.StockView) {
	if c.client == nil || view == nil {
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, stockKeyPrefix+view.ID.String(), payload, c.ttl).Err(); err != nil {
		slog.Warn("stock cache write failed", "item_id", view.ID.String(), "error", err.Error())
	}
}

func (c *StockCache) Invalidate(ctx context.Context, itemIDs ...uuid.UUID) {
	if c.client == nil || len(itemIDs) == 0 {
		return
	}
	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = stockKeyPrefix + id.String()
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("stock cache invalidation failed", "keys", len(keys), "error", err.Error())
	}
}
