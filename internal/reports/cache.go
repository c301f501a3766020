package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// StockCache caches resolved historical stock reports in Redis. Today's
// figures are never cached; they come straight from current inventory.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStockCache builds StockCache. A nil client disables caching.
func NewStockCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StockCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StockCache{client: client, ttl: ttl, logger: logger}
}

func stockKey(itemID int64, date time.Time) string {
	return fmt.Sprintf("reports:stock:%d:%s", itemID, date.Format("2006-01-02"))
}

// Get returns the cached report, if any. Cache failures degrade to a miss.
func (c *StockCache) Get(ctx context.Context, itemID int64, date time.Time) ([]ledger.TypeStock, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, stockKey(itemID, date)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("stock cache get", slog.Any("error", err))
		}
		return nil, false
	}
	var stocks []ledger.TypeStock
	if err := json.Unmarshal(raw, &stocks); err != nil {
		return nil, false
	}
	return stocks, true
}

// Set stores the report under its (item, date) key.
func (c *StockCache) Set(ctx context.Context, itemID int64, date time.Time, stocks []ledger.TypeStock) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(stocks)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, stockKey(itemID, date), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("stock cache set", slog.Any("error", err))
	}
}

// InvalidateItem drops every cached date for an item. Called after any write
// touching the item's inventory.
func (c *StockCache) InvalidateItem(ctx context.Context, itemID int64) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("reports:stock:%d:*", itemID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("stock cache scan", slog.Any("error", err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("stock cache invalidate", slog.Any("error", err))
	}
}
