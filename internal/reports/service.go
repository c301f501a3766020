package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// ReaderPort is the ledger read surface the report service wraps.
type ReaderPort interface {
	StockForDate(ctx context.Context, itemID int64, date, today time.Time) ([]ledger.TypeStock, error)
	Outstanding(ctx context.Context, partyID, itemID int64) (ledger.BalanceView, error)
	History(ctx context.Context, partyID, itemID int64, from, to time.Time) ([]ledger.HistoryLine, error)
}

// Service answers report queries, caching historical stock resolutions and
// collapsing concurrent identical builds.
type Service struct {
	reader ReaderPort
	cache  *StockCache
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds Service. cache may be nil.
func NewService(reader ReaderPort, cache *StockCache) *Service {
	return &Service{reader: reader, cache: cache, now: time.Now}
}

// Stock resolves per-variant stock for an item on a date. Carry-forward for
// past dates can fan out into many snapshot lookups, so resolved historical
// reports are cached and concurrent requests for the same key share one build.
func (s *Service) Stock(ctx context.Context, itemID int64, date time.Time) ([]ledger.TypeStock, error) {
	date = ledger.DateOnly(date)
	today := ledger.DateOnly(s.now())

	if date.Equal(today) {
		return s.reader.StockForDate(ctx, itemID, date, today)
	}

	if stocks, ok := s.cache.Get(ctx, itemID, date); ok {
		return stocks, nil
	}

	key := fmt.Sprintf("stock:%d:%s", itemID, date.Format("2006-01-02"))
	ch := s.group.DoChan(key, func() (any, error) {
		stocks, err := s.reader.StockForDate(ctx, itemID, date, today)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, itemID, date, stocks)
		return stocks, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]ledger.TypeStock), nil
	}
}

// Balance resolves the outstanding balance view for a (party, item).
func (s *Service) Balance(ctx context.Context, partyID, itemID int64) (ledger.BalanceView, error) {
	return s.reader.Outstanding(ctx, partyID, itemID)
}

// Ledger lists the dated events with running balances for a (party, item).
func (s *Service) Ledger(ctx context.Context, partyID, itemID int64, from, to time.Time) ([]ledger.HistoryLine, error) {
	if to.Before(from) {
		from, to = to, from
	}
	return s.reader.History(ctx, partyID, itemID, ledger.DateOnly(from), ledger.DateOnly(to))
}
