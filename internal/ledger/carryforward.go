package ledger

import (
	"context"
	"errors"
	"time"
)

// DefaultLookbackDays bounds the carry-forward scan so resolution always
// terminates even for items with long idle gaps.
const DefaultLookbackDays = 30

// SnapshotSource is the point lookup carry-forward needs. Both the
// transactional repository and the read store satisfy it.
type SnapshotSource interface {
	SnapshotOn(ctx context.Context, date time.Time, itemID, typeID int64) (DailySnapshot, error)
}

// CarryForward is the last known positive closing stock for a key, found by
// walking backward from the requested date.
type CarryForward struct {
	Stock      float64
	Rate       float64
	SourceDate time.Time
	DaysBack   int
}

// ResolveCarryForward scans backward day by day from date-1 within the
// lookback window and returns the first snapshot with positive closing
// stock. A miss is not an error: callers must treat it as zero available
// stock.
func ResolveCarryForward(ctx context.Context, src SnapshotSource, itemID, typeID int64, date time.Time, lookbackDays int) (CarryForward, bool, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	day := DateOnly(date)
	for back := 1; back <= lookbackDays; back++ {
		candidate := day.AddDate(0, 0, -back)
		snap, err := src.SnapshotOn(ctx, candidate, itemID, typeID)
		if errors.Is(err, ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return CarryForward{}, false, err
		}
		if snap.ClosingStock > 0 {
			return CarryForward{
				Stock:      snap.ClosingStock,
				Rate:       snap.AvgPurchaseRate,
				SourceDate: candidate,
				DaysBack:   back,
			}, true, nil
		}
	}
	return CarryForward{}, false, nil
}
