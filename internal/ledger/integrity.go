package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

const snapshotTolerance = 1e-6

// SnapshotViolation describes a daily snapshot that breaks one of the
// aggregate invariants.
type SnapshotViolation struct {
	Date   time.Time
	ItemID int64
	TypeID int64
	Reason string
}

// CheckSnapshots walks the snapshots in [from, to] and verifies, per
// (item, type) in date order, that closing stock honours the clamp identity
// and that each opening stock matches the most recent prior positive closing
// within the lookback window.
func (r *Reader) CheckSnapshots(ctx context.Context, from, to time.Time) ([]SnapshotViolation, error) {
	snaps, err := r.store.ListSnapshotsRange(ctx, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}

	type key struct {
		itemID int64
		typeID int64
	}
	grouped := make(map[key][]DailySnapshot)
	for _, snap := range snaps {
		k := key{snap.ItemID, snap.TypeID}
		grouped[k] = append(grouped[k], snap)
	}

	var violations []SnapshotViolation
	for k, series := range grouped {
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		for _, snap := range series {
			want := snap.OpeningStock + snap.PurchasedToday - snap.SoldToday
			if want < 0 {
				want = 0
			}
			if math.Abs(snap.ClosingStock-want) > snapshotTolerance {
				violations = append(violations, SnapshotViolation{
					Date:   snap.Date,
					ItemID: k.itemID,
					TypeID: k.typeID,
					Reason: fmt.Sprintf("closing stock %.4f, expected %.4f", snap.ClosingStock, want),
				})
				continue
			}
			cf, found, err := ResolveCarryForward(ctx, r.store, k.itemID, k.typeID, snap.Date, r.lookbackDays)
			if err != nil {
				return nil, err
			}
			expectedOpening := 0.0
			if found {
				expectedOpening = cf.Stock
			}
			if math.Abs(snap.OpeningStock-expectedOpening) > snapshotTolerance {
				violations = append(violations, SnapshotViolation{
					Date:   snap.Date,
					ItemID: k.itemID,
					TypeID: k.typeID,
					Reason: fmt.Sprintf("opening stock %.4f, expected %.4f from carry-forward", snap.OpeningStock, expectedOpening),
				})
			}
		}
	}
	sort.Slice(violations, func(i, j int) bool {
		if !violations[i].Date.Equal(violations[j].Date) {
			return violations[i].Date.Before(violations[j].Date)
		}
		if violations[i].ItemID != violations[j].ItemID {
			return violations[i].ItemID < violations[j].ItemID
		}
		return violations[i].TypeID < violations[j].TypeID
	})
	return violations, nil
}
