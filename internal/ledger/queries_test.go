package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryReadStore struct {
	snapshots   snapshotMap
	types       []ItemType
	current     []CurrentInventory
	outstanding map[string]OutstandingBalance
	openings    map[string]OpeningBalance
	events      []LedgerEvent
}

func newMemoryReadStore() *memoryReadStore {
	return &memoryReadStore{
		snapshots:   snapshotMap{},
		outstanding: make(map[string]OutstandingBalance),
		openings:    make(map[string]OpeningBalance),
	}
}

func (s *memoryReadStore) SnapshotOn(ctx context.Context, date time.Time, itemID, typeID int64) (DailySnapshot, error) {
	return s.snapshots.SnapshotOn(ctx, date, itemID, typeID)
}

func (s *memoryReadStore) SnapshotsOn(_ context.Context, date time.Time, itemID int64) ([]DailySnapshot, error) {
	var out []DailySnapshot
	for _, snap := range s.snapshots {
		if snap.Date.Equal(date) && snap.ItemID == itemID {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *memoryReadStore) ListSnapshotsRange(_ context.Context, from, to time.Time) ([]DailySnapshot, error) {
	var out []DailySnapshot
	for _, snap := range s.snapshots {
		if !snap.Date.Before(from) && !snap.Date.After(to) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memoryReadStore) ActiveItemTypes(_ context.Context, itemID int64) ([]ItemType, error) {
	var out []ItemType
	for _, t := range s.types {
		if t.ItemID == itemID && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryReadStore) CurrentByItem(_ context.Context, itemID int64) ([]CurrentInventory, error) {
	var out []CurrentInventory
	for _, cur := range s.current {
		if cur.ItemID == itemID {
			out = append(out, cur)
		}
	}
	return out, nil
}

func (s *memoryReadStore) GetOutstanding(_ context.Context, partyID, itemID int64) (OutstandingBalance, error) {
	if bal, ok := s.outstanding[partyKey(partyID, itemID)]; ok {
		return bal, nil
	}
	return OutstandingBalance{}, ErrOutstandingNotFound
}

func (s *memoryReadStore) GetOpening(_ context.Context, partyID, itemID int64) (OpeningBalance, error) {
	if ob, ok := s.openings[partyKey(partyID, itemID)]; ok {
		return ob, nil
	}
	return OpeningBalance{}, ErrOpeningNotFound
}

func (s *memoryReadStore) ListLedgerEvents(_ context.Context, partyID, itemID int64, from, to time.Time) ([]LedgerEvent, error) {
	var out []LedgerEvent
	for _, ev := range s.events {
		if !ev.Date.Before(from) && !ev.Date.After(to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func TestStockForDateToday(t *testing.T) {
	store := newMemoryReadStore()
	store.types = []ItemType{{ID: 1, ItemID: 7, Label: "Desi", Active: true}}
	store.current = []CurrentInventory{{ItemID: 7, TypeID: 1, Stock: 42, WeightedAvgRate: 9.5}}

	reader := NewReader(store, 0)
	stocks, err := reader.StockForDate(context.Background(), 7, day(3), day(3))
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	require.Equal(t, "Desi", stocks[0].Label)
	require.InDelta(t, 42, stocks[0].Stock, 1e-9)
	require.InDelta(t, 9.5, stocks[0].Rate, 1e-9)
	require.False(t, stocks[0].CarriedForward)
}

func TestStockForDatePastMergesCarryForward(t *testing.T) {
	store := newMemoryReadStore()
	store.types = []ItemType{
		{ID: 1, ItemID: 7, Label: "Desi", Active: true},
		{ID: 2, ItemID: 7, Label: "Hybrid", Active: true},
	}
	// Type 1 has an explicit snapshot on the requested date; type 2 only
	// has an older one and must carry forward.
	store.snapshots.put(DailySnapshot{Date: day(5), ItemID: 7, TypeID: 1, ClosingStock: 15, AvgPurchaseRate: 10})
	store.snapshots.put(DailySnapshot{Date: day(2), ItemID: 7, TypeID: 2, ClosingStock: 8, AvgPurchaseRate: 12})

	reader := NewReader(store, 0)
	stocks, err := reader.StockForDate(context.Background(), 7, day(5), day(9))
	require.NoError(t, err)
	require.Len(t, stocks, 2)

	require.Equal(t, int64(1), stocks[0].TypeID)
	require.InDelta(t, 15, stocks[0].Stock, 1e-9)
	require.False(t, stocks[0].CarriedForward)

	require.Equal(t, int64(2), stocks[1].TypeID)
	require.InDelta(t, 8, stocks[1].Stock, 1e-9)
	require.True(t, stocks[1].CarriedForward)
	require.Equal(t, day(2), stocks[1].SourceDate)
	require.Equal(t, 3, stocks[1].DaysBack)
}

func TestStockForDateExplicitRowWinsOverCarryForward(t *testing.T) {
	store := newMemoryReadStore()
	store.types = []ItemType{{ID: 1, ItemID: 7, Label: "Desi", Active: true}}
	store.snapshots.put(DailySnapshot{Date: day(4), ItemID: 7, TypeID: 1, ClosingStock: 30, AvgPurchaseRate: 8})
	store.snapshots.put(DailySnapshot{Date: day(5), ItemID: 7, TypeID: 1, ClosingStock: 0, AvgPurchaseRate: 8})

	// The explicit zero-closing row on the requested date is authoritative;
	// no fallback to the older positive closing.
	reader := NewReader(store, 0)
	stocks, err := reader.StockForDate(context.Background(), 7, day(5), day(9))
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	require.InDelta(t, 0, stocks[0].Stock, 1e-9)
	require.False(t, stocks[0].CarriedForward)
}

func TestStockForDateFutureHasNoCarryForward(t *testing.T) {
	store := newMemoryReadStore()
	store.types = []ItemType{{ID: 1, ItemID: 7, Label: "Desi", Active: true}}
	store.snapshots.put(DailySnapshot{Date: day(2), ItemID: 7, TypeID: 1, ClosingStock: 30, AvgPurchaseRate: 8})

	reader := NewReader(store, 0)
	stocks, err := reader.StockForDate(context.Background(), 7, day(6), day(3))
	require.NoError(t, err)
	require.Empty(t, stocks)
}

func TestOutstandingFallbackOrder(t *testing.T) {
	store := newMemoryReadStore()
	reader := NewReader(store, 0)
	ctx := context.Background()

	// No rows at all: zero-value view.
	view, err := reader.Outstanding(ctx, 5, 2)
	require.NoError(t, err)
	require.Zero(t, view.PaymentDue)
	require.False(t, view.FromOpening)

	// Opening balance only.
	store.openings[partyKey(5, 2)] = OpeningBalance{PartyID: 5, ItemID: 2, PaymentDue: 100, QuantityDue: 5, SetOn: day(0)}
	view, err = reader.Outstanding(ctx, 5, 2)
	require.NoError(t, err)
	require.InDelta(t, 100, view.PaymentDue, 1e-9)
	require.True(t, view.FromOpening)

	// An outstanding row takes precedence over the opening balance.
	store.outstanding[partyKey(5, 2)] = OutstandingBalance{PartyID: 5, ItemID: 2, PaymentDue: -30, QuantityDue: 4, Flagged: true, UpdatedOn: day(2)}
	view, err = reader.Outstanding(ctx, 5, 2)
	require.NoError(t, err)
	require.False(t, view.FromOpening)
	require.InDelta(t, -30, view.PaymentDue, 1e-9)
	require.InDelta(t, 0, view.PaymentDueDisplay, 1e-9)
	require.InDelta(t, 4, view.QuantityDueDisplay, 1e-9)
	require.True(t, view.Flagged)
}

func TestHistoryRunningBalances(t *testing.T) {
	store := newMemoryReadStore()
	store.openings[partyKey(2, 7)] = OpeningBalance{PartyID: 2, ItemID: 7, PaymentDue: 100, QuantityDue: 5, SetOn: day(0)}
	store.events = []LedgerEvent{
		{Date: day(1), Kind: EventSale, PaymentDelta: 150, QuantityDelta: 8},
		{Date: day(2), Kind: EventPayment, PaymentDelta: -120, QuantityDelta: -3},
	}

	reader := NewReader(store, 0)
	lines, err := reader.History(context.Background(), 2, 7, day(0), day(9))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	require.InDelta(t, 250, lines[0].RunningPaymentDue, 1e-9)
	require.InDelta(t, 13, lines[0].RunningQuantityDue, 1e-9)
	require.InDelta(t, 130, lines[1].RunningPaymentDue, 1e-9)
	require.InDelta(t, 10, lines[1].RunningQuantityDue, 1e-9)
}

func TestHistoryWindowFoldsEarlierEvents(t *testing.T) {
	store := newMemoryReadStore()
	store.openings[partyKey(2, 7)] = OpeningBalance{PartyID: 2, ItemID: 7, PaymentDue: 100, QuantityDue: 5, SetOn: day(0)}
	store.events = []LedgerEvent{
		{Date: day(1), Kind: EventSale, PaymentDelta: 150, QuantityDelta: 8},
		{Date: day(4), Kind: EventPayment, PaymentDelta: -120, QuantityDelta: -3},
	}

	// A window opening after the first event still reports running totals
	// that include it: 100 + 150 - 120, not 100 - 120.
	reader := NewReader(store, 0)
	lines, err := reader.History(context.Background(), 2, 7, day(3), day(9))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, EventPayment, lines[0].Kind)
	require.InDelta(t, 130, lines[0].RunningPaymentDue, 1e-9)
	require.InDelta(t, 10, lines[0].RunningQuantityDue, 1e-9)

	// Events after the window end stay out of both the lines and the fold.
	lines, err = reader.History(context.Background(), 2, 7, day(0), day(2))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, EventSale, lines[0].Kind)
	require.InDelta(t, 250, lines[0].RunningPaymentDue, 1e-9)
}
