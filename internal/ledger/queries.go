package ledger

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ReadStore is the side-effect-free read surface the reporting layer
// consumes. Implementations must never mutate aggregates.
type ReadStore interface {
	SnapshotOn(ctx context.Context, date time.Time, itemID, typeID int64) (DailySnapshot, error)
	SnapshotsOn(ctx context.Context, date time.Time, itemID int64) ([]DailySnapshot, error)
	ListSnapshotsRange(ctx context.Context, from, to time.Time) ([]DailySnapshot, error)
	ActiveItemTypes(ctx context.Context, itemID int64) ([]ItemType, error)
	CurrentByItem(ctx context.Context, itemID int64) ([]CurrentInventory, error)
	GetOutstanding(ctx context.Context, partyID, itemID int64) (OutstandingBalance, error)
	GetOpening(ctx context.Context, partyID, itemID int64) (OpeningBalance, error)
	ListLedgerEvents(ctx context.Context, partyID, itemID int64, from, to time.Time) ([]LedgerEvent, error)
}

// TypeStock is the resolved per-variant stock for a requested date.
type TypeStock struct {
	TypeID         int64
	Label          string
	Stock          float64
	Rate           float64
	SourceDate     time.Time
	DaysBack       int
	CarriedForward bool
}

// BalanceView exposes both the true signed running totals and the clamped
// display figures of an outstanding balance.
type BalanceView struct {
	PartyID            int64
	ItemID             int64
	PaymentDue         float64
	QuantityDue        float64
	PaymentDueDisplay  float64
	QuantityDueDisplay float64
	Flagged            bool
	FromOpening        bool
	UpdatedOn          time.Time
}

// HistoryLine is one ledger event with the signed running balances after it.
type HistoryLine struct {
	LedgerEvent
	RunningPaymentDue  float64
	RunningQuantityDue float64
}

// Reader answers the read-side queries: stock available for a date,
// outstanding balance per party and item, and ledger history.
type Reader struct {
	store        ReadStore
	lookbackDays int
}

// NewReader builds a Reader. lookbackDays zero means the default window.
func NewReader(store ReadStore, lookbackDays int) *Reader {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Reader{store: store, lookbackDays: lookbackDays}
}

// StockForDate resolves per-variant stock for an item on a date. Today reads
// current inventory directly (true real-time value). Past dates merge
// explicit snapshot rows with carry-forward results for variants missing
// that date; explicit rows take precedence. Future dates return explicit
// rows only, with no speculative carry-forward.
func (r *Reader) StockForDate(ctx context.Context, itemID int64, date, today time.Time) ([]TypeStock, error) {
	date = DateOnly(date)
	today = DateOnly(today)

	types, err := r.store.ActiveItemTypes(ctx, itemID)
	if err != nil {
		return nil, err
	}
	labels := make(map[int64]string, len(types))
	for _, t := range types {
		labels[t.ID] = t.Label
	}

	if date.Equal(today) {
		current, err := r.store.CurrentByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		result := make([]TypeStock, 0, len(current))
		for _, cur := range current {
			result = append(result, TypeStock{
				TypeID:     cur.TypeID,
				Label:      labels[cur.TypeID],
				Stock:      cur.Stock,
				Rate:       cur.WeightedAvgRate,
				SourceDate: date,
			})
		}
		sortTypeStocks(result)
		return result, nil
	}

	snaps, err := r.store.SnapshotsOn(ctx, date, itemID)
	if err != nil {
		return nil, err
	}
	result := make([]TypeStock, 0, len(types))
	explicit := make(map[int64]bool, len(snaps))
	for _, snap := range snaps {
		explicit[snap.TypeID] = true
		result = append(result, TypeStock{
			TypeID:     snap.TypeID,
			Label:      labels[snap.TypeID],
			Stock:      snap.ClosingStock,
			Rate:       snap.AvgPurchaseRate,
			SourceDate: date,
		})
	}
	if date.After(today) {
		sortTypeStocks(result)
		return result, nil
	}

	for _, t := range types {
		if explicit[t.ID] {
			continue
		}
		cf, found, err := ResolveCarryForward(ctx, r.store, itemID, t.ID, date, r.lookbackDays)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		result = append(result, TypeStock{
			TypeID:         t.ID,
			Label:          t.Label,
			Stock:          cf.Stock,
			Rate:           cf.Rate,
			SourceDate:     cf.SourceDate,
			DaysBack:       cf.DaysBack,
			CarriedForward: true,
		})
	}
	sortTypeStocks(result)
	return result, nil
}

// Outstanding resolves the balance view for a (party, item), falling back to
// the opening balance and then zero, mirroring the engine's prior-resolution
// order.
func (r *Reader) Outstanding(ctx context.Context, partyID, itemID int64) (BalanceView, error) {
	bal, err := r.store.GetOutstanding(ctx, partyID, itemID)
	if err == nil {
		return balanceView(bal, false), nil
	}
	if !errors.Is(err, ErrOutstandingNotFound) {
		return BalanceView{}, err
	}
	opening, err := r.store.GetOpening(ctx, partyID, itemID)
	if err == nil {
		return balanceView(OutstandingBalance{
			PartyID:     partyID,
			ItemID:      itemID,
			PaymentDue:  opening.PaymentDue,
			QuantityDue: opening.QuantityDue,
			UpdatedOn:   opening.SetOn,
		}, true), nil
	}
	if !errors.Is(err, ErrOpeningNotFound) {
		return BalanceView{}, err
	}
	return BalanceView{PartyID: partyID, ItemID: itemID}, nil
}

// History lists the dated ledger events for a (party, item) with running
// signed balances folded from the opening balance forward. The fold always
// starts at the opening balance and walks the full log up to the window end;
// events before the window move the running totals but emit no line, so a
// window starting mid-history still reports true balances.
func (r *Reader) History(ctx context.Context, partyID, itemID int64, from, to time.Time) ([]HistoryLine, error) {
	var payment, quantity float64
	opening, err := r.store.GetOpening(ctx, partyID, itemID)
	switch {
	case err == nil:
		payment, quantity = opening.PaymentDue, opening.QuantityDue
	case errors.Is(err, ErrOpeningNotFound):
	default:
		return nil, err
	}

	events, err := r.store.ListLedgerEvents(ctx, partyID, itemID, time.Time{}, to)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() {
		from = DateOnly(from)
	}
	lines := make([]HistoryLine, 0, len(events))
	for _, ev := range events {
		change := ApplyDelta(payment, quantity, ev.PaymentDelta, ev.QuantityDelta)
		payment, quantity = change.PaymentDue, change.QuantityDue
		if ev.Date.Before(from) {
			continue
		}
		lines = append(lines, HistoryLine{
			LedgerEvent:        ev,
			RunningPaymentDue:  payment,
			RunningQuantityDue: quantity,
		})
	}
	return lines, nil
}

func balanceView(bal OutstandingBalance, fromOpening bool) BalanceView {
	return BalanceView{
		PartyID:            bal.PartyID,
		ItemID:             bal.ItemID,
		PaymentDue:         bal.PaymentDue,
		QuantityDue:        bal.QuantityDue,
		PaymentDueDisplay:  ClampDue(bal.PaymentDue),
		QuantityDueDisplay: ClampDue(bal.QuantityDue),
		Flagged:            bal.Flagged,
		FromOpening:        fromOpening,
		UpdatedOn:          bal.UpdatedOn,
	}
}

func sortTypeStocks(stocks []TypeStock) {
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].TypeID < stocks[j].TypeID })
}
