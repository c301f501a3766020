package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/freshmandi/internal/platform/db"
)

// Repository persists ledger aggregates and event records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs the callback inside a repeatable-read transaction. All
// aggregate writes for one event go through a single call.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) EnsureItemType(ctx context.Context, itemID int64, label string, seen time.Time) (ItemType, error) {
	var t ItemType
	err := r.tx.QueryRow(ctx, `
INSERT INTO item_types (item_id, label, first_seen, last_seen, active)
VALUES ($1, $2, $3, $3, TRUE)
ON CONFLICT (item_id, label) DO UPDATE
SET first_seen = LEAST(item_types.first_seen, EXCLUDED.first_seen),
    last_seen = GREATEST(item_types.last_seen, EXCLUDED.last_seen),
    active = TRUE
RETURNING id, item_id, label, first_seen, last_seen, active`,
		itemID, label, seen).
		Scan(&t.ID, &t.ItemID, &t.Label, &t.FirstSeen, &t.LastSeen, &t.Active)
	return t, err
}

func (r *txRepo) GetItemType(ctx context.Context, typeID int64) (ItemType, error) {
	var t ItemType
	err := r.tx.QueryRow(ctx, `
SELECT id, item_id, label, first_seen, last_seen, active FROM item_types WHERE id = $1`, typeID).
		Scan(&t.ID, &t.ItemID, &t.Label, &t.FirstSeen, &t.LastSeen, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ItemType{}, ErrItemTypeNotFound
	}
	return t, err
}

func (r *txRepo) GetCurrentForUpdate(ctx context.Context, itemID, typeID int64) (CurrentInventory, error) {
	var cur CurrentInventory
	err := r.tx.QueryRow(ctx, `
SELECT item_id, type_id, stock, weighted_avg_rate, updated_on
FROM current_inventory WHERE item_id = $1 AND type_id = $2 FOR UPDATE`, itemID, typeID).
		Scan(&cur.ItemID, &cur.TypeID, &cur.Stock, &cur.WeightedAvgRate, &cur.UpdatedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return CurrentInventory{}, ErrCurrentNotFound
	}
	return cur, err
}

func (r *txRepo) UpsertCurrent(ctx context.Context, cur CurrentInventory) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO current_inventory (item_id, type_id, stock, weighted_avg_rate, updated_on)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (item_id, type_id) DO UPDATE
SET stock = EXCLUDED.stock, weighted_avg_rate = EXCLUDED.weighted_avg_rate, updated_on = EXCLUDED.updated_on`,
		cur.ItemID, cur.TypeID, cur.Stock, cur.WeightedAvgRate, cur.UpdatedOn)
	return err
}

func (r *txRepo) GetSnapshotForUpdate(ctx context.Context, date time.Time, itemID, typeID int64) (DailySnapshot, error) {
	return scanSnapshot(r.tx.QueryRow(ctx, `
SELECT id, snapshot_date, item_id, type_id, opening_stock, purchased_today, sold_today, closing_stock, avg_purchase_rate
FROM daily_snapshots WHERE snapshot_date = $1 AND item_id = $2 AND type_id = $3 FOR UPDATE`,
		date, itemID, typeID))
}

func (r *txRepo) SnapshotOn(ctx context.Context, date time.Time, itemID, typeID int64) (DailySnapshot, error) {
	return scanSnapshot(r.tx.QueryRow(ctx, `
SELECT id, snapshot_date, item_id, type_id, opening_stock, purchased_today, sold_today, closing_stock, avg_purchase_rate
FROM daily_snapshots WHERE snapshot_date = $1 AND item_id = $2 AND type_id = $3`,
		date, itemID, typeID))
}

func (r *txRepo) UpsertSnapshot(ctx context.Context, snap DailySnapshot) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO daily_snapshots (snapshot_date, item_id, type_id, opening_stock, purchased_today, sold_today, closing_stock, avg_purchase_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (snapshot_date, item_id, type_id) DO UPDATE
SET opening_stock = EXCLUDED.opening_stock,
    purchased_today = EXCLUDED.purchased_today,
    sold_today = EXCLUDED.sold_today,
    closing_stock = EXCLUDED.closing_stock,
    avg_purchase_rate = EXCLUDED.avg_purchase_rate`,
		snap.Date, snap.ItemID, snap.TypeID, snap.OpeningStock, snap.PurchasedToday, snap.SoldToday, snap.ClosingStock, snap.AvgPurchaseRate)
	return err
}

func (r *txRepo) GetOutstandingForUpdate(ctx context.Context, partyID, itemID int64) (OutstandingBalance, error) {
	var bal OutstandingBalance
	err := r.tx.QueryRow(ctx, `
SELECT party_id, item_id, payment_due, quantity_due, flagged, updated_on
FROM outstanding_balances WHERE party_id = $1 AND item_id = $2 FOR UPDATE`, partyID, itemID).
		Scan(&bal.PartyID, &bal.ItemID, &bal.PaymentDue, &bal.QuantityDue, &bal.Flagged, &bal.UpdatedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return OutstandingBalance{}, ErrOutstandingNotFound
	}
	return bal, err
}

// UpsertOutstanding applies one incremental write. The review flag is sticky
// here: once a balance has crossed zero it stays flagged until a replay
// re-derives the row from the full event log.
func (r *txRepo) UpsertOutstanding(ctx context.Context, bal OutstandingBalance) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO outstanding_balances (party_id, item_id, payment_due, quantity_due, flagged, updated_on)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (party_id, item_id) DO UPDATE
SET payment_due = EXCLUDED.payment_due,
    quantity_due = EXCLUDED.quantity_due,
    flagged = outstanding_balances.flagged OR EXCLUDED.flagged,
    updated_on = EXCLUDED.updated_on`,
		bal.PartyID, bal.ItemID, bal.PaymentDue, bal.QuantityDue, bal.Flagged, bal.UpdatedOn)
	return err
}

// ReplaceOutstanding overwrites the row with a recomputed balance, flag
// included. Only the replay path writes through here.
func (r *txRepo) ReplaceOutstanding(ctx context.Context, bal OutstandingBalance) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO outstanding_balances (party_id, item_id, payment_due, quantity_due, flagged, updated_on)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (party_id, item_id) DO UPDATE
SET payment_due = EXCLUDED.payment_due,
    quantity_due = EXCLUDED.quantity_due,
    flagged = EXCLUDED.flagged,
    updated_on = EXCLUDED.updated_on`,
		bal.PartyID, bal.ItemID, bal.PaymentDue, bal.QuantityDue, bal.Flagged, bal.UpdatedOn)
	return err
}

func (r *txRepo) GetOpeningBalance(ctx context.Context, partyID, itemID int64) (OpeningBalance, error) {
	var ob OpeningBalance
	err := r.tx.QueryRow(ctx, `
SELECT party_id, item_id, payment_due, quantity_due, set_on
FROM opening_balances WHERE party_id = $1 AND item_id = $2`, partyID, itemID).
		Scan(&ob.PartyID, &ob.ItemID, &ob.PaymentDue, &ob.QuantityDue, &ob.SetOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return OpeningBalance{}, ErrOpeningNotFound
	}
	return ob, err
}

func (r *txRepo) UpsertOpeningBalance(ctx context.Context, ob OpeningBalance) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO opening_balances (party_id, item_id, payment_due, quantity_due, set_on)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (party_id, item_id) DO UPDATE
SET payment_due = EXCLUDED.payment_due, quantity_due = EXCLUDED.quantity_due, set_on = EXCLUDED.set_on`,
		ob.PartyID, ob.ItemID, ob.PaymentDue, ob.QuantityDue, ob.SetOn)
	return err
}

func (r *txRepo) InsertProcurementEntry(ctx context.Context, entry ProcurementEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
INSERT INTO procurement_entries (ref, entry_date, session_id, supplier_id, item_id, type_id, quantity, rate, amount, created_at)
VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9, NOW())
RETURNING id`,
		entry.Ref, entry.Date, entry.SessionID, entry.SupplierID, entry.ItemID, entry.TypeID, entry.Quantity, entry.Rate, entry.Amount).
		Scan(&id)
	return id, err
}

func (r *txRepo) InsertSalesEntry(ctx context.Context, entry SalesEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
INSERT INTO sales_entries (ref, entry_date, session_id, seller_id, item_id, total, total_quantity, amount_paid, discount, quantity_returned, final_payment_outstanding, final_quantity_outstanding, created_at)
VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
RETURNING id`,
		entry.Ref, entry.Date, entry.SessionID, entry.SellerID, entry.ItemID, entry.Total, entry.TotalQuantity,
		entry.AmountPaid, entry.Discount, entry.QuantityReturned, entry.FinalPaymentOutstanding, entry.FinalQuantityOutstanding).
		Scan(&id)
	return id, err
}

func (r *txRepo) InsertSalesLineItems(ctx context.Context, entryID int64, lines []SalesLineItem) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `
INSERT INTO sales_line_items (entry_id, type_id, quantity, rate, amount)
VALUES ($1, $2, $3, $4, $5)`,
			entryID, line.TypeID, line.Quantity, line.Rate, line.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) InsertDamageEntry(ctx context.Context, entry DamageEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
INSERT INTO damage_entries (ref, entry_date, supplier_id, item_id, type_id, damaged_qty, returned_qty, discount_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id`,
		entry.Ref, entry.Date, entry.SupplierID, entry.ItemID, entry.TypeID, entry.DamagedQty, entry.ReturnedQty, entry.DiscountAmount).
		Scan(&id)
	return id, err
}

func (r *txRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
INSERT INTO payments (ref, entry_date, party_id, item_id, amount_applied, quantity_returned, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
RETURNING id`,
		payment.Ref, payment.Date, payment.PartyID, payment.ItemID, payment.AmountApplied, payment.QuantityReturned, payment.Notes).
		Scan(&id)
	return id, err
}

func (r *txRepo) AddSessionTotals(ctx context.Context, sessionID int64, procurementDelta, salesDelta float64) error {
	tag, err := r.tx.Exec(ctx, `
UPDATE trading_sessions
SET procurement_total = procurement_total + $2, sales_total = sales_total + $3
WHERE id = $1 AND status = 'OPEN'`,
		sessionID, procurementDelta, salesDelta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotOpen
	}
	return nil
}

// ledgerEventsQuery flattens every event affecting a (party, item) balance
// into date-ordered rows with their signed balance deltas.
const ledgerEventsQuery = `
SELECT entry_date, kind, ref, quantity, amount, payment_delta, quantity_delta FROM (
    SELECT entry_date, 'PROCUREMENT' AS kind, ref, quantity, amount,
           amount AS payment_delta, quantity AS quantity_delta, created_at
    FROM procurement_entries WHERE supplier_id = $1 AND item_id = $2
    UNION ALL
    SELECT entry_date, 'SALE', ref, total_quantity, total,
           total - amount_paid - discount, total_quantity - quantity_returned, created_at
    FROM sales_entries WHERE seller_id = $1 AND item_id = $2
    UNION ALL
    SELECT entry_date, 'DAMAGE', ref, returned_qty, discount_amount,
           -discount_amount, 0, created_at
    FROM damage_entries WHERE supplier_id = $1 AND item_id = $2
    UNION ALL
    SELECT entry_date, 'PAYMENT', ref, quantity_returned, amount_applied,
           -amount_applied, -quantity_returned, created_at
    FROM payments WHERE party_id = $1 AND item_id = $2
) events`

func (r *txRepo) ListEventsForReplay(ctx context.Context, partyID, itemID int64) ([]LedgerEvent, error) {
	rows, err := r.tx.Query(ctx, ledgerEventsQuery+` ORDER BY entry_date, created_at`, partyID, itemID)
	if err != nil {
		return nil, err
	}
	return collectLedgerEvents(rows)
}

// Read-side methods. These are pure reads consumed by the reporting layer
// and the background integrity scan; they never mutate aggregates.

func (r *Repository) SnapshotOn(ctx context.Context, date time.Time, itemID, typeID int64) (DailySnapshot, error) {
	return scanSnapshot(r.pool.QueryRow(ctx, `
SELECT id, snapshot_date, item_id, type_id, opening_stock, purchased_today, sold_today, closing_stock, avg_purchase_rate
FROM daily_snapshots WHERE snapshot_date = $1 AND item_id = $2 AND type_id = $3`,
		date, itemID, typeID))
}

func (r *Repository) SnapshotsOn(ctx context.Context, date time.Time, itemID int64) ([]DailySnapshot, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, snapshot_date, item_id, type_id, opening_stock, purchased_today, sold_today, closing_stock, avg_purchase_rate
FROM daily_snapshots WHERE snapshot_date = $1 AND item_id = $2 ORDER BY type_id`,
		date, itemID)
	if err != nil {
		return nil, err
	}
	return collectSnapshots(rows)
}

func (r *Repository) ListSnapshotsRange(ctx context.Context, from, to time.Time) ([]DailySnapshot, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, snapshot_date, item_id, type_id, opening_stock, purchased_today, sold_today, closing_stock, avg_purchase_rate
FROM daily_snapshots WHERE snapshot_date BETWEEN $1 AND $2
ORDER BY item_id, type_id, snapshot_date`,
		from, to)
	if err != nil {
		return nil, err
	}
	return collectSnapshots(rows)
}

func (r *Repository) ActiveItemTypes(ctx context.Context, itemID int64) ([]ItemType, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, item_id, label, first_seen, last_seen, active
FROM item_types WHERE item_id = $1 AND active ORDER BY id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []ItemType
	for rows.Next() {
		var t ItemType
		if err := rows.Scan(&t.ID, &t.ItemID, &t.Label, &t.FirstSeen, &t.LastSeen, &t.Active); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *Repository) CurrentByItem(ctx context.Context, itemID int64) ([]CurrentInventory, error) {
	rows, err := r.pool.Query(ctx, `
SELECT item_id, type_id, stock, weighted_avg_rate, updated_on
FROM current_inventory WHERE item_id = $1 ORDER BY type_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var current []CurrentInventory
	for rows.Next() {
		var cur CurrentInventory
		if err := rows.Scan(&cur.ItemID, &cur.TypeID, &cur.Stock, &cur.WeightedAvgRate, &cur.UpdatedOn); err != nil {
			return nil, err
		}
		current = append(current, cur)
	}
	return current, rows.Err()
}

func (r *Repository) GetOutstanding(ctx context.Context, partyID, itemID int64) (OutstandingBalance, error) {
	var bal OutstandingBalance
	err := r.pool.QueryRow(ctx, `
SELECT party_id, item_id, payment_due, quantity_due, flagged, updated_on
FROM outstanding_balances WHERE party_id = $1 AND item_id = $2`, partyID, itemID).
		Scan(&bal.PartyID, &bal.ItemID, &bal.PaymentDue, &bal.QuantityDue, &bal.Flagged, &bal.UpdatedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return OutstandingBalance{}, ErrOutstandingNotFound
	}
	return bal, err
}

func (r *Repository) GetOpening(ctx context.Context, partyID, itemID int64) (OpeningBalance, error) {
	var ob OpeningBalance
	err := r.pool.QueryRow(ctx, `
SELECT party_id, item_id, payment_due, quantity_due, set_on
FROM opening_balances WHERE party_id = $1 AND item_id = $2`, partyID, itemID).
		Scan(&ob.PartyID, &ob.ItemID, &ob.PaymentDue, &ob.QuantityDue, &ob.SetOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return OpeningBalance{}, ErrOpeningNotFound
	}
	return ob, err
}

func (r *Repository) ListLedgerEvents(ctx context.Context, partyID, itemID int64, from, to time.Time) ([]LedgerEvent, error) {
	query := ledgerEventsQuery + ` WHERE ($3::date IS NULL OR entry_date >= $3) AND ($4::date IS NULL OR entry_date <= $4) ORDER BY entry_date, created_at`
	rows, err := r.pool.Query(ctx, query, partyID, itemID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, err
	}
	return collectLedgerEvents(rows)
}

func dateArg(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := DateOnly(t)
	return &d
}

func scanSnapshot(row pgx.Row) (DailySnapshot, error) {
	var snap DailySnapshot
	err := row.Scan(&snap.ID, &snap.Date, &snap.ItemID, &snap.TypeID,
		&snap.OpeningStock, &snap.PurchasedToday, &snap.SoldToday, &snap.ClosingStock, &snap.AvgPurchaseRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return DailySnapshot{}, ErrSnapshotNotFound
	}
	return snap, err
}

func collectSnapshots(rows pgx.Rows) ([]DailySnapshot, error) {
	defer rows.Close()
	var snaps []DailySnapshot
	for rows.Next() {
		var snap DailySnapshot
		if err := rows.Scan(&snap.ID, &snap.Date, &snap.ItemID, &snap.TypeID,
			&snap.OpeningStock, &snap.PurchasedToday, &snap.SoldToday, &snap.ClosingStock, &snap.AvgPurchaseRate); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func collectLedgerEvents(rows pgx.Rows) ([]LedgerEvent, error) {
	defer rows.Close()
	var events []LedgerEvent
	for rows.Next() {
		var ev LedgerEvent
		var kind string
		if err := rows.Scan(&ev.Date, &kind, &ev.Ref, &ev.Quantity, &ev.Amount, &ev.PaymentDelta, &ev.QuantityDelta); err != nil {
			return nil, err
		}
		ev.Kind = EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}
