package sales

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// Repository serves the read side of sales entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, ref, entry_date, COALESCE(session_id, 0), seller_id, item_id,
	total, total_quantity, amount_paid, discount, quantity_returned,
	final_payment_outstanding, final_quantity_outstanding, created_at`

// ListByDate returns the day's sales entries with their line items.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]ledger.SalesEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM sales_entries
		WHERE entry_date = $1
		ORDER BY created_at DESC, id DESC`, ledger.DateOnly(date))
	if err != nil {
		return nil, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachLines(ctx, entries)
}

// ListBySeller returns a seller's entries within a date range.
func (r *Repository) ListBySeller(ctx context.Context, sellerID int64, from, to time.Time) ([]ledger.SalesEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM sales_entries
		WHERE seller_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date, id`, sellerID, ledger.DateOnly(from), ledger.DateOnly(to))
	if err != nil {
		return nil, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachLines(ctx, entries)
}

func (r *Repository) attachLines(ctx context.Context, entries []ledger.SalesEntry) ([]ledger.SalesEntry, error) {
	if len(entries) == 0 {
		return entries, nil
	}
	ids := make([]int64, 0, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		ids = append(ids, e.ID)
		index[e.ID] = i
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, type_id, quantity, rate, amount
		FROM sales_line_items
		WHERE entry_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line ledger.SalesLineItem
		if err := rows.Scan(&line.ID, &line.EntryID, &line.TypeID, &line.Quantity, &line.Rate, &line.Amount); err != nil {
			return nil, err
		}
		if i, ok := index[line.EntryID]; ok {
			entries[i].Lines = append(entries[i].Lines, line)
		}
	}
	return entries, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]ledger.SalesEntry, error) {
	defer rows.Close()
	var entries []ledger.SalesEntry
	for rows.Next() {
		var e ledger.SalesEntry
		if err := rows.Scan(&e.ID, &e.Ref, &e.Date, &e.SessionID, &e.SellerID, &e.ItemID,
			&e.Total, &e.TotalQuantity, &e.AmountPaid, &e.Discount, &e.QuantityReturned,
			&e.FinalPaymentOutstanding, &e.FinalQuantityOutstanding, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
