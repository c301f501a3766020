package procurement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// Repository serves the read side: entries listed per day.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByDate returns the day's procurement entries, newest first.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]ledger.ProcurementEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref, entry_date, COALESCE(session_id, 0), supplier_id, item_id, type_id,
		       quantity, rate, amount, created_at
		FROM procurement_entries
		WHERE entry_date = $1
		ORDER BY created_at DESC, id DESC`, ledger.DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.ProcurementEntry
	for rows.Next() {
		var e ledger.ProcurementEntry
		if err := rows.Scan(&e.ID, &e.Ref, &e.Date, &e.SessionID, &e.SupplierID, &e.ItemID, &e.TypeID,
			&e.Quantity, &e.Rate, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListBySupplier returns a supplier's entries within a date range.
func (r *Repository) ListBySupplier(ctx context.Context, supplierID int64, from, to time.Time) ([]ledger.ProcurementEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref, entry_date, COALESCE(session_id, 0), supplier_id, item_id, type_id,
		       quantity, rate, amount, created_at
		FROM procurement_entries
		WHERE supplier_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date, id`, supplierID, ledger.DateOnly(from), ledger.DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.ProcurementEntry
	for rows.Next() {
		var e ledger.ProcurementEntry
		if err := rows.Scan(&e.ID, &e.Ref, &e.Date, &e.SessionID, &e.SupplierID, &e.ItemID, &e.TypeID,
			&e.Quantity, &e.Rate, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
