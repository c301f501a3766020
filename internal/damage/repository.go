package damage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// Repository serves the read side of damage entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByDate returns the day's damage entries, newest first.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]ledger.DamageEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref, entry_date, supplier_id, item_id, type_id,
		       damaged_qty, returned_qty, discount_amount, created_at
		FROM damage_entries
		WHERE entry_date = $1
		ORDER BY created_at DESC, id DESC`, ledger.DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.DamageEntry
	for rows.Next() {
		var e ledger.DamageEntry
		if err := rows.Scan(&e.ID, &e.Ref, &e.Date, &e.SupplierID, &e.ItemID, &e.TypeID,
			&e.DamagedQty, &e.ReturnedQty, &e.DiscountAmount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
