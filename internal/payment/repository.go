package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// Repository serves the read side of payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByDate returns the day's payments, newest first.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]ledger.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref, entry_date, party_id, item_id,
		       amount_applied, quantity_returned, COALESCE(notes, ''), created_at
		FROM payments
		WHERE entry_date = $1
		ORDER BY created_at DESC, id DESC`, ledger.DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		var p ledger.Payment
		if err := rows.Scan(&p.ID, &p.Ref, &p.Date, &p.PartyID, &p.ItemID,
			&p.AmountApplied, &p.QuantityReturned, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
