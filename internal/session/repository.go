package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// Repository persists trading sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, session_date, status, procurement_total, sales_total, opened_at, COALESCE(closed_at, 'epoch'::timestamptz)`

// Open creates an OPEN session for the date. A partial unique index on
// (session_date) WHERE status = 'OPEN' rejects a second open session.
func (r *Repository) Open(ctx context.Context, date time.Time) (TradingSession, error) {
	var s TradingSession
	err := r.pool.QueryRow(ctx, `
		INSERT INTO trading_sessions (session_date, status, opened_at)
		VALUES ($1, 'OPEN', NOW())
		RETURNING `+sessionColumns,
		ledger.DateOnly(date)).
		Scan(&s.ID, &s.Date, &s.Status, &s.ProcurementTotal, &s.SalesTotal, &s.OpenedAt, &s.ClosedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return TradingSession{}, ErrAlreadyOpen
	}
	return s, err
}

// Close marks a session CLOSED; closing twice fails.
func (r *Repository) Close(ctx context.Context, id int64) (TradingSession, error) {
	var s TradingSession
	err := r.pool.QueryRow(ctx, `
		UPDATE trading_sessions
		SET status = 'CLOSED', closed_at = NOW()
		WHERE id = $1 AND status = 'OPEN'
		RETURNING `+sessionColumns, id).
		Scan(&s.ID, &s.Date, &s.Status, &s.ProcurementTotal, &s.SalesTotal, &s.OpenedAt, &s.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return TradingSession{}, getErr
		}
		return TradingSession{}, ErrAlreadyClosed
	}
	return s, err
}

// Get fetches one session.
func (r *Repository) Get(ctx context.Context, id int64) (TradingSession, error) {
	var s TradingSession
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM trading_sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.Date, &s.Status, &s.ProcurementTotal, &s.SalesTotal, &s.OpenedAt, &s.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TradingSession{}, ErrNotFound
	}
	return s, err
}

// OpenOn returns the open session for a date, if any.
func (r *Repository) OpenOn(ctx context.Context, date time.Time) (TradingSession, error) {
	var s TradingSession
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM trading_sessions WHERE session_date = $1 AND status = 'OPEN'`,
		ledger.DateOnly(date)).
		Scan(&s.ID, &s.Date, &s.Status, &s.ProcurementTotal, &s.SalesTotal, &s.OpenedAt, &s.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TradingSession{}, ErrNotFound
	}
	return s, err
}

// List returns sessions in reverse date order.
func (r *Repository) List(ctx context.Context, limit int) ([]TradingSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM trading_sessions ORDER BY session_date DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []TradingSession
	for rows.Next() {
		var s TradingSession
		if err := rows.Scan(&s.ID, &s.Date, &s.Status, &s.ProcurementTotal, &s.SalesTotal, &s.OpenedAt, &s.ClosedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
