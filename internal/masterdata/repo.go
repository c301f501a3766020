package masterdata

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists items and parties.
type Repository interface {
	ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, id int64, item Item) error
	DeactivateItem(ctx context.Context, id int64) error

	ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error)
	GetParty(ctx context.Context, id int64) (Party, error)
	CreateParty(ctx context.Context, party Party) (Party, error)
	UpdateParty(ctx context.Context, id int64, party Party) error
	DeactivateParty(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	limit, offset := pageBounds(filters)
	search := "%" + strings.TrimSpace(filters.Search) + "%"

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE name ILIKE $1`, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, unit_kind, unit, active, created_at
		FROM items
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Kind, &it.Unit, &it.Active, &it.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, id int64) (Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, unit_kind, unit, active, created_at FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Kind, &it.Unit, &it.Active, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *repository) CreateItem(ctx context.Context, item Item) (Item, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO items (name, unit_kind, unit, active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING id, active, created_at`,
		item.Name, item.Kind, item.Unit).Scan(&item.ID, &item.Active, &item.CreatedAt)
	return item, err
}

func (r *repository) UpdateItem(ctx context.Context, id int64, item Item) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE items SET name = $2, unit_kind = $3, unit = $4 WHERE id = $1`,
		id, item.Name, item.Kind, item.Unit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) DeactivateItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error) {
	limit, offset := pageBounds(filters)
	search := "%" + strings.TrimSpace(filters.Search) + "%"
	role := string(filters.Role)

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM parties
		WHERE name ILIKE $1 AND ($2 = '' OR role = $2 OR role = 'BOTH')`,
		search, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, COALESCE(phone, ''), active, created_at
		FROM parties
		WHERE name ILIKE $1 AND ($2 = '' OR role = $2 OR role = 'BOTH')
		ORDER BY name
		LIMIT $3 OFFSET $4`, search, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.Phone, &p.Active, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		parties = append(parties, p)
	}
	return parties, total, rows.Err()
}

func (r *repository) GetParty(ctx context.Context, id int64) (Party, error) {
	var p Party
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, role, COALESCE(phone, ''), active, created_at FROM parties WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Role, &p.Phone, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrPartyNotFound
	}
	return p, err
}

func (r *repository) CreateParty(ctx context.Context, party Party) (Party, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO parties (name, role, phone, active, created_at)
		VALUES ($1, $2, NULLIF($3, ''), TRUE, NOW())
		RETURNING id, active, created_at`,
		party.Name, party.Role, party.Phone).Scan(&party.ID, &party.Active, &party.CreatedAt)
	return party, err
}

func (r *repository) UpdateParty(ctx context.Context, id int64, party Party) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE parties SET name = $2, role = $3, phone = NULLIF($4, '') WHERE id = $1`,
		id, party.Name, party.Role, party.Phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartyNotFound
	}
	return nil
}

func (r *repository) DeactivateParty(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE parties SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartyNotFound
	}
	return nil
}

func pageBounds(filters ListFilters) (int, int) {
	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
