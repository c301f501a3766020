package damage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// SubmitRequest is the damage report payload.
type SubmitRequest struct {
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	SupplierID     int64   `json:"supplier_id" validate:"required,gt=0"`
	ItemID         int64   `json:"item_id" validate:"required,gt=0"`
	TypeID         int64   `json:"type_id" validate:"required,gt=0"`
	DamagedQty     float64 `json:"damaged_qty" validate:"required,gt=0"`
	ReturnedQty    float64 `json:"returned_qty" validate:"gte=0"`
	DiscountAmount float64 `json:"discount_amount" validate:"gte=0"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// LedgerPort is the slice of the ledger engine this module posts through.
type LedgerPort interface {
	PostDamage(ctx context.Context, input ledger.DamageInput) (ledger.DamageEntry, error)
}

// ReferencePort runs the referential checks before posting. CheckQuantity
// enforces whole-unit quantities for counted items.
type ReferencePort interface {
	RequireItem(ctx context.Context, itemID int64) error
	RequireSupplier(ctx context.Context, partyID int64) error
	CheckQuantity(ctx context.Context, itemID int64, qty float64) error
}

// InvalidatorPort drops cached stock reports after a write.
type InvalidatorPort interface {
	InvalidateItem(ctx context.Context, itemID int64)
}

// Service validates and posts damage events.
type Service struct {
	ledger      LedgerPort
	refs        ReferencePort
	idempotency *shared.IdempotencyStore
	invalidator InvalidatorPort
	validate    *validator.Validate
}

// NewService builds Service.
func NewService(ledgerPort LedgerPort, refs ReferencePort, idem *shared.IdempotencyStore, invalidator InvalidatorPort) *Service {
	return &Service{
		ledger:      ledgerPort,
		refs:        refs,
		idempotency: idem,
		invalidator: invalidator,
		validate:    validator.New(),
	}
}

// Submit posts one damage report. The returned-exceeds-damaged check lives in
// the ledger so it holds for every caller.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (ledger.DamageEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return ledger.DamageEntry{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ledger.DamageEntry{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := s.refs.RequireItem(ctx, req.ItemID); err != nil {
		return ledger.DamageEntry{}, err
	}
	if err := s.refs.RequireSupplier(ctx, req.SupplierID); err != nil {
		return ledger.DamageEntry{}, err
	}
	if err := s.refs.CheckQuantity(ctx, req.ItemID, req.DamagedQty); err != nil {
		return ledger.DamageEntry{}, err
	}
	if err := s.refs.CheckQuantity(ctx, req.ItemID, req.ReturnedQty); err != nil {
		return ledger.DamageEntry{}, err
	}

	insertedKey := false
	if s.idempotency != nil && req.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "damage"); err != nil {
			return ledger.DamageEntry{}, err
		}
		insertedKey = true
	}

	entry, err := s.ledger.PostDamage(ctx, ledger.DamageInput{
		Date:           date,
		SupplierID:     req.SupplierID,
		ItemID:         req.ItemID,
		TypeID:         req.TypeID,
		DamagedQty:     req.DamagedQty,
		ReturnedQty:    req.ReturnedQty,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, req.IdempotencyKey)
		}
		return ledger.DamageEntry{}, err
	}
	if s.invalidator != nil && req.ReturnedQty > 0 {
		s.invalidator.InvalidateItem(ctx, req.ItemID)
	}
	return entry, nil
}
