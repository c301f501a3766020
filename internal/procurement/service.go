package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// SubmitRequest is the procurement submission payload.
type SubmitRequest struct {
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	SessionID      int64   `json:"session_id,omitempty"`
	SupplierID     int64   `json:"supplier_id" validate:"required,gt=0"`
	ItemID         int64   `json:"item_id" validate:"required,gt=0"`
	Type           string  `json:"type" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"required,gt=0"`
	Rate           float64 `json:"rate" validate:"gte=0"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// LedgerPort is the slice of the ledger engine this module posts through.
type LedgerPort interface {
	PostProcurement(ctx context.Context, input ledger.ProcurementInput) (ledger.ProcurementEntry, error)
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

// Service validates and posts procurement events.
type Service struct {
	ledger      LedgerPort
	refs        ReferencePort
	idempotency *shared.IdempotencyStore
	invalidator InvalidatorPort
	validate    *validator.Validate
}

// NewService builds Service. idempotency and invalidator may be nil.
func NewService(ledgerPort LedgerPort, refs ReferencePort, idem *shared.IdempotencyStore, invalidator InvalidatorPort) *Service {
	return &Service{
		ledger:      ledgerPort,
		refs:        refs,
		idempotency: idem,
		invalidator: invalidator,
		validate:    validator.New(),
	}
}

// Submit posts one procurement. The ledger applies all aggregate effects in a
// single transaction; this layer only guards references and duplicates.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (ledger.ProcurementEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return ledger.ProcurementEntry{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ledger.ProcurementEntry{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := s.refs.RequireItem(ctx, req.ItemID); err != nil {
		return ledger.ProcurementEntry{}, err
	}
	if err := s.refs.RequireSupplier(ctx, req.SupplierID); err != nil {
		return ledger.ProcurementEntry{}, err
	}
	if err := s.refs.CheckQuantity(ctx, req.ItemID, req.Quantity); err != nil {
		return ledger.ProcurementEntry{}, err
	}

	insertedKey := false
	if s.idempotency != nil && req.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "procurement"); err != nil {
			return ledger.ProcurementEntry{}, err
		}
		insertedKey = true
	}

	entry, err := s.ledger.PostProcurement(ctx, ledger.ProcurementInput{
		Date:       date,
		SessionID:  req.SessionID,
		SupplierID: req.SupplierID,
		ItemID:     req.ItemID,
		TypeLabel:  req.Type,
		Quantity:   req.Quantity,
		Rate:       req.Rate,
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, req.IdempotencyKey)
		}
		return ledger.ProcurementEntry{}, err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateItem(ctx, req.ItemID)
	}
	return entry, nil
}
