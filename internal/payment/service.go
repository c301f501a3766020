package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// SubmitRequest is the payment payload. At least one of amount_applied and
// quantity_returned must be positive; the ledger enforces it.
type SubmitRequest struct {
	Date             string  `json:"date" validate:"required,datetime=2006-01-02"`
	PartyID          int64   `json:"party_id" validate:"required,gt=0"`
	ItemID           int64   `json:"item_id" validate:"required,gt=0"`
	AmountApplied    float64 `json:"amount_applied" validate:"gte=0"`
	QuantityReturned float64 `json:"quantity_returned" validate:"gte=0"`
	Notes            string  `json:"notes,omitempty"`
	IdempotencyKey   string  `json:"idempotency_key,omitempty"`
}

// LedgerPort is the slice of the ledger engine this module posts through.
type LedgerPort interface {
	PostPayment(ctx context.Context, input ledger.PaymentInput) (ledger.Payment, error)
}

// ReferencePort runs the referential checks before posting. Payments settle
// either side of the ledger, so any active party qualifies. CheckQuantity
// enforces whole-unit quantities for counted items.
type ReferencePort interface {
	RequireItem(ctx context.Context, itemID int64) error
	RequireParty(ctx context.Context, partyID int64) error
	CheckQuantity(ctx context.Context, itemID int64, qty float64) error
}

// Service validates and posts payment events.
type Service struct {
	ledger      LedgerPort
	refs        ReferencePort
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
}

// NewService builds Service.
func NewService(ledgerPort LedgerPort, refs ReferencePort, idem *shared.IdempotencyStore) *Service {
	return &Service{
		ledger:      ledgerPort,
		refs:        refs,
		idempotency: idem,
		validate:    validator.New(),
	}
}

// Submit posts one payment.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (ledger.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return ledger.Payment{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := s.refs.RequireItem(ctx, req.ItemID); err != nil {
		return ledger.Payment{}, err
	}
	if err := s.refs.RequireParty(ctx, req.PartyID); err != nil {
		return ledger.Payment{}, err
	}
	if req.QuantityReturned > 0 {
		if err := s.refs.CheckQuantity(ctx, req.ItemID, req.QuantityReturned); err != nil {
			return ledger.Payment{}, err
		}
	}

	insertedKey := false
	if s.idempotency != nil && req.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "payment"); err != nil {
			return ledger.Payment{}, err
		}
		insertedKey = true
	}

	payment, err := s.ledger.PostPayment(ctx, ledger.PaymentInput{
		Date:             date,
		PartyID:          req.PartyID,
		ItemID:           req.ItemID,
		AmountApplied:    req.AmountApplied,
		QuantityReturned: req.QuantityReturned,
		Notes:            req.Notes,
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, req.IdempotencyKey)
		}
		return ledger.Payment{}, err
	}
	return payment, nil
}
