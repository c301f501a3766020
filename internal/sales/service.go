package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// LineRequest is one per-variant slice of a sale submission.
type LineRequest struct {
	TypeID   int64   `json:"type_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Rate     float64 `json:"rate" validate:"gte=0"`
}

// SubmitRequest is the sale submission payload.
type SubmitRequest struct {
	Date             string        `json:"date" validate:"required,datetime=2006-01-02"`
	SessionID        int64         `json:"session_id,omitempty"`
	SellerID         int64         `json:"seller_id" validate:"required,gt=0"`
	ItemID           int64         `json:"item_id" validate:"required,gt=0"`
	Lines            []LineRequest `json:"lines" validate:"required,min=1,dive"`
	QuantityReturned float64       `json:"quantity_returned" validate:"gte=0"`
	AmountPaid       float64       `json:"amount_paid" validate:"gte=0"`
	Discount         float64       `json:"discount" validate:"gte=0"`
	IdempotencyKey   string        `json:"idempotency_key,omitempty"`
}

// LedgerPort is the slice of the ledger engine this module posts through.
type LedgerPort interface {
	PostSale(ctx context.Context, input ledger.SaleInput) (ledger.SalesEntry, error)
}

// ReferencePort runs the referential checks before posting. CheckQuantity
// enforces whole-unit quantities for counted items.
type ReferencePort interface {
	RequireItem(ctx context.Context, itemID int64) error
	RequireSeller(ctx context.Context, partyID int64) error
	CheckQuantity(ctx context.Context, itemID int64, qty float64) error
}

// InvalidatorPort drops cached stock reports after a write.
type InvalidatorPort interface {
	InvalidateItem(ctx context.Context, itemID int64)
}

// Service validates and posts sale events.
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

// Submit posts one sale across its line items atomically.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (ledger.SalesEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return ledger.SalesEntry{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ledger.SalesEntry{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := s.refs.RequireItem(ctx, req.ItemID); err != nil {
		return ledger.SalesEntry{}, err
	}
	if err := s.refs.RequireSeller(ctx, req.SellerID); err != nil {
		return ledger.SalesEntry{}, err
	}
	for _, line := range req.Lines {
		if err := s.refs.CheckQuantity(ctx, req.ItemID, line.Quantity); err != nil {
			return ledger.SalesEntry{}, err
		}
	}
	if err := s.refs.CheckQuantity(ctx, req.ItemID, req.QuantityReturned); err != nil {
		return ledger.SalesEntry{}, err
	}

	insertedKey := false
	if s.idempotency != nil && req.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "sales"); err != nil {
			return ledger.SalesEntry{}, err
		}
		insertedKey = true
	}

	lines := make([]ledger.SaleLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, ledger.SaleLineInput{TypeID: line.TypeID, Quantity: line.Quantity, Rate: line.Rate})
	}
	entry, err := s.ledger.PostSale(ctx, ledger.SaleInput{
		Date:             date,
		SessionID:        req.SessionID,
		SellerID:         req.SellerID,
		ItemID:           req.ItemID,
		Lines:            lines,
		QuantityReturned: req.QuantityReturned,
		AmountPaid:       req.AmountPaid,
		Discount:         req.Discount,
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, req.IdempotencyKey)
		}
		return ledger.SalesEntry{}, err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateItem(ctx, req.ItemID)
	}
	return entry, nil
}
