package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/masterdata"
	"github.com/freshmandi/freshmandi/internal/shared"
)

type fakeLedger struct {
	posted []ledger.SaleInput
}

func (f *fakeLedger) PostSale(_ context.Context, input ledger.SaleInput) (ledger.SalesEntry, error) {
	f.posted = append(f.posted, input)
	return ledger.SalesEntry{ID: int64(len(f.posted)), ItemID: input.ItemID}, nil
}

type fakeRefs struct {
	roleMismatch bool
	countedItem  bool
}

func (f *fakeRefs) RequireItem(context.Context, int64) error { return nil }

func (f *fakeRefs) RequireSeller(context.Context, int64) error {
	if f.roleMismatch {
		return masterdata.ErrRoleMismatch
	}
	return nil
}

func (f *fakeRefs) CheckQuantity(_ context.Context, _ int64, qty float64) error {
	if f.countedItem && qty != float64(int64(qty)) {
		return masterdata.ErrFractionalQuantity
	}
	return nil
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Date:     "2026-03-01",
		SellerID: 2,
		ItemID:   7,
		Lines: []LineRequest{
			{TypeID: 1, Quantity: 10, Rate: 20},
			{TypeID: 2, Quantity: 5, Rate: 25},
		},
		AmountPaid: 50,
	}
}

func TestSubmitMapsLines(t *testing.T) {
	led := &fakeLedger{}
	svc := NewService(led, &fakeRefs{}, nil, nil)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, led.posted, 1)
	require.Len(t, led.posted[0].Lines, 2)
	require.InDelta(t, 25, led.posted[0].Lines[1].Rate, 1e-9)
	require.InDelta(t, 50, led.posted[0].AmountPaid, 1e-9)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeRefs{}, nil, nil)
	ctx := context.Background()

	req := validRequest()
	req.Lines = nil
	_, err := svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validRequest()
	req.Lines[0].Quantity = 0
	_, err = svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validRequest()
	req.AmountPaid = -5
	_, err = svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitRejectsFractionalCountedLine(t *testing.T) {
	led := &fakeLedger{}
	svc := NewService(led, &fakeRefs{countedItem: true}, nil, nil)
	ctx := context.Background()

	req := validRequest()
	req.Lines[1].Quantity = 4.5
	_, err := svc.Submit(ctx, req)
	require.ErrorIs(t, err, masterdata.ErrFractionalQuantity)
	require.Empty(t, led.posted)

	req = validRequest()
	req.QuantityReturned = 1.25
	_, err = svc.Submit(ctx, req)
	require.ErrorIs(t, err, masterdata.ErrFractionalQuantity)
}

func TestSubmitSellerRoleEnforced(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeRefs{roleMismatch: true}, nil, nil)
	_, err := svc.Submit(context.Background(), validRequest())
	require.ErrorIs(t, err, masterdata.ErrRoleMismatch)
}
