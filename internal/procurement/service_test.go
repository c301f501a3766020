package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/masterdata"
	"github.com/freshmandi/freshmandi/internal/shared"
)

type fakeLedger struct {
	posted []ledger.ProcurementInput
	err    error
}

func (f *fakeLedger) PostProcurement(_ context.Context, input ledger.ProcurementInput) (ledger.ProcurementEntry, error) {
	if f.err != nil {
		return ledger.ProcurementEntry{}, f.err
	}
	f.posted = append(f.posted, input)
	return ledger.ProcurementEntry{ID: int64(len(f.posted)), ItemID: input.ItemID}, nil
}

type fakeRefs struct {
	missingItem     bool
	missingSupplier bool
	countedItem     bool
}

func (f *fakeRefs) RequireItem(context.Context, int64) error {
	if f.missingItem {
		return masterdata.ErrItemNotFound
	}
	return nil
}

func (f *fakeRefs) RequireSupplier(context.Context, int64) error {
	if f.missingSupplier {
		return masterdata.ErrPartyNotFound
	}
	return nil
}

func (f *fakeRefs) CheckQuantity(_ context.Context, _ int64, qty float64) error {
	if f.countedItem && qty != float64(int64(qty)) {
		return masterdata.ErrFractionalQuantity
	}
	return nil
}

type fakeInvalidator struct {
	items []int64
}

func (f *fakeInvalidator) InvalidateItem(_ context.Context, itemID int64) {
	f.items = append(f.items, itemID)
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Date:       "2026-03-01",
		SupplierID: 1,
		ItemID:     7,
		Type:       "desi",
		Quantity:   10,
		Rate:       5,
	}
}

func TestSubmitPostsToLedger(t *testing.T) {
	led := &fakeLedger{}
	inv := &fakeInvalidator{}
	svc := NewService(led, &fakeRefs{}, nil, inv)

	entry, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, int64(7), entry.ItemID)
	require.Len(t, led.posted, 1)
	require.Equal(t, "desi", led.posted[0].TypeLabel)
	require.Equal(t, []int64{7}, inv.items)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeRefs{}, nil, nil)
	ctx := context.Background()

	req := validRequest()
	req.Date = "01-03-2026"
	_, err := svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validRequest()
	req.Quantity = 0
	_, err = svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validRequest()
	req.Rate = -1
	_, err = svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitReferentialChecks(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&fakeLedger{}, &fakeRefs{missingItem: true}, nil, nil)
	_, err := svc.Submit(ctx, validRequest())
	require.ErrorIs(t, err, masterdata.ErrItemNotFound)

	svc = NewService(&fakeLedger{}, &fakeRefs{missingSupplier: true}, nil, nil)
	_, err = svc.Submit(ctx, validRequest())
	require.ErrorIs(t, err, masterdata.ErrPartyNotFound)
}

func TestSubmitRejectsFractionalCountedQuantity(t *testing.T) {
	led := &fakeLedger{}
	svc := NewService(led, &fakeRefs{countedItem: true}, nil, nil)
	ctx := context.Background()

	req := validRequest()
	req.Quantity = 2.5
	_, err := svc.Submit(ctx, req)
	require.ErrorIs(t, err, masterdata.ErrFractionalQuantity)
	require.Empty(t, led.posted)

	req.Quantity = 3
	_, err = svc.Submit(ctx, req)
	require.NoError(t, err)
}

func TestSubmitLedgerFailureDoesNotInvalidate(t *testing.T) {
	inv := &fakeInvalidator{}
	svc := NewService(&fakeLedger{err: ledger.ErrSessionNotOpen}, &fakeRefs{}, nil, inv)

	_, err := svc.Submit(context.Background(), validRequest())
	require.ErrorIs(t, err, ledger.ErrSessionNotOpen)
	require.Empty(t, inv.items)
}
