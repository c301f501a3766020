package damage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/shared"
)

type fakeLedger struct {
	posted []ledger.DamageInput
	err    error
}

func (f *fakeLedger) PostDamage(_ context.Context, input ledger.DamageInput) (ledger.DamageEntry, error) {
	if f.err != nil {
		return ledger.DamageEntry{}, f.err
	}
	f.posted = append(f.posted, input)
	return ledger.DamageEntry{ID: int64(len(f.posted))}, nil
}

type okRefs struct{}

func (okRefs) RequireItem(context.Context, int64) error            { return nil }
func (okRefs) RequireSupplier(context.Context, int64) error        { return nil }
func (okRefs) CheckQuantity(context.Context, int64, float64) error { return nil }

type fakeInvalidator struct {
	items []int64
}

func (f *fakeInvalidator) InvalidateItem(_ context.Context, itemID int64) {
	f.items = append(f.items, itemID)
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Date:        "2026-03-01",
		SupplierID:  1,
		ItemID:      4,
		TypeID:      2,
		DamagedQty:  10,
		ReturnedQty: 6,
	}
}

func TestSubmitPostsToLedger(t *testing.T) {
	led := &fakeLedger{}
	svc := NewService(led, okRefs{}, nil, nil)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, led.posted, 1)
	require.InDelta(t, 6, led.posted[0].ReturnedQty, 1e-9)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(&fakeLedger{}, okRefs{}, nil, nil)
	ctx := context.Background()

	req := validRequest()
	req.DamagedQty = 0
	_, err := svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validRequest()
	req.ReturnedQty = -1
	_, err = svc.Submit(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitExcessReturnPropagates(t *testing.T) {
	svc := NewService(&fakeLedger{err: ledger.ErrReturnExceedsDamage}, okRefs{}, nil, nil)
	req := validRequest()
	req.ReturnedQty = 10
	req.DamagedQty = 8

	_, err := svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, ledger.ErrReturnExceedsDamage)
}

func TestNoInvalidationWithoutReturnedLeg(t *testing.T) {
	inv := &fakeInvalidator{}
	svc := NewService(&fakeLedger{}, okRefs{}, nil, inv)

	req := validRequest()
	req.ReturnedQty = 0
	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, inv.items)

	_, err = svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, []int64{4}, inv.items)
}
