package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDelta(t *testing.T) {
	change := ApplyDelta(100, 5, 150, 8)
	require.InDelta(t, 250, change.PaymentDue, 1e-9)
	require.InDelta(t, 13, change.QuantityDue, 1e-9)
	require.False(t, change.Crossed)

	// A zero delta is a no-op.
	change = ApplyDelta(100, 5, 0, 0)
	require.InDelta(t, 100, change.PaymentDue, 1e-9)
	require.InDelta(t, 5, change.QuantityDue, 1e-9)
	require.False(t, change.Crossed)
}

func TestApplyDeltaCrossing(t *testing.T) {
	// Over-payment: non-negative balance driven below zero.
	change := ApplyDelta(50, 0, -80, 0)
	require.InDelta(t, -30, change.PaymentDue, 1e-9)
	require.True(t, change.Crossed)

	// Over-return crosses on the quantity axis alone.
	change = ApplyDelta(0, 3, 0, -5)
	require.InDelta(t, -2, change.QuantityDue, 1e-9)
	require.True(t, change.Crossed)

	// Already-negative balances going further negative are not a new
	// crossing.
	change = ApplyDelta(-30, 0, -10, 0)
	require.InDelta(t, -40, change.PaymentDue, 1e-9)
	require.False(t, change.Crossed)

	// Recovering from negative back to positive is not a crossing either.
	change = ApplyDelta(-30, 0, 100, 0)
	require.InDelta(t, 70, change.PaymentDue, 1e-9)
	require.False(t, change.Crossed)
}

func TestClampDue(t *testing.T) {
	require.InDelta(t, 40, ClampDue(40), 1e-9)
	require.InDelta(t, 0, ClampDue(0), 1e-9)
	require.InDelta(t, 0, ClampDue(-12.5), 1e-9)
}
