package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRevalue(t *testing.T) {
	// First purchase into empty stock takes the incoming rate verbatim.
	require.InDelta(t, 7, Revalue(0, 0, 10, 7), 1e-9)

	// 10@5 then 10@7 averages to 6.
	require.InDelta(t, 6, Revalue(10, 5, 10, 7), 1e-9)

	// Uneven quantities weight the average toward the larger lot.
	require.InDelta(t, (30*4.0+10*8.0)/40.0, Revalue(30, 4, 10, 8), 1e-9)

	// Zero incoming quantity leaves the basis untouched.
	require.InDelta(t, 5, Revalue(10, 5, 0, 99), 1e-9)

	// A non-positive total falls back to the incoming rate instead of
	// dividing by zero.
	require.InDelta(t, 12, Revalue(-5, 5, 5, 12), 1e-9)
}
