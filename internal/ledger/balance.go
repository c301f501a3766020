package ledger

// BalanceChange is the signed result of applying an event delta to an
// outstanding balance.
type BalanceChange struct {
	PaymentDue  float64
	QuantityDue float64
	// Crossed reports that a non-negative balance went below zero, i.e. an
	// over-payment or over-return was absorbed. Such rows are flagged for
	// manual review rather than silently clamped.
	Crossed bool
}

// ApplyDelta adds a signed delta to the prior balances. Balances are kept
// signed in storage; clamping happens only at the read boundary (ClampDue),
// so the true running total stays available for reconciliation.
func ApplyDelta(priorPaymentDue, priorQuantityDue, paymentDelta, quantityDelta float64) BalanceChange {
	newPayment := priorPaymentDue + paymentDelta
	newQuantity := priorQuantityDue + quantityDelta
	crossed := (priorPaymentDue >= 0 && newPayment < 0) || (priorQuantityDue >= 0 && newQuantity < 0)
	return BalanceChange{PaymentDue: newPayment, QuantityDue: newQuantity, Crossed: crossed}
}

// ClampDue is the display-boundary view of a signed balance: conceptually a
// balance owed cannot be negative, so reports floor it at zero.
func ClampDue(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
