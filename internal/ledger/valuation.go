package ledger

// Revalue computes the weighted-average cost basis after adding incoming
// stock at a new rate. When both quantities are zero (or cancel out) the
// incoming rate is used as-is, avoiding a division by zero when starting
// from empty stock.
//
// Revalue is applied on purchase-type events only; sales and damage returns
// reduce stock without touching the rate.
func Revalue(existingQty, existingRate, incomingQty, incomingRate float64) float64 {
	total := existingQty + incomingQty
	if total <= 0 {
		return incomingRate
	}
	return (existingQty*existingRate + incomingQty*incomingRate) / total
}
