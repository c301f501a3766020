package ledger

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EventKind enumerates the business events the engine applies.
type EventKind string

const (
	// EventProcurement is a purchase from a supplier.
	EventProcurement EventKind = "PROCUREMENT"
	// EventSale is a sale to a seller, possibly spanning several variants.
	EventSale EventKind = "SALE"
	// EventDamage is a damage write-off with an optional returned leg.
	EventDamage EventKind = "DAMAGE"
	// EventPayment settles part of an outstanding balance.
	EventPayment EventKind = "PAYMENT"
)

// ItemType is a lazily created (item, variant label) pair. It is created on
// first procurement of a new variant and its last-seen date refreshed on every
// subsequent one.
type ItemType struct {
	ID        int64
	ItemID    int64
	Label     string
	FirstSeen time.Time
	LastSeen  time.Time
	Active    bool
}

// CurrentInventory is the single real-time source of truth for what can be
// sold right now, one row per (item, type).
type CurrentInventory struct {
	ItemID          int64
	TypeID          int64
	Stock           float64
	WeightedAvgRate float64
	UpdatedOn       time.Time
}

// DailySnapshot is the dated historical record per (date, item, type).
// ClosingStock always equals max(0, opening + purchased - sold).
type DailySnapshot struct {
	ID              int64
	Date            time.Time
	ItemID          int64
	TypeID          int64
	OpeningStock    float64
	PurchasedToday  float64
	SoldToday       float64
	ClosingStock    float64
	AvgPurchaseRate float64
}

// OutstandingBalance is the running payable/receivable per (party, item).
// PaymentDue and QuantityDue are stored signed; over-payment or over-return
// drives them negative and sets Flagged for manual review. Reports clamp at
// the display boundary via ClampDue.
type OutstandingBalance struct {
	PartyID     int64
	ItemID      int64
	PaymentDue  float64
	QuantityDue float64
	Flagged     bool
	UpdatedOn   time.Time
}

// OpeningBalance supplies the balance to use before any OutstandingBalance
// row exists for the key. Edits do not retroactively patch history; a replay
// re-derives the outstanding row instead.
type OpeningBalance struct {
	PartyID     int64
	ItemID      int64
	PaymentDue  float64
	QuantityDue float64
	SetOn       time.Time
}

// ProcurementEntry is the append-only record of a purchase from a supplier.
type ProcurementEntry struct {
	ID         int64
	Ref        string
	Date       time.Time
	SessionID  int64
	SupplierID int64
	ItemID     int64
	TypeID     int64
	Quantity   float64
	Rate       float64
	Amount     float64
	CreatedAt  time.Time
}

// SalesEntry is the append-only record of a sale. The final outstanding
// figures are of-record, point-in-time statements stored verbatim even when
// negative; the OutstandingBalance aggregate is the running total.
type SalesEntry struct {
	ID                       int64
	Ref                      string
	Date                     time.Time
	SessionID                int64
	SellerID                 int64
	ItemID                   int64
	Total                    float64
	TotalQuantity            float64
	AmountPaid               float64
	Discount                 float64
	QuantityReturned         float64
	FinalPaymentOutstanding  float64
	FinalQuantityOutstanding float64
	Lines                    []SalesLineItem
	CreatedAt                time.Time
}

// SalesLineItem is a per-variant slice of a sale, each independently
// affecting inventory.
type SalesLineItem struct {
	ID       int64
	EntryID  int64
	TypeID   int64
	Quantity float64
	Rate     float64
	Amount   float64
}

// DamageEntry records damaged goods reported against a supplier. Only the
// returned portion touches inventory.
type DamageEntry struct {
	ID             int64
	Ref            string
	Date           time.Time
	SupplierID     int64
	ItemID         int64
	TypeID         int64
	DamagedQty     float64
	ReturnedQty    float64
	DiscountAmount float64
	CreatedAt      time.Time
}

// Payment settles amount and/or returned quantity against a party balance.
type Payment struct {
	ID               int64
	Ref              string
	Date             time.Time
	PartyID          int64
	ItemID           int64
	AmountApplied    float64
	QuantityReturned float64
	Notes            string
	CreatedAt        time.Time
}

// LedgerEvent is the flattened, date-ordered view of any event affecting a
// (party, item) balance. PaymentDelta and QuantityDelta carry the signed
// contribution of the event to the outstanding balance.
type LedgerEvent struct {
	Date          time.Time
	Kind          EventKind
	Ref           string
	Quantity      float64
	Amount        float64
	PaymentDelta  float64
	QuantityDelta float64
}

// Validation errors, rejected before any write.
var (
	ErrInvalidDate         = errors.New("ledger: business date required")
	ErrInvalidQuantity     = errors.New("ledger: quantity must be positive")
	ErrInvalidRate         = errors.New("ledger: rate must be >= 0")
	ErrInvalidAmount       = errors.New("ledger: amount must be >= 0")
	ErrNoLineItems         = errors.New("ledger: at least one line item required")
	ErrReturnExceedsDamage = errors.New("ledger: returned quantity exceeds damaged quantity")
	ErrEmptyPayment        = errors.New("ledger: payment must apply an amount or a returned quantity")
	ErrTypeLabelRequired   = errors.New("ledger: variant label required")
	// ErrItemTypeMismatch rejects an event citing a variant that belongs to a
	// different item; accepting it would mutate aggregates under a key no
	// procurement ever established.
	ErrItemTypeMismatch = errors.New("ledger: item type belongs to a different item")
)

// Repository sentinels.
var (
	ErrCurrentNotFound     = errors.New("ledger: current inventory not found")
	ErrSnapshotNotFound    = errors.New("ledger: daily snapshot not found")
	ErrOutstandingNotFound = errors.New("ledger: outstanding balance not found")
	ErrOpeningNotFound     = errors.New("ledger: opening balance not found")
	ErrItemTypeNotFound    = errors.New("ledger: item type not found")
	ErrSessionNotOpen      = errors.New("ledger: trading session not open")
)

// DateOnly truncates a timestamp to its UTC calendar day. All aggregate keys
// are day-scoped.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

var labelCaser = cases.Title(language.Und)

// NormalizeTypeLabel canonicalizes a free-text variant label so that casing
// and stray whitespace do not create duplicate ItemType rows.
func NormalizeTypeLabel(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return labelCaser.String(strings.Join(fields, " "))
}
