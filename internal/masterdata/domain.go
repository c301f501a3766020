package masterdata

import (
	"errors"
	"time"
)

// PartyRole restricts which side of the ledger a party may appear on.
type PartyRole string

const (
	// RoleSupplier sells goods into the mandi (procurement, damage).
	RoleSupplier PartyRole = "SUPPLIER"
	// RoleSeller buys goods out of the mandi (sales).
	RoleSeller PartyRole = "SELLER"
	// RoleBoth may appear on either side.
	RoleBoth PartyRole = "BOTH"
)

// UnitKind says how an item's quantity is measured. Counted items trade in
// whole pieces; weighed items allow fractional quantities.
type UnitKind string

const (
	// KindCounted items are integral pieces (cauliflower heads, crates).
	KindCounted UnitKind = "COUNTED"
	// KindWeighed items are measured by weight and may be fractional.
	KindWeighed UnitKind = "WEIGHED"
	// KindMixed items trade both ways; no integral restriction applies.
	KindMixed UnitKind = "MIXED"
)

// AllowsFraction reports whether quantities of this kind may be fractional.
func (k UnitKind) AllowsFraction() bool {
	return k != KindCounted
}

// Item is a traded commodity (onion, potato, tomato). Variants of an item are
// tracked per-ledger as item types, created lazily on first procurement.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      UnitKind  `json:"kind"`
	Unit      string    `json:"unit"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Party is a supplier or seller the mandi trades with.
type Party struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      PartyRole `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search string
	Role   PartyRole
	Limit  int
	Offset int
}

var (
	ErrItemNotFound  = errors.New("masterdata: item not found")
	ErrPartyNotFound = errors.New("masterdata: party not found")
	ErrNameRequired  = errors.New("masterdata: name required")
	ErrInvalidRole   = errors.New("masterdata: invalid party role")
	ErrInvalidKind   = errors.New("masterdata: invalid unit kind")
	// ErrFractionalQuantity rejects a fractional quantity against an item
	// counted in whole units.
	ErrFractionalQuantity = errors.New("masterdata: item is counted in whole units")
	// ErrRoleMismatch rejects using a party on the wrong side of the ledger,
	// e.g. recording a sale against a pure supplier.
	ErrRoleMismatch = errors.New("masterdata: party role does not permit this operation")
)

func validRole(role PartyRole) bool {
	switch role {
	case RoleSupplier, RoleSeller, RoleBoth:
		return true
	}
	return false
}

func validKind(kind UnitKind) bool {
	switch kind {
	case KindCounted, KindWeighed, KindMixed:
		return true
	}
	return false
}
