package masterdata

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Service exposes master data operations plus the referential checks the
// event modules run before posting to the ledger.
type Service interface {
	ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, id int64, item Item) error
	DeactivateItem(ctx context.Context, id int64) error

	ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error)
	GetParty(ctx context.Context, id int64) (Party, error)
	CreateParty(ctx context.Context, party Party) (Party, error)
	UpdateParty(ctx context.Context, id int64, party Party) error
	DeactivateParty(ctx context.Context, id int64) error

	RequireItem(ctx context.Context, itemID int64) error
	RequireParty(ctx context.Context, partyID int64) error
	RequireSupplier(ctx context.Context, partyID int64) error
	RequireSeller(ctx context.Context, partyID int64) error
	CheckQuantity(ctx context.Context, itemID int64, qty float64) error
}

type service struct {
	repo Repository
}

// NewService builds the master data service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	return s.repo.ListItems(ctx, filters)
}

func (s *service) GetItem(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, ErrItemNotFound
	}
	return s.repo.GetItem(ctx, id)
}

func (s *service) CreateItem(ctx context.Context, item Item) (Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Unit = strings.TrimSpace(item.Unit)
	if item.Name == "" {
		return Item{}, ErrNameRequired
	}
	if item.Unit == "" {
		item.Unit = "kg"
	}
	if item.Kind == "" {
		item.Kind = KindWeighed
	}
	if !validKind(item.Kind) {
		return Item{}, ErrInvalidKind
	}
	return s.repo.CreateItem(ctx, item)
}

func (s *service) UpdateItem(ctx context.Context, id int64, item Item) error {
	if id <= 0 {
		return ErrItemNotFound
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return ErrNameRequired
	}
	if !validKind(item.Kind) {
		return ErrInvalidKind
	}
	return s.repo.UpdateItem(ctx, id, item)
}

func (s *service) DeactivateItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrItemNotFound
	}
	return s.repo.DeactivateItem(ctx, id)
}

func (s *service) ListParties(ctx context.Context, filters ListFilters) ([]Party, int, error) {
	return s.repo.ListParties(ctx, filters)
}

func (s *service) GetParty(ctx context.Context, id int64) (Party, error) {
	if id <= 0 {
		return Party{}, ErrPartyNotFound
	}
	return s.repo.GetParty(ctx, id)
}

func (s *service) CreateParty(ctx context.Context, party Party) (Party, error) {
	party.Name = strings.TrimSpace(party.Name)
	if party.Name == "" {
		return Party{}, ErrNameRequired
	}
	if !validRole(party.Role) {
		return Party{}, ErrInvalidRole
	}
	return s.repo.CreateParty(ctx, party)
}

func (s *service) UpdateParty(ctx context.Context, id int64, party Party) error {
	if id <= 0 {
		return ErrPartyNotFound
	}
	party.Name = strings.TrimSpace(party.Name)
	if party.Name == "" {
		return ErrNameRequired
	}
	if !validRole(party.Role) {
		return ErrInvalidRole
	}
	return s.repo.UpdateParty(ctx, id, party)
}

func (s *service) DeactivateParty(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrPartyNotFound
	}
	return s.repo.DeactivateParty(ctx, id)
}

func (s *service) RequireItem(ctx context.Context, itemID int64) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.Active {
		return ErrItemNotFound
	}
	return nil
}

// RequireParty accepts any active party regardless of role.
func (s *service) RequireParty(ctx context.Context, partyID int64) error {
	party, err := s.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	if !party.Active {
		return ErrPartyNotFound
	}
	return nil
}

// CheckQuantity rejects fractional quantities against items counted in whole
// units. Weighed and mixed items accept any positive quantity.
func (s *service) CheckQuantity(ctx context.Context, itemID int64, qty float64) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.Kind.AllowsFraction() && qty != math.Trunc(qty) {
		return fmt.Errorf("%w: %s", ErrFractionalQuantity, item.Name)
	}
	return nil
}

func (s *service) RequireSupplier(ctx context.Context, partyID int64) error {
	return s.requireRole(ctx, partyID, RoleSupplier)
}

func (s *service) RequireSeller(ctx context.Context, partyID int64) error {
	return s.requireRole(ctx, partyID, RoleSeller)
}

func (s *service) requireRole(ctx context.Context, partyID int64, want PartyRole) error {
	party, err := s.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	if !party.Active {
		return ErrPartyNotFound
	}
	if party.Role != want && party.Role != RoleBoth {
		return ErrRoleMismatch
	}
	return nil
}
