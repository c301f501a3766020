package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	Repository
	items   map[int64]Item
	parties map[int64]Party
	nextID  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[int64]Item{}, parties: map[int64]Party{}}
}

func (r *fakeRepo) GetItem(_ context.Context, id int64) (Item, error) {
	if it, ok := r.items[id]; ok {
		return it, nil
	}
	return Item{}, ErrItemNotFound
}

func (r *fakeRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	r.nextID++
	item.ID = r.nextID
	item.Active = true
	r.items[item.ID] = item
	return item, nil
}

func (r *fakeRepo) GetParty(_ context.Context, id int64) (Party, error) {
	if p, ok := r.parties[id]; ok {
		return p, nil
	}
	return Party{}, ErrPartyNotFound
}

func (r *fakeRepo) CreateParty(_ context.Context, party Party) (Party, error) {
	r.nextID++
	party.ID = r.nextID
	party.Active = true
	r.parties[party.ID] = party
	return party, nil
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, Item{Name: "   "})
	require.ErrorIs(t, err, ErrNameRequired)

	item, err := svc.CreateItem(ctx, Item{Name: " Onion "})
	require.NoError(t, err)
	require.Equal(t, "Onion", item.Name)
	require.Equal(t, "kg", item.Unit)
	require.Equal(t, KindWeighed, item.Kind)

	_, err = svc.CreateItem(ctx, Item{Name: "Crate", Kind: "PIECES"})
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestCheckQuantityByUnitKind(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	counted, err := svc.CreateItem(ctx, Item{Name: "Cauliflower", Kind: KindCounted, Unit: "pc"})
	require.NoError(t, err)
	weighed, err := svc.CreateItem(ctx, Item{Name: "Tomato"})
	require.NoError(t, err)

	require.NoError(t, svc.CheckQuantity(ctx, counted.ID, 12))
	require.ErrorIs(t, svc.CheckQuantity(ctx, counted.ID, 12.5), ErrFractionalQuantity)
	require.NoError(t, svc.CheckQuantity(ctx, weighed.ID, 12.5))
	require.ErrorIs(t, svc.CheckQuantity(ctx, 999, 1), ErrItemNotFound)
}

func TestCreatePartyValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.CreateParty(ctx, Party{Name: "Ramu", Role: "TRADER"})
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.CreateParty(ctx, Party{Name: "", Role: RoleSupplier})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestRequireRoleChecks(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	supplier, err := svc.CreateParty(ctx, Party{Name: "Supplier", Role: RoleSupplier})
	require.NoError(t, err)
	seller, err := svc.CreateParty(ctx, Party{Name: "Seller", Role: RoleSeller})
	require.NoError(t, err)
	both, err := svc.CreateParty(ctx, Party{Name: "Both", Role: RoleBoth})
	require.NoError(t, err)

	require.NoError(t, svc.RequireSupplier(ctx, supplier.ID))
	require.ErrorIs(t, svc.RequireSupplier(ctx, seller.ID), ErrRoleMismatch)
	require.NoError(t, svc.RequireSupplier(ctx, both.ID))
	require.NoError(t, svc.RequireSeller(ctx, both.ID))
	require.ErrorIs(t, svc.RequireSeller(ctx, 999), ErrPartyNotFound)

	// Inactive parties fail referential checks even with the right role.
	p := repo.parties[supplier.ID]
	p.Active = false
	repo.parties[supplier.ID] = p
	require.ErrorIs(t, svc.RequireSupplier(ctx, supplier.ID), ErrPartyNotFound)
}
