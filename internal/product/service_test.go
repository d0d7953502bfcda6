package product

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/listing"
)

type fakeRepo struct {
	products map[int64]Product
	detached []string
}

func newFakeRepo(products ...Product) *fakeRepo {
	r := &fakeRepo{products: map[int64]Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeRepo) List(ctx context.Context, shaped listing.Shaped) ([]Product, int, error) {
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Get(ctx context.Context, ownerID, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.OwnerID != ownerID {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) Update(ctx context.Context, p Product) error {
	stored, ok := r.products[p.ID]
	if !ok || stored.OwnerID != p.OwnerID {
		return ErrNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, ownerID, id int64) error {
	p, ok := r.products[id]
	if !ok || p.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeRepo) Options(ctx context.Context, ownerID int64) ([]Option, error) {
	return nil, nil
}

func (r *fakeRepo) LowStock(ctx context.Context, ownerID int64, threshold int64) ([]LowStockEntry, error) {
	var out []LowStockEntry
	for _, p := range r.products {
		if p.OwnerID == ownerID && p.Quantity < threshold {
			out = append(out, LowStockEntry{ID: p.ID, Name: p.Name, Quantity: p.Quantity})
		}
	}
	return out, nil
}

func (r *fakeRepo) DetachReference(ctx context.Context, tx pgx.Tx, ownerID int64, column string, refID int64) error {
	r.detached = append(r.detached, column)
	for id, p := range r.products {
		if p.OwnerID != ownerID {
			continue
		}
		switch column {
		case "category_id":
			if p.CategoryID != nil && *p.CategoryID == refID {
				p.CategoryID = nil
			}
		case "brand_id":
			if p.BrandID != nil && *p.BrandID == refID {
				p.BrandID = nil
			}
		case "supplier_id":
			if p.SupplierID != nil && *p.SupplierID == refID {
				p.SupplierID = nil
			}
		}
		r.products[id] = p
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestUpdateAppliesPartialEdit(t *testing.T) {
	repo := newFakeRepo(Product{
		ID: 1, OwnerID: 7, SKU: "MUG-1", Name: "Mug",
		PurchasePrice: 2, SellingPrice: 5, Quantity: 10,
	})
	svc := NewService(repo)

	updated, err := svc.Update(context.Background(), 7, 1, UpdateRequest{
		Name:         ptr("Big Mug"),
		SellingPrice: ptr(6.0),
	})
	require.NoError(t, err)

	assert.Equal(t, "Big Mug", updated.Name)
	assert.Equal(t, 6.0, updated.SellingPrice)
	assert.Equal(t, "MUG-1", updated.SKU)
	assert.Equal(t, int64(10), updated.Quantity)
}

func TestUpdateEnforcesPriceInvariant(t *testing.T) {
	repo := newFakeRepo(Product{
		ID: 1, OwnerID: 7, Name: "Mug", PurchasePrice: 2, SellingPrice: 5,
	})
	svc := NewService(repo)

	// lowering the selling price below the purchase price
	_, err := svc.Update(context.Background(), 7, 1, UpdateRequest{SellingPrice: ptr(1.5)})
	require.ErrorIs(t, err, ErrPriceInvariant)

	// raising the purchase price above the selling price
	_, err = svc.Update(context.Background(), 7, 1, UpdateRequest{PurchasePrice: ptr(5.0)})
	require.ErrorIs(t, err, ErrPriceInvariant)

	// the stored row is untouched
	assert.Equal(t, 5.0, repo.products[1].SellingPrice)
	assert.Equal(t, 2.0, repo.products[1].PurchasePrice)
}

func TestUpdateOtherOwnerLooksLikeMissing(t *testing.T) {
	repo := newFakeRepo(Product{ID: 1, OwnerID: 7, Name: "Mug", PurchasePrice: 2, SellingPrice: 5})
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), 8, 1, UpdateRequest{Name: ptr("X")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRequestHasNoQuantityField(t *testing.T) {
	// a client sending quantity must fail strict decoding upstream; the
	// request type itself cannot even carry it
	raw, err := json.Marshal(UpdateRequest{})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "quantity")

	var req UpdateRequest
	dec := json.NewDecoder(strings.NewReader(`{"quantity": 5}`))
	dec.DisallowUnknownFields()
	require.Error(t, dec.Decode(&req))
}

func TestLowStockUsesThreshold(t *testing.T) {
	repo := newFakeRepo(
		Product{ID: 1, OwnerID: 7, Name: "Low", Quantity: 5},
		Product{ID: 2, OwnerID: 7, Name: "Edge", Quantity: 6},
		Product{ID: 3, OwnerID: 7, Name: "High", Quantity: 20},
	)
	svc := NewService(repo)

	entries, err := svc.LowStock(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Low", entries[0].Name)
}
