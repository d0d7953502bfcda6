package product

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/stocklane/stocklane/internal/listing"
	"github.com/stocklane/stocklane/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	List(ctx context.Context, shaped listing.Shaped) ([]Product, int, error)
	Get(ctx context.Context, ownerID, id int64) (Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, ownerID, id int64) error
	Options(ctx context.Context, ownerID int64) ([]Option, error)
	LowStock(ctx context.Context, ownerID int64, threshold int64) ([]LowStockEntry, error)
	DetachReference(ctx context.Context, tx pgx.Tx, ownerID int64, column string, refID int64) error
}

// Service coordinates product registry operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns one page of products with pagination metadata.
func (s *Service) List(ctx context.Context, ownerID int64, params listing.Params) ([]Product, shared.Pagination, error) {
	shaped := listing.Shape(ownerID, params, ListSpec)
	products, total, err := s.repo.List(ctx, shaped)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(shaped.Page, shaped.Limit, total), nil
}

// Get loads one product.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (Product, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// Update applies the editable attributes to one product. The selling price
// must stay above the purchase price after the edit.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req UpdateRequest) (Product, error) {
	p, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Product{}, err
	}

	if req.SKU != nil {
		p.SKU = *req.SKU
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		p.SellingPrice = *req.SellingPrice
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.BrandID != nil {
		p.BrandID = req.BrandID
	}
	if req.SupplierID != nil {
		p.SupplierID = req.SupplierID
	}

	if p.SellingPrice <= p.PurchasePrice {
		return Product{}, ErrPriceInvariant
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Delete removes one product.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Options lists the product projection used by form selects.
func (s *Service) Options(ctx context.Context, ownerID int64) ([]Option, error) {
	return s.repo.Options(ctx, ownerID)
}

// LowStock lists products below the low stock threshold.
func (s *Service) LowStock(ctx context.Context, ownerID int64) ([]LowStockEntry, error) {
	return s.repo.LowStock(ctx, ownerID, LowStockThreshold)
}

// DetachReference clears a catalog reference on the owner's products. Used
// by the reference catalog's explicit delete cascade, sharing the cascade's
// transaction.
func (s *Service) DetachReference(ctx context.Context, tx pgx.Tx, ownerID int64, column string, refID int64) error {
	return s.repo.DetachReference(ctx, tx, ownerID, column, refID)
}
