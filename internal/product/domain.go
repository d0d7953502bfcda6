// Package product implements the product registry: the current quantity and
// pricing of each stock keeping unit. Quantity is ledger-managed and is never
// written through this package's operations.
package product

import (
	"fmt"

	"github.com/stocklane/stocklane/internal/platform/httpx"
)

// Product is one stock keeping unit owned by a single account.
type Product struct {
	ID            int64   `json:"id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	PurchasePrice float64 `json:"purchasePrice"`
	SellingPrice  float64 `json:"sellingPrice"`
	Quantity      int64   `json:"quantity"`
	CategoryID    *int64  `json:"categoryId"`
	BrandID       *int64  `json:"brandId"`
	SupplierID    *int64  `json:"supplierId"`
	OwnerID       int64   `json:"-"`
}

// UpdateRequest carries the editable product attributes. Quantity is absent
// on purpose: stock moves only through the ledger.
type UpdateRequest struct {
	SKU           *string  `json:"sku,omitempty" validate:"omitempty,max=100"`
	Name          *string  `json:"name,omitempty" validate:"omitempty,max=100"`
	PurchasePrice *float64 `json:"purchasePrice,omitempty" validate:"omitempty,gt=0"`
	SellingPrice  *float64 `json:"sellingPrice,omitempty" validate:"omitempty,gt=0"`
	CategoryID    *int64   `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	BrandID       *int64   `json:"brandId,omitempty" validate:"omitempty,gt=0"`
	SupplierID    *int64   `json:"supplierId,omitempty" validate:"omitempty,gt=0"`
}

// Option is the trimmed projection served to form selects.
type Option struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	SellingPrice  float64 `json:"sellingPrice"`
	PurchasePrice float64 `json:"purchasePrice"`
	Quantity      int64   `json:"quantity"`
}

// LowStockEntry names a product whose quantity fell below the threshold.
type LowStockEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// LowStockThreshold is the quantity below which a product is reported by the
// low stock listing.
const LowStockThreshold = 6

var (
	// ErrNotFound indicates the product does not exist for the owner.
	ErrNotFound = fmt.Errorf("product: %w", httpx.ErrNotFound)
	// ErrDuplicate indicates an (owner, sku) or (owner, name) collision.
	ErrDuplicate = fmt.Errorf("product: sku or name already in use: %w", httpx.ErrDuplicate)
	// ErrPriceInvariant indicates selling price not above purchase price.
	ErrPriceInvariant = fmt.Errorf("product: selling price must exceed purchase price: %w", httpx.ErrValidation)
)
