// Package ledger is the transactional core of the system. It validates and
// executes every stock quantity change, and persists the originating sale or
// expense event as an immutable record for audit and analytics.
package ledger

import (
	"fmt"
	"time"

	"github.com/stocklane/stocklane/internal/platform/httpx"
)

// SaleStatus enumerates payment states of a sale.
type SaleStatus string

const (
	// SaleStatusUnpaid is the initial state of every sale.
	SaleStatusUnpaid SaleStatus = "UNPAID"
	// SaleStatusPaid is terminal. Only paid sales count as revenue.
	SaleStatusPaid SaleStatus = "PAID"
)

// SaleEvent records one sale. Immutable once created except for the
// UNPAID→PAID transition.
type SaleEvent struct {
	ID        int64      `json:"id"`
	Date      time.Time  `json:"date"`
	BuyerName string     `json:"buyerName"`
	Status    SaleStatus `json:"status"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
	Total     float64    `json:"total"`
	Lines     []SaleLine `json:"products"`
	OwnerID   int64      `json:"-"`
}

// SaleLine is one line item of a sale. Name and selling price are snapshots
// taken at validation time; they never track later product edits.
type SaleLine struct {
	ProductID    int64   `json:"productId"`
	Name         string  `json:"name"`
	Quantity     int64   `json:"quantity"`
	SellingPrice float64 `json:"sellingPrice"`
}

// ExpenseEvent records one purchase. Immutable once created.
type ExpenseEvent struct {
	ID          int64         `json:"id"`
	Date        time.Time     `json:"date"`
	Amount      float64       `json:"amount"`
	Description string        `json:"description"`
	Lines       []ExpenseLine `json:"products"`
	OwnerID     int64         `json:"-"`
}

// ExpenseLine is one line item of an expense, with the purchase price
// snapshotted at validation time.
type ExpenseLine struct {
	ProductID     int64   `json:"productId"`
	Name          string  `json:"name"`
	Quantity      int64   `json:"quantity"`
	PurchasePrice float64 `json:"purchasePrice"`
}

// StockItem is the ledger's view of a product row while validating a write.
type StockItem struct {
	ID            int64
	Name          string
	Quantity      int64
	PurchasePrice float64
	SellingPrice  float64
}

// CreateSaleRequest describes a multi-line sale.
type CreateSaleRequest struct {
	BuyerName string            `json:"buyerName" validate:"required,max=100"`
	Date      *time.Time        `json:"date,omitempty"`
	Lines     []SaleLineRequest `json:"products" validate:"required,min=1,dive"`
}

// SaleLineRequest is one requested sale line.
type SaleLineRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gte=1"`
}

// NewProductSpec describes a brand-new product created together with its
// first stock.
type NewProductSpec struct {
	SKU           string  `json:"sku" validate:"required,max=100"`
	Name          string  `json:"name" validate:"required,max=100"`
	PurchasePrice float64 `json:"purchasePrice" validate:"required,gt=0"`
	SellingPrice  float64 `json:"sellingPrice" validate:"required,gt=0"`
	CategoryID    int64   `json:"categoryId" validate:"required,gt=0"`
	BrandID       int64   `json:"brandId" validate:"required,gt=0"`
	SupplierID    int64   `json:"supplierId" validate:"required,gt=0"`
}

// CreatePurchaseRequest restocks an existing product or creates a new one
// with its first stock. Exactly one of ProductID and NewProduct must be set.
// The expense amount is always computed from the product's current purchase
// price, never from a client-supplied figure.
type CreatePurchaseRequest struct {
	ProductID   *int64          `json:"productId,omitempty" validate:"omitempty,gt=0"`
	NewProduct  *NewProductSpec `json:"newProduct,omitempty"`
	Quantity    int64           `json:"quantity" validate:"required,gte=1"`
	Date        *time.Time      `json:"date,omitempty"`
	Description string          `json:"description,omitempty" validate:"max=255"`
}

// UpdateSaleStatusRequest carries the payment transition.
type UpdateSaleStatusRequest struct {
	Status SaleStatus `json:"status" validate:"required,oneof=PAID UNPAID"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

var (
	// ErrSaleNotFound indicates the sale does not exist for the owner.
	ErrSaleNotFound = fmt.Errorf("ledger: sale %w", httpx.ErrNotFound)
	// ErrExpenseNotFound indicates the expense does not exist for the owner.
	ErrExpenseNotFound = fmt.Errorf("ledger: expense %w", httpx.ErrNotFound)
	// ErrIllegalTransition rejects a PAID→UNPAID status change; revenue
	// recognition is monotonic.
	ErrIllegalTransition = fmt.Errorf("ledger: a paid sale cannot be reverted: %w", httpx.ErrValidation)
	// ErrPurchaseShape rejects a purchase naming both or neither of an
	// existing product and a new product spec.
	ErrPurchaseShape = fmt.Errorf("ledger: purchase must name exactly one of productId or newProduct: %w", httpx.ErrValidation)
	// ErrDuplicateProduct indicates the new product collides on sku or name.
	ErrDuplicateProduct = fmt.Errorf("ledger: sku or name already in use: %w", httpx.ErrDuplicate)
	// ErrPriceInvariant indicates selling price not above purchase price.
	ErrPriceInvariant = fmt.Errorf("ledger: selling price must exceed purchase price: %w", httpx.ErrValidation)
)

// ProductNotFoundError names the sale or purchase line whose product could
// not be resolved for the owner.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("ledger: product %d not found", e.ProductID)
}

// Unwrap maps the error onto the shared not-found sentinel.
func (e *ProductNotFoundError) Unwrap() error { return httpx.ErrNotFound }

// StockError names the product whose available quantity cannot cover the
// requested quantity.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int64
	Available   int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// Unwrap maps the error onto the shared insufficient-stock sentinel.
func (e *StockError) Unwrap() error { return httpx.ErrInsufficientStock }
