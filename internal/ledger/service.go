package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/listing"
	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, ownerID, id int64) (SaleEvent, error)
	ListSales(ctx context.Context, shaped listing.Shaped) ([]SaleEvent, int, error)
	MarkSalePaid(ctx context.Context, ownerID, id int64, paidAt time.Time) (bool, error)
	GetExpense(ctx context.Context, ownerID, id int64) (ExpenseEvent, error)
	ListExpenses(ctx context.Context, shaped listing.Shaped) ([]ExpenseEvent, int, error)
}

// CacheInvalidator lets ledger writes invalidate derived dashboard snapshots.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// StockNotifier is told which products changed quantity so follow-up work
// (low stock scanning) can be scheduled outside the request.
type StockNotifier interface {
	StockChanged(ctx context.Context, ownerID int64, productIDs []int64)
}

// SaleReceipt is the result of RecordSale. SubmitID is a submission marker
// the UI uses to deduplicate repeated form submissions.
type SaleReceipt struct {
	Sale     SaleEvent `json:"sale"`
	SubmitID string    `json:"submitId"`
}

// PurchaseReceipt is the result of RecordPurchase.
type PurchaseReceipt struct {
	Expense  ExpenseEvent `json:"expense"`
	SubmitID string       `json:"submitId"`
}

// Service coordinates ledger operations.
type Service struct {
	repo     RepositoryPort
	caches   CacheInvalidator
	notifier StockNotifier
	now      func() time.Time
}

// NewService builds Service. Both caches and notifier may be nil.
func NewService(repo RepositoryPort, caches CacheInvalidator, notifier StockNotifier) *Service {
	return &Service{repo: repo, caches: caches, notifier: notifier, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// RecordSale validates and executes a multi-line sale. Every line must
// resolve to a product of the owner with sufficient stock; otherwise nothing
// is applied. On success the sale event is persisted with price and name
// snapshots, and every referenced product's quantity is decremented in the
// same transaction.
func (s *Service) RecordSale(ctx context.Context, ownerID int64, req CreateSaleRequest) (SaleReceipt, error) {
	if len(req.Lines) == 0 {
		return SaleReceipt{}, fmt.Errorf("ledger: sale needs at least one line: %w", httpx.ErrValidation)
	}

	date := s.now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	ids := make([]int64, 0, len(req.Lines))
	requested := map[int64]int64{}
	for _, line := range req.Lines {
		if _, seen := requested[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	sale := SaleEvent{
		Date:      date,
		BuyerName: req.BuyerName,
		Status:    SaleStatusUnpaid,
		OwnerID:   ownerID,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.ProductsForUpdate(ctx, ownerID, ids)
		if err != nil {
			return err
		}

		for _, line := range req.Lines {
			item, ok := items[line.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if requested[line.ProductID] > item.Quantity {
				return &StockError{
					ProductID:   item.ID,
					ProductName: item.Name,
					Requested:   requested[line.ProductID],
					Available:   item.Quantity,
				}
			}
			sale.Lines = append(sale.Lines, SaleLine{
				ProductID:    line.ProductID,
				Name:         item.Name,
				Quantity:     line.Quantity,
				SellingPrice: item.SellingPrice,
			})
			sale.Total += float64(line.Quantity) * item.SellingPrice
		}

		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id

		// Second guard: the decrement itself is conditional, so even if
		// the validation above raced, stock can never go negative.
		for _, productID := range ids {
			if err := tx.ApplyDelta(ctx, ownerID, productID, -requested[productID]); err != nil {
				if errors.Is(err, ErrStockConditionFailed) {
					item := items[productID]
					return &StockError{
						ProductID:   item.ID,
						ProductName: item.Name,
						Requested:   requested[productID],
						Available:   item.Quantity,
					}
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SaleReceipt{}, err
	}

	s.afterWrite(ctx, ownerID, ids)
	return SaleReceipt{Sale: sale, SubmitID: uuid.NewString()}, nil
}

// RecordPurchase restocks an existing product or creates a new product with
// its first stock, logging the matching expense event in the same
// transaction. The expense amount always derives from the product's current
// purchase price.
func (s *Service) RecordPurchase(ctx context.Context, ownerID int64, req CreatePurchaseRequest) (PurchaseReceipt, error) {
	if (req.ProductID == nil) == (req.NewProduct == nil) {
		return PurchaseReceipt{}, ErrPurchaseShape
	}
	if req.Quantity < 1 {
		return PurchaseReceipt{}, fmt.Errorf("ledger: purchase quantity must be at least 1: %w", httpx.ErrValidation)
	}
	if req.NewProduct != nil && req.NewProduct.SellingPrice <= req.NewProduct.PurchasePrice {
		return PurchaseReceipt{}, ErrPriceInvariant
	}

	date := s.now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	expense := ExpenseEvent{
		Date:        date,
		Description: req.Description,
		OwnerID:     ownerID,
	}

	var productID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var item StockItem
		switch {
		case req.ProductID != nil:
			items, err := tx.ProductsForUpdate(ctx, ownerID, []int64{*req.ProductID})
			if err != nil {
				return err
			}
			found, ok := items[*req.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: *req.ProductID}
			}
			item = found
			if err := tx.ApplyDelta(ctx, ownerID, item.ID, req.Quantity); err != nil {
				return err
			}
		default:
			created, err := tx.InsertProduct(ctx, ownerID, *req.NewProduct, req.Quantity)
			if err != nil {
				return err
			}
			item = created
		}
		productID = item.ID

		expense.Amount = float64(req.Quantity) * item.PurchasePrice
		expense.Lines = []ExpenseLine{{
			ProductID:     item.ID,
			Name:          item.Name,
			Quantity:      req.Quantity,
			PurchasePrice: item.PurchasePrice,
		}}
		if expense.Description == "" {
			expense.Description = fmt.Sprintf("purchase %s x %d", item.Name, req.Quantity)
		}

		id, err := tx.InsertExpense(ctx, expense)
		if err != nil {
			return err
		}
		expense.ID = id
		return nil
	})
	if err != nil {
		return PurchaseReceipt{}, err
	}

	s.afterWrite(ctx, ownerID, []int64{productID})
	return PurchaseReceipt{Expense: expense, SubmitID: uuid.NewString()}, nil
}

// UpdateSaleStatus applies the payment transition. UNPAID→PAID stamps
// paidAt; re-marking a paid sale is a no-op; PAID→UNPAID is rejected.
// Quantities are untouched: stock was already adjusted when the sale was
// recorded, payment status only gates revenue recognition.
func (s *Service) UpdateSaleStatus(ctx context.Context, ownerID, saleID int64, req UpdateSaleStatusRequest) (SaleEvent, error) {
	sale, err := s.repo.GetSale(ctx, ownerID, saleID)
	if err != nil {
		return SaleEvent{}, err
	}

	switch {
	case sale.Status == req.Status:
		return sale, nil
	case sale.Status == SaleStatusPaid && req.Status == SaleStatusUnpaid:
		return SaleEvent{}, ErrIllegalTransition
	}

	paidAt := s.now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}
	updated, err := s.repo.MarkSalePaid(ctx, ownerID, saleID, paidAt)
	if err != nil {
		return SaleEvent{}, err
	}
	if !updated {
		// Another transition landed between the read and the write; the
		// stored row wins.
		return s.repo.GetSale(ctx, ownerID, saleID)
	}
	sale.Status = SaleStatusPaid
	sale.PaidAt = &paidAt

	if s.caches != nil {
		_ = s.caches.Bump(ctx)
	}
	return sale, nil
}

// GetSale loads one sale.
func (s *Service) GetSale(ctx context.Context, ownerID, id int64) (SaleEvent, error) {
	return s.repo.GetSale(ctx, ownerID, id)
}

// ListSales returns one page of sales with pagination metadata.
func (s *Service) ListSales(ctx context.Context, ownerID int64, params listing.Params) ([]SaleEvent, shared.Pagination, error) {
	shaped := listing.Shape(ownerID, params, SalesListSpec)
	sales, total, err := s.repo.ListSales(ctx, shaped)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(shaped.Page, shaped.Limit, total), nil
}

// GetExpense loads one expense.
func (s *Service) GetExpense(ctx context.Context, ownerID, id int64) (ExpenseEvent, error) {
	return s.repo.GetExpense(ctx, ownerID, id)
}

// ListExpenses returns one page of expenses with pagination metadata.
func (s *Service) ListExpenses(ctx context.Context, ownerID int64, params listing.Params) ([]ExpenseEvent, shared.Pagination, error) {
	shaped := listing.Shape(ownerID, params, ExpensesListSpec)
	expenses, total, err := s.repo.ListExpenses(ctx, shaped)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return expenses, shared.NewPagination(shaped.Page, shaped.Limit, total), nil
}

func (s *Service) afterWrite(ctx context.Context, ownerID int64, productIDs []int64) {
	if s.caches != nil {
		_ = s.caches.Bump(ctx)
	}
	if s.notifier != nil {
		s.notifier.StockChanged(ctx, ownerID, productIDs)
	}
}
