package dashboard

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort is the read surface the service aggregates over.
type RepositoryPort interface {
	StockSummary(ctx context.Context, ownerID int64, categoryID *int64) (totalStock, productCount int64, err error)
	TotalSold(ctx context.Context, ownerID int64, categoryID *int64) (int64, error)
	TotalRevenue(ctx context.Context, ownerID int64, categoryID *int64) (float64, error)
	PopularProducts(ctx context.Context, ownerID int64, categoryID *int64) ([]PopularProduct, error)
	MonthlySales(ctx context.Context, ownerID int64, year int) ([]SalesMonth, error)
	MonthlyExpenses(ctx context.Context, ownerID int64, year int) ([]ExpenseMonth, error)
	AvailableYears(ctx context.Context, ownerID int64) ([]int, error)
}

type Service struct {
	repo  RepositoryPort
	cache *Cache
	now   func() time.Time
}

func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Build assembles the dashboard snapshot for one owner. The seven widget
// queries run concurrently; a failure in any of them fails the whole
// snapshot rather than serving a partially wrong dashboard.
func (s *Service) Build(ctx context.Context, ownerID int64, filters Filters) (Snapshot, error) {
	year := filters.Year
	if year == 0 {
		year = s.now().Year()
	}

	key, err := s.cache.BuildKey(ctx, "dashboard", strconv.FormatInt(ownerID, 10), cacheSuffix(year, filters))
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err = s.cache.FetchJSON(ctx, key, &snap, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, ownerID, year, filters)
	})
	return snap, err
}

func (s *Service) build(ctx context.Context, ownerID int64, year int, filters Filters) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stock, count, err := s.repo.StockSummary(gctx, ownerID, filters.StockCategory)
		if err != nil {
			return err
		}
		snap.Summary.TotalStock = stock
		snap.Summary.ProductCount = count
		return nil
	})
	g.Go(func() error {
		sold, err := s.repo.TotalSold(gctx, ownerID, filters.SoldCategory)
		if err != nil {
			return err
		}
		snap.Summary.TotalProductsSold = sold
		return nil
	})
	g.Go(func() error {
		revenue, err := s.repo.TotalRevenue(gctx, ownerID, filters.RevenueCategory)
		if err != nil {
			return err
		}
		snap.Summary.TotalRevenue = revenue
		return nil
	})
	g.Go(func() error {
		popular, err := s.repo.PopularProducts(gctx, ownerID, filters.TopProductsCategory)
		if err != nil {
			return err
		}
		snap.PopularProducts = popular
		return nil
	})
	g.Go(func() error {
		sales, err := s.repo.MonthlySales(gctx, ownerID, year)
		if err != nil {
			return err
		}
		snap.MonthlySales = fillSalesMonths(sales)
		return nil
	})
	g.Go(func() error {
		expenses, err := s.repo.MonthlyExpenses(gctx, ownerID, year)
		if err != nil {
			return err
		}
		snap.MonthlyExpenses = fillExpenseMonths(expenses)
		return nil
	})
	g.Go(func() error {
		years, err := s.repo.AvailableYears(gctx, ownerID)
		if err != nil {
			return err
		}
		snap.Years = years
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	if snap.Years == nil {
		snap.Years = []int{}
	}
	if snap.PopularProducts == nil {
		snap.PopularProducts = []PopularProduct{}
	}
	return snap, nil
}

// fillSalesMonths expands sparse month rows into twelve fixed buckets so
// clients never have to guess which months had no activity.
func fillSalesMonths(points []SalesMonth) []SalesMonth {
	filled := make([]SalesMonth, 12)
	for i := range filled {
		filled[i].Month = i + 1
	}
	for _, p := range points {
		if p.Month >= 1 && p.Month <= 12 {
			filled[p.Month-1].Sold = p.Sold
			filled[p.Month-1].Revenue = p.Revenue
		}
	}
	return filled
}

func fillExpenseMonths(points []ExpenseMonth) []ExpenseMonth {
	filled := make([]ExpenseMonth, 12)
	for i := range filled {
		filled[i].Month = i + 1
	}
	for _, p := range points {
		if p.Month >= 1 && p.Month <= 12 {
			filled[p.Month-1].Amount = p.Amount
		}
	}
	return filled
}

func cacheSuffix(year int, filters Filters) string {
	suffix := strconv.Itoa(year)
	for _, id := range []*int64{filters.StockCategory, filters.SoldCategory, filters.RevenueCategory, filters.TopProductsCategory} {
		if id == nil {
			suffix += ":-"
		} else {
			suffix += ":" + strconv.FormatInt(*id, 10)
		}
	}
	return suffix
}
