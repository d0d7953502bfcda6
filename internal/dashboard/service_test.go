package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	totalStock   int64
	productCount int64
	totalSold    int64
	revenue      float64
	popular      []PopularProduct
	sales        []SalesMonth
	expenses     []ExpenseMonth
	years        []int

	soldCategory    *int64
	revenueCategory *int64
	stockCategory   *int64
	popularCategory *int64
	yearsErr        error

	calls int
}

func (m *mockRepo) StockSummary(ctx context.Context, ownerID int64, categoryID *int64) (int64, int64, error) {
	m.calls++
	m.stockCategory = categoryID
	return m.totalStock, m.productCount, nil
}

func (m *mockRepo) TotalSold(ctx context.Context, ownerID int64, categoryID *int64) (int64, error) {
	m.soldCategory = categoryID
	return m.totalSold, nil
}

func (m *mockRepo) TotalRevenue(ctx context.Context, ownerID int64, categoryID *int64) (float64, error) {
	m.revenueCategory = categoryID
	return m.revenue, nil
}

func (m *mockRepo) PopularProducts(ctx context.Context, ownerID int64, categoryID *int64) ([]PopularProduct, error) {
	m.popularCategory = categoryID
	return m.popular, nil
}

func (m *mockRepo) MonthlySales(ctx context.Context, ownerID int64, year int) ([]SalesMonth, error) {
	return m.sales, nil
}

func (m *mockRepo) MonthlyExpenses(ctx context.Context, ownerID int64, year int) ([]ExpenseMonth, error) {
	return m.expenses, nil
}

func (m *mockRepo) AvailableYears(ctx context.Context, ownerID int64) ([]int, error) {
	if m.yearsErr != nil {
		return nil, m.yearsErr
	}
	return m.years, nil
}

func newTestService(t *testing.T, repo RepositoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestBuildFillsTwelveMonths(t *testing.T) {
	repo := &mockRepo{
		sales:    []SalesMonth{{Month: 3, Sold: 15, Revenue: 120}, {Month: 11, Sold: 4, Revenue: 40}},
		expenses: []ExpenseMonth{{Month: 1, Amount: 9.5}},
		years:    []int{2025, 2024},
	}
	svc := newTestService(t, repo)

	snap, err := svc.Build(context.Background(), 7, Filters{Year: 2025})
	require.NoError(t, err)

	require.Len(t, snap.MonthlySales, 12)
	require.Len(t, snap.MonthlyExpenses, 12)
	for i, p := range snap.MonthlySales {
		assert.Equal(t, i+1, p.Month)
	}
	assert.Equal(t, int64(15), snap.MonthlySales[2].Sold)
	assert.Equal(t, 120.0, snap.MonthlySales[2].Revenue)
	assert.Equal(t, 40.0, snap.MonthlySales[10].Revenue)
	assert.Equal(t, int64(0), snap.MonthlySales[0].Sold)
	assert.Equal(t, 0.0, snap.MonthlySales[0].Revenue)
	assert.Equal(t, 9.5, snap.MonthlyExpenses[0].Amount)
	assert.Equal(t, []int{2025, 2024}, snap.Years)
}

func TestBuildEmptyYearYieldsZeroes(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	snap, err := svc.Build(context.Background(), 7, Filters{Year: 2020})
	require.NoError(t, err)

	assert.Equal(t, int64(0), snap.Summary.TotalStock)
	assert.Equal(t, 0.0, snap.Summary.TotalRevenue)
	require.Len(t, snap.MonthlySales, 12)
	for _, p := range snap.MonthlySales {
		assert.Equal(t, int64(0), p.Sold)
		assert.Equal(t, 0.0, p.Revenue)
	}
	assert.NotNil(t, snap.Years)
	assert.Empty(t, snap.Years)
	assert.NotNil(t, snap.PopularProducts)
	assert.Empty(t, snap.PopularProducts)
}

func TestBuildFailsWhenAnyQueryFails(t *testing.T) {
	repo := &mockRepo{yearsErr: errors.New("boom")}
	svc := newTestService(t, repo)

	_, err := svc.Build(context.Background(), 7, Filters{Year: 2025})
	require.Error(t, err)
}

func TestBuildPassesIndependentCategoryFilters(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	sold := int64(3)
	_, err := svc.Build(context.Background(), 7, Filters{Year: 2025, SoldCategory: &sold})
	require.NoError(t, err)

	require.NotNil(t, repo.soldCategory)
	assert.Equal(t, int64(3), *repo.soldCategory)
	assert.Nil(t, repo.stockCategory)
	assert.Nil(t, repo.revenueCategory)
	assert.Nil(t, repo.popularCategory)
}

func TestBuildServesFromCacheUntilBump(t *testing.T) {
	repo := &mockRepo{totalStock: 50, productCount: 5}
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Build(ctx, 7, Filters{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	// second read is served from cache
	second, err := svc.Build(ctx, 7, Filters{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, first, second)

	// a ledger write bumps the version, forcing a rebuild
	require.NoError(t, svc.cache.Bump(ctx))
	repo.totalStock = 47
	third, err := svc.Build(ctx, 7, Filters{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, int64(47), third.Summary.TotalStock)
}

func TestBuildDefaultsYearToCurrent(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	svc.WithNow(func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	})

	_, err := svc.Build(context.Background(), 7, Filters{})
	require.NoError(t, err)
}
