package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// lineFilter accumulates WHERE conditions for queries over sale lines
// joined to their parent sale. Every widget query is built from the same
// skeleton so the filter semantics cannot drift between widgets.
type lineFilter struct {
	conds []string
	args  []interface{}
}

func newLineFilter(ownerID int64) *lineFilter {
	f := &lineFilter{}
	f.add("s.owner_id = %s", ownerID)
	return f
}

func (f *lineFilter) add(format string, arg interface{}) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, fmt.Sprintf(format, "$"+strconv.Itoa(len(f.args))))
}

// paidOnly restricts to settled sales. Unpaid sales never count toward
// revenue.
func (f *lineFilter) paidOnly() {
	f.conds = append(f.conds, "s.status = 'PAID'")
}

// paidInYear restricts to settled sales whose payment landed in year.
func (f *lineFilter) paidInYear(year int) {
	f.paidOnly()
	f.add("EXTRACT(YEAR FROM s.paid_at) = %s", year)
}

// inCategory keeps only lines whose product currently belongs to the
// category. Lines whose product was deleted cannot be classified, so an
// active category filter drops them; without a filter they still count.
func (f *lineFilter) inCategory(categoryID *int64) {
	if categoryID == nil {
		return
	}
	f.add("p.category_id = %s", *categoryID)
}

func (f *lineFilter) where() string {
	return strings.Join(f.conds, " AND ")
}

const lineJoin = `FROM sale_lines sl
JOIN sales s ON s.id = sl.sale_id
LEFT JOIN products p ON p.id = sl.product_id`

// StockSummary returns current stock quantity and product count.
func (r *Repository) StockSummary(ctx context.Context, ownerID int64, categoryID *int64) (totalStock, productCount int64, err error) {
	q := `SELECT COALESCE(SUM(quantity), 0), COUNT(*) FROM products WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if categoryID != nil {
		q += ` AND category_id = $2`
		args = append(args, *categoryID)
	}
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&totalStock, &productCount); err != nil {
		return 0, 0, fmt.Errorf("stock summary: %w", err)
	}
	return totalStock, productCount, nil
}

// TotalSold sums line quantities across the owner's whole sale history.
func (r *Repository) TotalSold(ctx context.Context, ownerID int64, categoryID *int64) (int64, error) {
	f := newLineFilter(ownerID)
	f.inCategory(categoryID)

	q := `SELECT COALESCE(SUM(sl.quantity), 0) ` + lineJoin + ` WHERE ` + f.where()
	var total int64
	if err := r.pool.QueryRow(ctx, q, f.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total sold: %w", err)
	}
	return total, nil
}

// TotalRevenue sums settled sale lines at their snapshot selling price.
func (r *Repository) TotalRevenue(ctx context.Context, ownerID int64, categoryID *int64) (float64, error) {
	f := newLineFilter(ownerID)
	f.paidOnly()
	f.inCategory(categoryID)

	q := `SELECT COALESCE(SUM(sl.quantity * sl.selling_price), 0) ` + lineJoin + ` WHERE ` + f.where()
	var total float64
	if err := r.pool.QueryRow(ctx, q, f.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

// PopularProducts returns the five all-time best sellers, deleted
// products surviving under their snapshot name.
func (r *Repository) PopularProducts(ctx context.Context, ownerID int64, categoryID *int64) ([]PopularProduct, error) {
	f := newLineFilter(ownerID)
	f.inCategory(categoryID)

	q := `SELECT sl.product_id, COALESCE(p.name, sl.name) AS name,
  SUM(sl.quantity) AS total_sold,
  SUM(sl.quantity * sl.selling_price) AS total_revenue ` +
		lineJoin + ` WHERE ` + f.where() +
		` GROUP BY sl.product_id, COALESCE(p.name, sl.name)
ORDER BY total_sold DESC, name ASC
LIMIT 5`
	rows, err := r.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	defer rows.Close()

	products := make([]PopularProduct, 0, 5)
	for rows.Next() {
		var p PopularProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.TotalSold, &p.TotalRevenue); err != nil {
			return nil, fmt.Errorf("scan popular product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// MonthlySales buckets settled units and revenue by the month payment
// landed.
func (r *Repository) MonthlySales(ctx context.Context, ownerID int64, year int) ([]SalesMonth, error) {
	f := newLineFilter(ownerID)
	f.paidInYear(year)

	q := `SELECT EXTRACT(MONTH FROM s.paid_at)::int AS month,
  COALESCE(SUM(sl.quantity), 0),
  COALESCE(SUM(sl.quantity * sl.selling_price), 0) ` +
		lineJoin + ` WHERE ` + f.where() + ` GROUP BY month ORDER BY month`
	rows, err := r.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}
	defer rows.Close()

	points := make([]SalesMonth, 0, 12)
	for rows.Next() {
		var p SalesMonth
		if err := rows.Scan(&p.Month, &p.Sold, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan sales month: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// MonthlyExpenses buckets expense amounts by the expense date.
func (r *Repository) MonthlyExpenses(ctx context.Context, ownerID int64, year int) ([]ExpenseMonth, error) {
	q := `SELECT EXTRACT(MONTH FROM date)::int AS month, COALESCE(SUM(amount), 0)
FROM expenses
WHERE owner_id = $1 AND EXTRACT(YEAR FROM date) = $2
GROUP BY month ORDER BY month`
	rows, err := r.pool.Query(ctx, q, ownerID, year)
	if err != nil {
		return nil, fmt.Errorf("monthly expenses: %w", err)
	}
	defer rows.Close()

	points := make([]ExpenseMonth, 0, 12)
	for rows.Next() {
		var p ExpenseMonth
		if err := rows.Scan(&p.Month, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan expense month: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// AvailableYears lists every year with ledger activity, newest first.
func (r *Repository) AvailableYears(ctx context.Context, ownerID int64) ([]int, error) {
	q := `SELECT DISTINCT year FROM (
  SELECT EXTRACT(YEAR FROM date)::int AS year FROM sales WHERE owner_id = $1
  UNION
  SELECT EXTRACT(YEAR FROM date)::int AS year FROM expenses WHERE owner_id = $1
) y ORDER BY year DESC`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	defer rows.Close()

	years := make([]int, 0)
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}
