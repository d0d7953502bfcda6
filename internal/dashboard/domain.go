package dashboard

// Filters narrow individual dashboard widgets. Each widget filter is
// independent: filtering one widget never affects the others.
type Filters struct {
	Year                int
	StockCategory       *int64
	SoldCategory        *int64
	RevenueCategory     *int64
	TopProductsCategory *int64
}

// Summary carries the headline figures for the selected year.
type Summary struct {
	TotalStock        int64   `json:"totalStock"`
	ProductCount      int64   `json:"productCount"`
	TotalProductsSold int64   `json:"totalProductsSold"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

// SalesMonth is one calendar month bucket of settled sales. Month is
// 1-based.
type SalesMonth struct {
	Month   int     `json:"month"`
	Sold    int64   `json:"sold"`
	Revenue float64 `json:"revenue"`
}

// ExpenseMonth is one calendar month bucket of expenses. Month is 1-based.
type ExpenseMonth struct {
	Month  int     `json:"month"`
	Amount float64 `json:"amount"`
}

// PopularProduct is one row of the top sellers widget.
type PopularProduct struct {
	ProductID    int64   `json:"productId"`
	Name         string  `json:"name"`
	TotalSold    int64   `json:"totalSold"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// Snapshot is the full dashboard payload served to clients. It is built
// once per request (or pulled from cache) and never mutated afterwards.
type Snapshot struct {
	Years           []int            `json:"availableYears"`
	Summary         Summary          `json:"summary"`
	MonthlySales    []SalesMonth     `json:"monthlySales"`
	MonthlyExpenses []ExpenseMonth   `json:"monthlyExpenses"`
	PopularProducts []PopularProduct `json:"popularProducts"`
}
