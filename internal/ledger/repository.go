package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/listing"
	"github.com/stocklane/stocklane/internal/platform/db"
)

// Repository persists ledger events in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrStockConditionFailed is returned by ApplyDelta when the conditional
// update matched no row: the product vanished or the decrement would have
// driven quantity negative. The service translates it into a StockError.
var ErrStockConditionFailed = errors.New("ledger: conditional stock update refused")

// TxRepository exposes the operations available inside one ledger write
// transaction.
type TxRepository interface {
	// ProductsForUpdate loads and row-locks the owner's products named by
	// ids, keyed by product id. Missing ids are simply absent.
	ProductsForUpdate(ctx context.Context, ownerID int64, ids []int64) (map[int64]StockItem, error)
	// InsertProduct creates a new product with its first stock.
	InsertProduct(ctx context.Context, ownerID int64, spec NewProductSpec, quantity int64) (StockItem, error)
	// InsertSale persists the sale header and its lines, returning the id.
	InsertSale(ctx context.Context, sale SaleEvent) (int64, error)
	// InsertExpense persists the expense header and its lines.
	InsertExpense(ctx context.Context, expense ExpenseEvent) (int64, error)
	// ApplyDelta adjusts a product quantity atomically, refusing any change
	// that would leave the quantity negative.
	ApplyDelta(ctx context.Context, ownerID, productID, delta int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn inside a RepeatableRead transaction. Every ledger write
// is all-or-nothing: any error rolls the whole event back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) ProductsForUpdate(ctx context.Context, ownerID int64, ids []int64) (map[int64]StockItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, quantity, purchase_price, selling_price
FROM products WHERE owner_id = $1 AND id = ANY($2) FOR UPDATE`, ownerID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := map[int64]StockItem{}
	for rows.Next() {
		var item StockItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.PurchasePrice, &item.SellingPrice); err != nil {
			return nil, err
		}
		items[item.ID] = item
	}
	return items, rows.Err()
}

func (r *txRepository) InsertProduct(ctx context.Context, ownerID int64, spec NewProductSpec, quantity int64) (StockItem, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO products (owner_id, sku, name, purchase_price, selling_price, quantity, category_id, brand_id, supplier_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		ownerID, spec.SKU, spec.Name, spec.PurchasePrice, spec.SellingPrice, quantity,
		spec.CategoryID, spec.BrandID, spec.SupplierID).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return StockItem{}, ErrDuplicateProduct
		}
		return StockItem{}, err
	}
	return StockItem{
		ID:            id,
		Name:          spec.Name,
		Quantity:      quantity,
		PurchasePrice: spec.PurchasePrice,
		SellingPrice:  spec.SellingPrice,
	}, nil
}

func (r *txRepository) InsertSale(ctx context.Context, sale SaleEvent) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (owner_id, date, buyer_name, status, paid_at, total)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		sale.OwnerID, sale.Date, sale.BuyerName, string(sale.Status), sale.PaidAt, sale.Total).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, line := range sale.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_lines (sale_id, product_id, name, quantity, selling_price)
VALUES ($1,$2,$3,$4,$5)`, id, line.ProductID, line.Name, line.Quantity, line.SellingPrice); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *txRepository) InsertExpense(ctx context.Context, expense ExpenseEvent) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO expenses (owner_id, date, amount, description)
VALUES ($1,$2,$3,$4) RETURNING id`,
		expense.OwnerID, expense.Date, expense.Amount, expense.Description).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, line := range expense.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO expense_lines (expense_id, product_id, name, quantity, purchase_price)
VALUES ($1,$2,$3,$4,$5)`, id, line.ProductID, line.Name, line.Quantity, line.PurchasePrice); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *txRepository) ApplyDelta(ctx context.Context, ownerID, productID, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET quantity = quantity + $1
WHERE owner_id = $2 AND id = $3 AND quantity + $1 >= 0`, delta, ownerID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStockConditionFailed
	}
	return nil
}

// saleText aggregates line names so the shaper can substring-match them.
const saleLineNames = "(SELECT COALESCE(string_agg(l.name, ' '), '') FROM sale_lines l WHERE l.sale_id = sales.id)"
const expenseLineNames = "(SELECT COALESCE(string_agg(l.name, ' '), '') FROM expense_lines l WHERE l.expense_id = expenses.id)"

// SalesListSpec declares the shapeable surface of the sales collection.
var SalesListSpec = listing.Spec{
	TextFields: map[string]string{
		"buyerName":   "buyer_name",
		"productName": saleLineNames,
	},
	ExactFields: map[string]string{
		"status": "status",
	},
	NumericFields: map[string]string{
		"total": "total",
	},
	SortFields: map[string]string{
		"date":  "date",
		"total": "total",
	},
	Columns: map[string]string{
		"id":        "id",
		"date":      "date",
		"buyerName": "buyer_name",
		"status":    "status",
		"total":     "total",
	},
	AllColumns:  []string{"id", "date", "buyer_name", "status", "paid_at", "total"},
	DefaultSort: "-date",
}

// ExpensesListSpec declares the shapeable surface of the expenses collection.
var ExpensesListSpec = listing.Spec{
	TextFields: map[string]string{
		"description": "description",
		"productName": expenseLineNames,
	},
	NumericFields: map[string]string{
		"amount": "amount",
	},
	SortFields: map[string]string{
		"date":   "date",
		"amount": "amount",
	},
	Columns: map[string]string{
		"id":          "id",
		"date":        "date",
		"amount":      "amount",
		"description": "description",
	},
	AllColumns:  []string{"id", "date", "amount", "description"},
	DefaultSort: "-date",
}

// GetSale loads one sale with its lines, scoped to the owner.
func (r *Repository) GetSale(ctx context.Context, ownerID, id int64) (SaleEvent, error) {
	var sale SaleEvent
	err := r.pool.QueryRow(ctx,
		"SELECT id, date, buyer_name, status, paid_at, total FROM sales WHERE owner_id = $1 AND id = $2",
		ownerID, id,
	).Scan(&sale.ID, &sale.Date, &sale.BuyerName, &sale.Status, &sale.PaidAt, &sale.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleEvent{}, ErrSaleNotFound
	}
	if err != nil {
		return SaleEvent{}, err
	}
	sale.OwnerID = ownerID
	lines, err := r.saleLines(ctx, []int64{id})
	if err != nil {
		return SaleEvent{}, err
	}
	sale.Lines = lines[id]
	return sale, nil
}

// scanTarget maps a projected column to its destination on e.
func (e *SaleEvent) scanTarget(column string) (any, bool) {
	switch column {
	case "id":
		return &e.ID, true
	case "date":
		return &e.Date, true
	case "buyer_name":
		return &e.BuyerName, true
	case "status":
		return &e.Status, true
	case "paid_at":
		return &e.PaidAt, true
	case "total":
		return &e.Total, true
	}
	return nil, false
}

// ListSales returns one page of sales with lines attached, plus the total
// matching count. The SELECT list follows the request's field projection;
// the id column is always present so lines can be attached.
func (r *Repository) ListSales(ctx context.Context, shaped listing.Shaped) ([]SaleEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales WHERE "+shaped.Where, shaped.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + strings.Join(shaped.Columns, ", ") + " FROM sales WHERE " + shaped.Where +
		" ORDER BY " + shaped.OrderBy +
		" LIMIT " + strconv.Itoa(shaped.Limit) + " OFFSET " + strconv.Itoa(shaped.Offset)
	rows, err := r.pool.Query(ctx, query, shaped.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sales := []SaleEvent{}
	ids := []int64{}
	dests := make([]any, len(shaped.Columns))
	for rows.Next() {
		var sale SaleEvent
		for i, col := range shaped.Columns {
			d, ok := sale.scanTarget(col)
			if !ok {
				d = new(any)
			}
			dests[i] = d
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	lines, err := r.saleLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Lines = lines[sales[i].ID]
	}
	return sales, total, nil
}

func (r *Repository) saleLines(ctx context.Context, saleIDs []int64) (map[int64][]SaleLine, error) {
	if len(saleIDs) == 0 {
		return map[int64][]SaleLine{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT sale_id, product_id, name, quantity, selling_price
FROM sale_lines WHERE sale_id = ANY($1) ORDER BY id ASC`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := map[int64][]SaleLine{}
	for rows.Next() {
		var saleID int64
		var line SaleLine
		if err := rows.Scan(&saleID, &line.ProductID, &line.Name, &line.Quantity, &line.SellingPrice); err != nil {
			return nil, err
		}
		lines[saleID] = append(lines[saleID], line)
	}
	return lines, rows.Err()
}

// MarkSalePaid settles one sale. The UPDATE is conditional on the stored
// status, so a concurrent transition cannot overwrite an earlier paid_at.
// Returns false when no unpaid row matched.
func (r *Repository) MarkSalePaid(ctx context.Context, ownerID, id int64, paidAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE sales SET status = 'PAID', paid_at = $1 WHERE owner_id = $2 AND id = $3 AND status = 'UNPAID'",
		paidAt, ownerID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetExpense loads one expense with its lines, scoped to the owner.
func (r *Repository) GetExpense(ctx context.Context, ownerID, id int64) (ExpenseEvent, error) {
	var expense ExpenseEvent
	err := r.pool.QueryRow(ctx,
		"SELECT id, date, amount, description FROM expenses WHERE owner_id = $1 AND id = $2",
		ownerID, id,
	).Scan(&expense.ID, &expense.Date, &expense.Amount, &expense.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExpenseEvent{}, ErrExpenseNotFound
	}
	if err != nil {
		return ExpenseEvent{}, err
	}
	expense.OwnerID = ownerID
	lines, err := r.expenseLines(ctx, []int64{id})
	if err != nil {
		return ExpenseEvent{}, err
	}
	expense.Lines = lines[id]
	return expense, nil
}

// scanTarget maps a projected column to its destination on e.
func (e *ExpenseEvent) scanTarget(column string) (any, bool) {
	switch column {
	case "id":
		return &e.ID, true
	case "date":
		return &e.Date, true
	case "amount":
		return &e.Amount, true
	case "description":
		return &e.Description, true
	}
	return nil, false
}

// ListExpenses returns one page of expenses with lines attached, plus the
// total matching count. The SELECT list follows the request's field
// projection; the id column is always present so lines can be attached.
func (r *Repository) ListExpenses(ctx context.Context, shaped listing.Shaped) ([]ExpenseEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses WHERE "+shaped.Where, shaped.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + strings.Join(shaped.Columns, ", ") + " FROM expenses WHERE " + shaped.Where +
		" ORDER BY " + shaped.OrderBy +
		" LIMIT " + strconv.Itoa(shaped.Limit) + " OFFSET " + strconv.Itoa(shaped.Offset)
	rows, err := r.pool.Query(ctx, query, shaped.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	expenses := []ExpenseEvent{}
	ids := []int64{}
	dests := make([]any, len(shaped.Columns))
	for rows.Next() {
		var expense ExpenseEvent
		for i, col := range shaped.Columns {
			d, ok := expense.scanTarget(col)
			if !ok {
				d = new(any)
			}
			dests[i] = d
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, expense)
		ids = append(ids, expense.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	lines, err := r.expenseLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range expenses {
		expenses[i].Lines = lines[expenses[i].ID]
	}
	return expenses, total, nil
}

func (r *Repository) expenseLines(ctx context.Context, expenseIDs []int64) (map[int64][]ExpenseLine, error) {
	if len(expenseIDs) == 0 {
		return map[int64][]ExpenseLine{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT expense_id, product_id, name, quantity, purchase_price
FROM expense_lines WHERE expense_id = ANY($1) ORDER BY id ASC`, expenseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := map[int64][]ExpenseLine{}
	for rows.Next() {
		var expenseID int64
		var line ExpenseLine
		if err := rows.Scan(&expenseID, &line.ProductID, &line.Name, &line.Quantity, &line.PurchasePrice); err != nil {
			return nil, err
		}
		lines[expenseID] = append(lines[expenseID], line)
	}
	return lines, rows.Err()
}
