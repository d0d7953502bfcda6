package product

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/listing"
	"github.com/stocklane/stocklane/internal/platform/db"
)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = "id, sku, name, purchase_price, selling_price, quantity, category_id, brand_id, supplier_id"

// ListSpec declares the shapeable surface of the products collection.
var ListSpec = listing.Spec{
	TextFields: map[string]string{
		"name": "name",
		"sku":  "sku",
	},
	ExactFields: map[string]string{
		"category": "category_id",
		"brand":    "brand_id",
		"supplier": "supplier_id",
	},
	NumericFields: map[string]string{
		"quantity":      "quantity",
		"sellingPrice":  "selling_price",
		"purchasePrice": "purchase_price",
	},
	SortFields: map[string]string{
		"name":     "name",
		"sku":      "sku",
		"quantity": "quantity",
		"date":     "id",
	},
	Columns: map[string]string{
		"id":            "id",
		"sku":           "sku",
		"name":          "name",
		"purchasePrice": "purchase_price",
		"sellingPrice":  "selling_price",
		"quantity":      "quantity",
	},
	AllColumns:  strings.Split(productColumns, ", "),
	DefaultSort: "-date",
}

// scanTarget maps a projected column to its destination on p.
func (p *Product) scanTarget(column string) (any, bool) {
	switch column {
	case "id":
		return &p.ID, true
	case "sku":
		return &p.SKU, true
	case "name":
		return &p.Name, true
	case "purchase_price":
		return &p.PurchasePrice, true
	case "selling_price":
		return &p.SellingPrice, true
	case "quantity":
		return &p.Quantity, true
	case "category_id":
		return &p.CategoryID, true
	case "brand_id":
		return &p.BrandID, true
	case "supplier_id":
		return &p.SupplierID, true
	}
	return nil, false
}

// List returns a page of products plus the total matching count. The SELECT
// list follows the request's field projection.
func (r *Repository) List(ctx context.Context, shaped listing.Shaped) ([]Product, int, error) {
	var total int
	countQuery := "SELECT COUNT(*) FROM products WHERE " + shaped.Where
	if err := r.pool.QueryRow(ctx, countQuery, shaped.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + strings.Join(shaped.Columns, ", ") + " FROM products WHERE " + shaped.Where +
		" ORDER BY " + shaped.OrderBy +
		" LIMIT " + strconv.Itoa(shaped.Limit) + " OFFSET " + strconv.Itoa(shaped.Offset)
	rows, err := r.pool.Query(ctx, query, shaped.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	dests := make([]any, len(shaped.Columns))
	for rows.Next() {
		var p Product
		for i, col := range shaped.Columns {
			d, ok := p.scanTarget(col)
			if !ok {
				d = new(any)
			}
			dests[i] = d
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Get loads one product scoped to the owner.
func (r *Repository) Get(ctx context.Context, ownerID, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE owner_id = $1 AND id = $2",
		ownerID, id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.PurchasePrice, &p.SellingPrice, &p.Quantity, &p.CategoryID, &p.BrandID, &p.SupplierID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.OwnerID = ownerID
	return p, nil
}

// Update writes the editable attributes of one product.
func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products
SET sku = $1, name = $2, purchase_price = $3, selling_price = $4, category_id = $5, brand_id = $6, supplier_id = $7
WHERE owner_id = $8 AND id = $9`,
		p.SKU, p.Name, p.PurchasePrice, p.SellingPrice, p.CategoryID, p.BrandID, p.SupplierID, p.OwnerID, p.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one product scoped to the owner. Historical ledger events
// keep their snapshots; the dashboard joins them left-outer.
func (r *Repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM products WHERE owner_id = $1 AND id = $2", ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Options lists the trimmed product projection sorted by name.
func (r *Repository) Options(ctx context.Context, ownerID int64) ([]Option, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, name, selling_price, purchase_price, quantity FROM products WHERE owner_id = $1 ORDER BY name ASC",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name, &o.SellingPrice, &o.PurchasePrice, &o.Quantity); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// LowStock lists products below the threshold.
func (r *Repository) LowStock(ctx context.Context, ownerID int64, threshold int64) ([]LowStockEntry, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, name, quantity FROM products WHERE owner_id = $1 AND quantity < $2 ORDER BY quantity ASC, name ASC",
		ownerID, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LowStockEntry{}
	for rows.Next() {
		var e LowStockEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Quantity); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DetachReference clears a catalog reference column on every product of the
// owner that points at the deleted entity. Invoked by the reference catalog
// as an explicit cascade, inside the same transaction that deletes the
// entry.
func (r *Repository) DetachReference(ctx context.Context, tx pgx.Tx, ownerID int64, column string, refID int64) error {
	switch column {
	case "category_id", "brand_id", "supplier_id":
	default:
		return errors.New("product: unknown reference column " + column)
	}
	_, err := tx.Exec(ctx,
		"UPDATE products SET "+column+" = NULL WHERE owner_id = $1 AND "+column+" = $2",
		ownerID, refID)
	return err
}
