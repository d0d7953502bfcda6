package catalog

import (
	"fmt"

	"github.com/stocklane/stocklane/internal/platform/httpx"
)

// Kind identifies one reference collection.
type Kind string

const (
	KindCategory Kind = "category"
	KindBrand    Kind = "brand"
	KindSupplier Kind = "supplier"
)

var kinds = map[Kind]kindInfo{
	KindCategory: {table: "categories", refColumn: "category_id", uppercase: true},
	KindBrand:    {table: "brands", refColumn: "brand_id"},
	KindSupplier: {table: "suppliers", refColumn: "supplier_id"},
}

type kindInfo struct {
	table     string
	refColumn string
	uppercase bool
}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Plural is the collection name used in URLs and response envelopes.
func (k Kind) Plural() string {
	return kinds[k].table
}

// Entry is one reference record (a category, brand or supplier).
type Entry struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"-"`
	Name    string `json:"name"`
}

// UpsertRequest carries the payload for create and rename.
type UpsertRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

var (
	ErrNotFound  = fmt.Errorf("catalog: entry not found: %w", httpx.ErrNotFound)
	ErrDuplicate = fmt.Errorf("catalog: name already taken: %w", httpx.ErrDuplicate)
	ErrBadKind   = fmt.Errorf("catalog: unknown collection: %w", httpx.ErrValidation)
)
