package listing

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productSpec = Spec{
	TextFields:    map[string]string{"name": "name", "sku": "sku"},
	ExactFields:   map[string]string{"category": "category_id"},
	NumericFields: map[string]string{"quantity": "quantity", "sellingPrice": "selling_price"},
	SortFields:    map[string]string{"name": "name", "quantity": "quantity", "date": "id"},
	Columns:       map[string]string{"name": "name", "quantity": "quantity"},
	AllColumns:    []string{"id", "name", "quantity"},
	DefaultSort:   "-date",
}

func TestParseQuerySeparatesReservedKeys(t *testing.T) {
	values := url.Values{}
	values.Set("page", "3")
	values.Set("limit", "25")
	values.Set("sort", "-quantity")
	values.Set("fields", "name, quantity")
	values.Set("name", "mug")

	p := ParseQuery(values)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, "-quantity", p.Sort)
	assert.Equal(t, []string{"name", "quantity"}, p.Fields)
	assert.Equal(t, map[string]string{"name": "mug"}, p.Filters)
}

func TestShapeAlwaysScopesToOwner(t *testing.T) {
	shaped := Shape(42, Params{}, productSpec)

	assert.Equal(t, "owner_id = $1", shaped.Where)
	require.Len(t, shaped.Args, 1)
	assert.Equal(t, int64(42), shaped.Args[0])
}

func TestShapeTextFilterIsSubstring(t *testing.T) {
	shaped := Shape(1, Params{Filters: map[string]string{"name": "mug"}}, productSpec)

	assert.Equal(t, "owner_id = $1 AND name ILIKE $2", shaped.Where)
	assert.Equal(t, "%mug%", shaped.Args[1])
}

func TestShapeNumericRangeSuffixes(t *testing.T) {
	cases := []struct {
		key string
		op  string
	}{
		{"quantity_gte", ">="},
		{"quantity_gt", ">"},
		{"quantity_lte", "<="},
		{"quantity_lt", "<"},
		{"quantity", "="},
	}
	for _, tc := range cases {
		shaped := Shape(1, Params{Filters: map[string]string{tc.key: "5"}}, productSpec)
		assert.Equal(t, "owner_id = $1 AND quantity "+tc.op+" $2", shaped.Where, tc.key)
		assert.Equal(t, 5.0, shaped.Args[1], tc.key)
	}
}

func TestShapeIgnoresUnknownAndEmptyFilters(t *testing.T) {
	shaped := Shape(1, Params{Filters: map[string]string{
		"nonsense": "x",
		"name":     "",
	}}, productSpec)

	assert.Equal(t, "owner_id = $1", shaped.Where)
	assert.Len(t, shaped.Args, 1)
}

func TestShapeNonNumericValueForNumericFieldIsDropped(t *testing.T) {
	shaped := Shape(1, Params{Filters: map[string]string{"quantity_gte": "abc"}}, productSpec)
	assert.Equal(t, "owner_id = $1", shaped.Where)
}

func TestShapeSortMapping(t *testing.T) {
	shaped := Shape(1, Params{Sort: "-quantity,name"}, productSpec)
	assert.Equal(t, "quantity DESC, name ASC", shaped.OrderBy)
}

func TestShapeDefaultSortAndFallback(t *testing.T) {
	shaped := Shape(1, Params{}, productSpec)
	assert.Equal(t, "id DESC", shaped.OrderBy)

	noDefault := productSpec
	noDefault.DefaultSort = ""
	noDefault.SortFields = nil
	shaped = Shape(1, Params{Sort: "whatever"}, noDefault)
	assert.Equal(t, "id DESC", shaped.OrderBy)
}

func TestShapeProjection(t *testing.T) {
	shaped := Shape(1, Params{Fields: []string{"name", "bogus"}}, productSpec)
	assert.Equal(t, []string{"name"}, shaped.Columns)

	shaped = Shape(1, Params{Fields: []string{"bogus"}}, productSpec)
	assert.Equal(t, productSpec.AllColumns, shaped.Columns)
}

func TestShapeProjectionAlwaysKeepsID(t *testing.T) {
	spec := productSpec
	spec.Columns = map[string]string{"id": "id", "name": "name", "quantity": "quantity"}

	shaped := Shape(1, Params{Fields: []string{"name"}}, spec)
	assert.Equal(t, []string{"id", "name"}, shaped.Columns)

	// explicitly requested id is not duplicated
	shaped = Shape(1, Params{Fields: []string{"quantity", "id", "quantity"}}, spec)
	assert.Equal(t, []string{"quantity", "id"}, shaped.Columns)
}

func TestShapePaginationDefaultsAndOffset(t *testing.T) {
	shaped := Shape(1, Params{}, productSpec)
	assert.Equal(t, 1, shaped.Page)
	assert.Equal(t, 10, shaped.Limit)
	assert.Equal(t, 0, shaped.Offset)

	shaped = Shape(1, Params{Page: 4, Limit: 25}, productSpec)
	assert.Equal(t, 75, shaped.Offset)

	shaped = Shape(1, Params{Page: -2, Limit: 0}, productSpec)
	assert.Equal(t, 1, shaped.Page)
	assert.Equal(t, 10, shaped.Limit)
}
