// Package listing translates generic list/filter/paginate request parameters
// into owner-scoped SQL query fragments. It backs the simple listing
// endpoints; the stock ledger and the dashboard aggregator build their own
// fixed query shapes and do not use it.
package listing

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Params is the generic request shape accepted by list endpoints.
type Params struct {
	Filters map[string]string
	Sort    string
	Fields  []string
	Page    int
	Limit   int
}

// ParseQuery extracts Params from URL query values. The reserved keys page,
// limit, sort and fields control shaping; every other key is treated as a
// filter.
func ParseQuery(values url.Values) Params {
	p := Params{Filters: map[string]string{}}
	for key := range values {
		v := values.Get(key)
		switch key {
		case "page":
			p.Page, _ = strconv.Atoi(v)
		case "limit":
			p.Limit, _ = strconv.Atoi(v)
		case "sort":
			p.Sort = v
		case "fields":
			for _, f := range strings.Split(v, ",") {
				if f = strings.TrimSpace(f); f != "" {
					p.Fields = append(p.Fields, f)
				}
			}
		default:
			p.Filters[key] = v
		}
	}
	return p
}

// Spec declares how a collection may be filtered, sorted and projected.
// Filter keys not named by the spec are ignored.
type Spec struct {
	// TextFields maps filter keys to columns matched by case-insensitive
	// substring (ILIKE).
	TextFields map[string]string
	// ExactFields maps filter keys to columns matched by equality.
	ExactFields map[string]string
	// NumericFields maps base filter keys to columns. A key may carry one
	// of the suffixes _gte, _gt, _lte, _lt to select a range operator;
	// without a suffix the match is equality.
	NumericFields map[string]string
	// SortFields maps sort keys to columns.
	SortFields map[string]string
	// Columns maps projection field names to columns.
	Columns map[string]string
	// AllColumns is the default projection, in declaration order.
	AllColumns []string
	// DefaultSort is applied when the request names no sort key, e.g. "-date".
	DefaultSort string
}

// Shaped holds ready-to-append SQL fragments for one list query. Where always
// begins with the owner predicate, so a caller can never accidentally read
// across tenants.
type Shaped struct {
	Where   string
	Args    []any
	OrderBy string
	Columns []string
	Page    int
	Limit   int
	Offset  int
}

var rangeOps = []struct {
	suffix string
	op     string
}{
	{"_gte", ">="},
	{"_gt", ">"},
	{"_lte", "<="},
	{"_lt", "<"},
}

// Shape builds the query fragments for one owner-scoped listing.
func Shape(ownerID int64, p Params, spec Spec) Shaped {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	conds = append(conds, "owner_id = "+next(ownerID))

	for key, raw := range p.Filters {
		if raw == "" {
			continue
		}
		if col, ok := spec.TextFields[key]; ok {
			conds = append(conds, col+" ILIKE "+next("%"+raw+"%"))
			continue
		}
		if col, ok := spec.ExactFields[key]; ok {
			conds = append(conds, col+" = "+next(raw))
			continue
		}
		base, op := key, "="
		for _, r := range rangeOps {
			if strings.HasSuffix(key, r.suffix) {
				base, op = strings.TrimSuffix(key, r.suffix), r.op
				break
			}
		}
		if col, ok := spec.NumericFields[base]; ok {
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				conds = append(conds, col+" "+op+" "+next(n))
			}
		}
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = 10
	}

	return Shaped{
		Where:   strings.Join(conds, " AND "),
		Args:    args,
		OrderBy: orderBy(p.Sort, spec),
		Columns: projection(p.Fields, spec),
		Page:    page,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
}

func orderBy(sort string, spec Spec) string {
	if sort == "" {
		sort = spec.DefaultSort
	}
	var parts []string
	for _, key := range strings.Split(sort, ",") {
		key = strings.TrimSpace(key)
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			key = strings.TrimPrefix(key, "-")
			dir = "DESC"
		}
		if col, ok := spec.SortFields[key]; ok {
			parts = append(parts, col+" "+dir)
		}
	}
	if len(parts) == 0 {
		return "id DESC"
	}
	return strings.Join(parts, ", ")
}

func projection(fields []string, spec Spec) []string {
	var cols []string
	for _, f := range fields {
		if col, ok := spec.Columns[f]; ok && !slices.Contains(cols, col) {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return spec.AllColumns
	}
	// The entity id is always selected: repositories key row post-processing
	// on it even when the client projects it away.
	if id, ok := spec.Columns["id"]; ok && !slices.Contains(cols, id) {
		cols = append([]string{id}, cols...)
	}
	return cols
}
