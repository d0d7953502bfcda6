package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFilterScopesToOwner(t *testing.T) {
	f := newLineFilter(7)

	assert.Equal(t, "s.owner_id = $1", f.where())
	require.Len(t, f.args, 1)
	assert.Equal(t, int64(7), f.args[0])
}

func TestLineFilterPaidOnlyRestrictsToSettledSales(t *testing.T) {
	f := newLineFilter(7)
	f.paidOnly()

	assert.Equal(t, "s.owner_id = $1 AND s.status = 'PAID'", f.where())
	// the status literal carries no argument
	assert.Len(t, f.args, 1)
}

func TestLineFilterPaidInYearBucketsByPaidAt(t *testing.T) {
	f := newLineFilter(7)
	f.paidInYear(2025)

	where := f.where()
	assert.Contains(t, where, "s.status = 'PAID'")
	assert.Contains(t, where, "EXTRACT(YEAR FROM s.paid_at) = $2")
	// revenue buckets follow payment, never the order date
	assert.NotContains(t, where, "s.date")
	require.Len(t, f.args, 2)
	assert.Equal(t, 2025, f.args[1])
}

func TestLineFilterCategory(t *testing.T) {
	f := newLineFilter(7)
	f.inCategory(nil)
	assert.Equal(t, "s.owner_id = $1", f.where())
	assert.Len(t, f.args, 1)

	category := int64(3)
	f.inCategory(&category)
	assert.Equal(t, "s.owner_id = $1 AND p.category_id = $2", f.where())
	require.Len(t, f.args, 2)
	assert.Equal(t, int64(3), f.args[1])
}
