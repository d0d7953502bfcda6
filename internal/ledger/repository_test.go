package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every column the shaper may project must scan into an event field,
// otherwise a fields= request would break the list query. The computed
// productName columns are filter-only and stay out of the projection maps.
func TestSalesListSpecColumnsAreScannable(t *testing.T) {
	var e SaleEvent
	for _, col := range SalesListSpec.AllColumns {
		_, ok := e.scanTarget(col)
		assert.True(t, ok, col)
	}
	for field, col := range SalesListSpec.Columns {
		_, ok := e.scanTarget(col)
		assert.True(t, ok, field)
	}
}

func TestExpensesListSpecColumnsAreScannable(t *testing.T) {
	var e ExpenseEvent
	for _, col := range ExpensesListSpec.AllColumns {
		_, ok := e.scanTarget(col)
		assert.True(t, ok, col)
	}
	for field, col := range ExpensesListSpec.Columns {
		_, ok := e.scanTarget(col)
		assert.True(t, ok, field)
	}
}
