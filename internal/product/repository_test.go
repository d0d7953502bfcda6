package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every column the shaper may project must scan into a Product field,
// otherwise a fields= request would break the list query.
func TestListSpecColumnsAreScannable(t *testing.T) {
	var p Product
	for _, col := range ListSpec.AllColumns {
		_, ok := p.scanTarget(col)
		assert.True(t, ok, col)
	}
	for field, col := range ListSpec.Columns {
		_, ok := p.scanTarget(col)
		assert.True(t, ok, field)
	}
}
