package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var fullLayout = []string{
	"Category", "SKU Code", "SKU", "Quantity per Unit", "Unit", "Quantity per Pack", "Unit",
	"Raw Material", "Quantity/Batch", "Unit", "Type",
}

var simpleLayout = []string{"Category", "SKU Code", "SKU", "Raw Material", "Quantity/Batch", "Unit"}

func TestMapColumns_FullLayout(t *testing.T) {
	c := MapColumns(fullLayout)

	assert.Equal(t, ColumnMap{
		Category:    0,
		SKUCode:     1,
		SKUName:     2,
		QtyPerUnit:  3,
		Unit:        4,
		QtyPerPack:  5,
		PackUnit:    6,
		RawMaterial: 7,
		QtyPerBatch: 8,
		BatchUnit:   9,
		Type:        10,
	}, c)
}

func TestMapColumns_SimpleLayout(t *testing.T) {
	c := MapColumns(simpleLayout)

	assert.Equal(t, 0, c.Category)
	assert.Equal(t, 1, c.SKUCode)
	assert.Equal(t, 2, c.SKUName)
	assert.Equal(t, 3, c.RawMaterial)
	assert.Equal(t, 4, c.QtyPerBatch)
	assert.Equal(t, 5, c.BatchUnit)
	assert.Equal(t, -1, c.Unit, "batch unit column must not double as the plain unit")
	assert.Equal(t, -1, c.QtyPerUnit)
	assert.Equal(t, -1, c.QtyPerPack)
	assert.Equal(t, -1, c.PackUnit)
	assert.Equal(t, -1, c.Type)
	assert.Empty(t, c.Missing())
}

func TestMapColumns_OrderAndCaseIndependent(t *testing.T) {
	c := MapColumns([]string{"  raw MATERIAL ", "sku", "SKU CODE", "CATEGORY", "unit2", "UNIT4"})

	assert.Equal(t, 3, c.Category)
	assert.Equal(t, 2, c.SKUCode)
	assert.Equal(t, 1, c.SKUName)
	assert.Equal(t, 0, c.RawMaterial)
	assert.Equal(t, 4, c.PackUnit)
	assert.Equal(t, 5, c.BatchUnit)
}

func TestMapColumns_SKUNameExclusions(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"code column is not a name", []string{"SKU Code", "SKU Name"}, 1},
		{"quantity column is not a name", []string{"SKU Quantity", "SKU"}, 1},
		{"no plain sku column", []string{"SKU Code"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapColumns(tt.header).SKUName)
		})
	}
}

func TestColumnMap_Missing(t *testing.T) {
	c := MapColumns([]string{"SKU", "Raw Material"})
	assert.Equal(t, []string{"category", "sku code"}, c.Missing())
}
