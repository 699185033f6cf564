package ingest

import (
	"fmt"
	"strings"
)

// ColumnMap holds the resolved column index of every logical field, -1 when
// the header has no matching column.
type ColumnMap struct {
	Category    int `json:"category"`
	SKUCode     int `json:"skuCode"`
	SKUName     int `json:"skuName"`
	QtyPerUnit  int `json:"qtyPerUnit"`
	Unit        int `json:"unit"`
	QtyPerPack  int `json:"qtyPerPack"`
	PackUnit    int `json:"packUnit"`
	RawMaterial int `json:"rawMaterial"`
	QtyPerBatch int `json:"qtyPerBatch"`
	BatchUnit   int `json:"batchUnit"`
	Type        int `json:"type"`
}

// Missing lists the required fields the header did not provide.
func (c ColumnMap) Missing() []string {
	var missing []string
	if c.Category < 0 {
		missing = append(missing, "category")
	}
	if c.SKUCode < 0 {
		missing = append(missing, "sku code")
	}
	if c.SKUName < 0 {
		missing = append(missing, "sku name")
	}
	return missing
}

// String renders the map for diagnostics.
func (c ColumnMap) String() string {
	return fmt.Sprintf("category=%d skuCode=%d skuName=%d qtyPerUnit=%d unit=%d qtyPerPack=%d packUnit=%d raw=%d qtyBatch=%d batchUnit=%d type=%d",
		c.Category, c.SKUCode, c.SKUName, c.QtyPerUnit, c.Unit, c.QtyPerPack, c.PackUnit,
		c.RawMaterial, c.QtyPerBatch, c.BatchUnit, c.Type)
}

// NormalizeHeader trims and lowercases every header cell.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// MapColumns resolves logical fields against a header row. Matching is
// case-insensitive and order-independent; the first matching column wins.
//
// The second and third "unit" columns of the full layout are told apart by
// the header immediately before them ("... pack" or "... batch"). Layouts
// that put those columns elsewhere may be mis-mapped.
func MapColumns(header []string) ColumnMap {
	h := NormalizeHeader(header)

	prev := func(i int) string {
		if i == 0 {
			return ""
		}
		return h[i-1]
	}
	has := func(s string, tokens ...string) bool {
		for _, t := range tokens {
			if !strings.Contains(s, t) {
				return false
			}
		}
		return true
	}
	find := func(match func(i int, s string) bool) int {
		for i, s := range h {
			if match(i, s) {
				return i
			}
		}
		return -1
	}

	c := ColumnMap{
		Category: find(func(_ int, s string) bool { return has(s, "category") }),
		SKUCode:  find(func(_ int, s string) bool { return has(s, "sku", "code") }),
		SKUName: find(func(_ int, s string) bool {
			return has(s, "sku") && !strings.Contains(s, "code") && !strings.Contains(s, "quantity")
		}),
		QtyPerUnit: find(func(_ int, s string) bool {
			return has(s, "quantity", "per", "unit") && !strings.Contains(s, "pack")
		}),
		QtyPerPack: find(func(_ int, s string) bool { return has(s, "quantity", "per", "pack") }),
		PackUnit: find(func(i int, s string) bool {
			return s == "unit2" || (strings.Contains(s, "unit") && strings.Contains(prev(i), "pack"))
		}),
		RawMaterial: find(func(_ int, s string) bool { return has(s, "raw", "material") }),
		QtyPerBatch: find(func(_ int, s string) bool { return has(s, "quantity", "batch") }),
		BatchUnit: find(func(i int, s string) bool {
			return strings.Contains(s, "unit") && (strings.Contains(s, "4") || strings.Contains(prev(i), "batch"))
		}),
		Type: find(func(_ int, s string) bool { return strings.Contains(s, "type") }),
	}

	// The plain unit column must not steal a column already claimed as the
	// pack or batch unit.
	c.Unit = find(func(i int, s string) bool {
		return s == "unit" && i != c.PackUnit && i != c.BatchUnit
	})

	return c
}
