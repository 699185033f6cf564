package requisition

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"p9e.in/requisition/models"
)

// DefaultPageSize is the number of lines shown per page.
const DefaultPageSize = 8

// SortField names a sortable line attribute.
type SortField string

const (
	SortNone       SortField = ""
	SortSKUCode    SortField = "skuCode"
	SortSKUName    SortField = "skuName"
	SortCategory   SortField = "category"
	SortQtyNeeded  SortField = "qtyNeeded"
	SortSupplier   SortField = "supplier"
	SortQtyPerUnit SortField = "qtyPerUnit"
	SortUnit       SortField = "unit"
	SortQtyPerPack SortField = "qtyPerPack"
	SortPackUnit   SortField = "unit2"
)

// Valid reports whether the field can be sorted on.
func (f SortField) Valid() bool {
	switch f {
	case SortNone, SortSKUCode, SortSKUName, SortCategory, SortQtyNeeded,
		SortSupplier, SortQtyPerUnit, SortUnit, SortQtyPerPack, SortPackUnit:
		return true
	}
	return false
}

func (f SortField) value(l models.RequisitionLine) string {
	switch f {
	case SortSKUCode:
		return l.SKUCode
	case SortSKUName:
		return l.SKUName
	case SortCategory:
		return l.Category
	case SortQtyNeeded:
		return strconv.Itoa(l.QtyNeeded)
	case SortSupplier:
		return l.Supplier
	case SortQtyPerUnit:
		return l.QtyPerUnit
	case SortUnit:
		return l.Unit
	case SortQtyPerPack:
		return l.QtyPerPack
	case SortPackUnit:
		return l.PackUnit
	}
	return ""
}

// SortState is the active sort column and direction.
type SortState struct {
	Field SortField `json:"field"`
	Asc   bool      `json:"asc"`
}

// Toggle selects a column: the same column flips direction, a new column
// starts ascending.
func (s SortState) Toggle(f SortField) SortState {
	if s.Field == f {
		return SortState{Field: f, Asc: !s.Asc}
	}
	return SortState{Field: f, Asc: true}
}

// Query is everything a projection depends on besides the lines.
type Query struct {
	Search   string
	Sort     SortState
	Page     int
	PageSize int
}

// MaterialTotal is a material with its requirement for the line's quantity.
type MaterialTotal struct {
	models.MaterialRequirement
	Total   decimal.Decimal `json:"total"`
	Display string          `json:"display"`
}

// LineView is a projected line. Index is the line's position in the store,
// which is what mutations address.
type LineView struct {
	Index int `json:"index"`
	models.RequisitionLine
	MaterialCount int             `json:"materialCount"`
	Totals        []MaterialTotal `json:"totals"`
}

// Page is one page of the projection plus pagination metadata.
type Page struct {
	Lines      []LineView `json:"lines"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	PageSize   int        `json:"pageSize"`
	Filtered   int        `json:"filtered"`
	Total      int        `json:"total"`
	HasPrev    bool       `json:"hasPrev"`
	HasNext    bool       `json:"hasNext"`
	Search     string     `json:"search"`
	Sort       SortState  `json:"sort"`
}

// Filtered returns the lines passing the search, in display order. The
// result is what an export covers.
func Filtered(lines []models.RequisitionLine, search string, s SortState) []LineView {
	q := strings.ToLower(strings.TrimSpace(search))

	out := make([]LineView, 0, len(lines))
	for i, l := range lines {
		if q != "" && !matches(l, q) {
			continue
		}
		out = append(out, LineView{Index: i, RequisitionLine: l})
	}

	if s.Field != SortNone {
		sort.SliceStable(out, func(i, j int) bool {
			a := strings.ToLower(s.Field.value(out[i].RequisitionLine))
			b := strings.ToLower(s.Field.value(out[j].RequisitionLine))
			if s.Asc {
				return a < b
			}
			return a > b
		})
	}
	return out
}

// Project filters, sorts and paginates lines. It never mutates its input.
func Project(lines []models.RequisitionLine, q Query) Page {
	size := q.PageSize
	if size < 1 {
		size = DefaultPageSize
	}

	all := Filtered(lines, q.Search, q.Sort)
	pages := TotalPages(len(all), size)
	page := ClampPage(q.Page, pages)

	start := (page - 1) * size
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	view := make([]LineView, 0, end-start)
	for _, lv := range all[start:end] {
		lv.RequisitionLine = lv.RequisitionLine.Clone()
		lv.MaterialCount = len(lv.Materials)
		lv.Totals = Totals(lv.RequisitionLine)
		view = append(view, lv)
	}

	return Page{
		Lines:      view,
		Page:       page,
		TotalPages: pages,
		PageSize:   size,
		Filtered:   len(all),
		Total:      len(lines),
		HasPrev:    page > 1,
		HasNext:    page < pages,
		Search:     q.Search,
		Sort:       q.Sort,
	}
}

// Totals computes the per-material requirement of a line.
func Totals(l models.RequisitionLine) []MaterialTotal {
	out := make([]MaterialTotal, len(l.Materials))
	for i, m := range l.Materials {
		total := Total(m.Qty, l.QtyNeeded)
		out[i] = MaterialTotal{
			MaterialRequirement: m,
			Total:               total,
			Display:             FormatTotal(total, m.Unit),
		}
	}
	return out
}

// TotalPages is ceil(n/size), and 1 for an empty list.
func TotalPages(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage keeps a page number within [1, pages].
func ClampPage(page, pages int) int {
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return page
}

func matches(l models.RequisitionLine, q string) bool {
	return strings.Contains(strings.ToLower(l.SKUCode), q) ||
		strings.Contains(strings.ToLower(l.SKUName), q) ||
		strings.Contains(strings.ToLower(l.Category), q)
}
