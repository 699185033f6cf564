// Package masterdata derives the lookups the requisition form needs from the
// imported master table. An Index never owns records; rebuild it whenever the
// master data is replaced.
package masterdata

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"p9e.in/requisition/models"
)

// SKUOption is one selectable SKU within a category.
type SKUOption struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Index is a read-only view over master records.
type Index struct {
	records    []models.MasterRecord
	categories []string
	byCategory map[string][]SKUOption
}

// New builds an index. The records slice is not copied and must not be
// mutated while the index is in use.
func New(records []models.MasterRecord) *Index {
	idx := &Index{
		records:    records,
		byCategory: make(map[string][]SKUOption),
	}

	seenCategory := make(map[string]bool)
	seenName := make(map[string]map[string]bool)
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		if !seenCategory[r.Category] {
			seenCategory[r.Category] = true
			idx.categories = append(idx.categories, r.Category)
			seenName[r.Category] = make(map[string]bool)
		}
		if r.SKUName == "" || r.SKUCode == "" || seenName[r.Category][r.SKUName] {
			continue
		}
		seenName[r.Category][r.SKUName] = true
		idx.byCategory[r.Category] = append(idx.byCategory[r.Category], SKUOption{Name: r.SKUName, Code: r.SKUCode})
	}

	sort.Strings(idx.categories)

	col := collate.New(language.English)
	for _, opts := range idx.byCategory {
		sort.SliceStable(opts, func(i, j int) bool {
			return col.CompareString(opts[i].Name, opts[j].Name) < 0
		})
	}
	return idx
}

// Len is the number of master records behind the index.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Categories returns the distinct categories in sorted order.
func (idx *Index) Categories() []string {
	return append([]string{}, idx.categories...)
}

// SKUsForCategory lists the SKUs of a category sorted by name. When a name
// appears with several codes the first one seen wins.
func (idx *Index) SKUsForCategory(category string) []SKUOption {
	return append([]SKUOption{}, idx.byCategory[category]...)
}

// Lookup reports whether any record matches the SKU.
func (idx *Index) Lookup(skuCode, skuName string) bool {
	_, ok := idx.UnitInfoFor(skuCode, skuName)
	return ok
}

// MaterialsFor returns the bill of materials of a SKU: every matching record
// that names a raw material.
func (idx *Index) MaterialsFor(skuCode, skuName string) []models.MaterialRequirement {
	var mats []models.MaterialRequirement
	for _, r := range idx.records {
		if !r.Matches(skuCode, skuName) || r.RawMaterial == "" {
			continue
		}
		mats = append(mats, models.MaterialRequirement{
			Name: r.RawMaterial,
			Qty:  r.QtyPerBatch,
			Unit: r.BatchUnit,
			Type: r.Type,
		})
	}
	return mats
}

// UnitInfoFor returns the unit-conversion fields of the first matching record.
func (idx *Index) UnitInfoFor(skuCode, skuName string) (models.UnitInfo, bool) {
	for _, r := range idx.records {
		if r.Matches(skuCode, skuName) {
			return r.UnitInfo(), true
		}
	}
	return models.UnitInfo{}, false
}
