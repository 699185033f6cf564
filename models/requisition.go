package models

import "github.com/google/uuid"

// Quantity bounds for a requisition line.
const (
	MinQtyNeeded = 1
	MaxQtyNeeded = 99
)

// RequisitionLine is a user-requested quantity of one SKU. Materials is a
// snapshot taken at add time, not a live reference into master data.
type RequisitionLine struct {
	ID        uuid.UUID `json:"id"`
	SKUCode   string    `json:"skuCode"`
	SKUName   string    `json:"skuName"`
	Category  string    `json:"category"`
	QtyNeeded int       `json:"qtyNeeded"`
	Supplier  string    `json:"supplier"`
	UnitInfo
	Materials []MaterialRequirement `json:"materials"`
}

// Clone returns a deep copy of the line.
func (l RequisitionLine) Clone() RequisitionLine {
	c := l
	c.Materials = append([]MaterialRequirement(nil), l.Materials...)
	return c
}
