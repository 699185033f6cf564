package models

// MasterRecord is one row of the uploaded master table. Several records share
// a (category, SKU code, SKU name) key, one per raw material of that SKU.
//
// The JSON keys keep the column captions the browser tool used so that blobs
// already sitting in a remote mirror restore without conversion.
type MasterRecord struct {
	Category    string `json:"CATEGORY"`
	SKUCode     string `json:"SKU CODE"`
	SKUName     string `json:"SKU"`
	QtyPerUnit  string `json:"QUANTITY PER UNIT"`
	Unit        string `json:"UNIT"`
	QtyPerPack  string `json:"QUANTITY PER PACK"`
	PackUnit    string `json:"UNIT2"`
	RawMaterial string `json:"RAW MATERIAL"`
	QtyPerBatch string `json:"QUANTITY/BATCH"`
	BatchUnit   string `json:"UNIT4"`
	Type        string `json:"TYPE"`
}

// HasKey reports whether the record carries the three identifying fields.
func (m MasterRecord) HasKey() bool {
	return m.Category != "" && m.SKUCode != "" && m.SKUName != ""
}

// Matches reports whether the record belongs to the given SKU.
func (m MasterRecord) Matches(skuCode, skuName string) bool {
	return m.SKUCode == skuCode && m.SKUName == skuName
}

// UnitInfo is the unit-conversion snapshot copied onto a requisition line.
type UnitInfo struct {
	QtyPerUnit string `json:"qtyPerUnit"`
	Unit       string `json:"unit"`
	QtyPerPack string `json:"qtyPerPack"`
	PackUnit   string `json:"unit2"`
}

// UnitInfo extracts the record's unit-conversion fields.
func (m MasterRecord) UnitInfo() UnitInfo {
	return UnitInfo{
		QtyPerUnit: m.QtyPerUnit,
		Unit:       m.Unit,
		QtyPerPack: m.QtyPerPack,
		PackUnit:   m.PackUnit,
	}
}

// MaterialRequirement is one bill-of-materials entry captured when a line is added.
type MaterialRequirement struct {
	Name string `json:"name"`
	Qty  string `json:"qty"`
	Unit string `json:"unit"`
	Type string `json:"type"`
}
