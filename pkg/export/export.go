// Package export writes the requisition as an xlsx workbook.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"p9e.in/requisition/models"
	"p9e.in/requisition/pkg/requisition"
)

// SheetName is the only sheet in an exported workbook.
const SheetName = "Requisition"

// HeaderRow is the 1-based row holding the table header; data starts below it.
const HeaderRow = 5

// ErrNoDataToExport is returned when no line passes the active filter.
var ErrNoDataToExport = errors.New("no data to export")

// Columns is the fixed table layout.
var Columns = []struct {
	Title string
	Width float64
}{
	{"SKU Code", 12},
	{"SKU", 30},
	{"Category", 15},
	{"Qty Needed", 10},
	{"Supplier", 20},
	{"Qty/Unit", 10},
	{"Unit", 8},
	{"Qty/Pack", 10},
	{"Pack Unit", 10},
	{"Raw Material", 35},
	{"Qty/Batch", 12},
	{"Unit", 8},
	{"Type", 12},
	{"Total Req", 15},
}

// Meta is the header block content.
type Meta struct {
	FileName    string
	GeneratedAt time.Time
}

// Build creates the workbook. Every (line, material) pair becomes one row.
func Build(lines []models.RequisitionLine, meta Meta) (*excelize.File, error) {
	if len(lines) == 0 {
		return nil, ErrNoDataToExport
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeSheet(f, lines, meta); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Rows returns the table rows Build writes below the header.
func Rows(lines []models.RequisitionLine) [][]interface{} {
	var rows [][]interface{}
	for _, l := range lines {
		for _, m := range l.Materials {
			total := requisition.Total(m.Qty, l.QtyNeeded)
			rows = append(rows, []interface{}{
				l.SKUCode, l.SKUName, l.Category, l.QtyNeeded, l.Supplier,
				l.QtyPerUnit, l.Unit, l.QtyPerPack, l.PackUnit,
				m.Name, m.Qty, m.Unit, m.Type, requisition.FormatTotal(total, m.Unit),
			})
		}
	}
	return rows
}

// WriteBuffer builds the workbook and returns its bytes.
func WriteBuffer(lines []models.RequisitionLine, meta Meta) (*bytes.Buffer, error) {
	f, err := Build(lines, meta)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// FileName is the download name for a workbook generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("Requisition_%s.xlsx", t.Format("20060102"))
}

func writeSheet(f *excelize.File, lines []models.RequisitionLine, meta Meta) error {
	source := meta.FileName
	if source == "" {
		source = "None"
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#D9E1F2"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	block := [][]interface{}{
		{"RAW MATERIAL REQUISITION"},
		{"Generated", meta.GeneratedAt.Format("1/2/2006, 3:04:05 PM")},
		{"File", source},
	}
	for i, row := range block {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write header block: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", titleStyle); err != nil {
		return fmt.Errorf("style title: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c.Title
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, c.Width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	headerCell, _ := excelize.CoordinatesToCellName(1, HeaderRow)
	if err := f.SetSheetRow(SheetName, headerCell, &header); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, headerCell, fmt.Sprintf("%s%d", lastCol, HeaderRow), headerStyle); err != nil {
		return fmt.Errorf("style table header: %w", err)
	}

	for i, row := range Rows(lines) {
		cell, _ := excelize.CoordinatesToCellName(1, HeaderRow+1+i)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}
