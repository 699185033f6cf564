package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"p9e.in/requisition/models"
)

// ParseRows turns a header row plus data rows into master records. Cells must
// already be text; short rows read as empty cells.
func ParseRows(rows [][]string) ([]models.MasterRecord, error) {
	if len(rows) < 2 {
		return nil, &Error{Err: ErrNoDataRows}
	}

	header := rows[0]
	cols := MapColumns(header)
	if missing := cols.Missing(); len(missing) > 0 {
		return nil, &Error{Err: ErrMissingColumns, Missing: missing, Found: nonEmpty(header)}
	}

	records := make([]models.MasterRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.MasterRecord{
			Category:    cell(row, cols.Category),
			SKUCode:     cell(row, cols.SKUCode),
			SKUName:     cell(row, cols.SKUName),
			QtyPerUnit:  cell(row, cols.QtyPerUnit),
			Unit:        cell(row, cols.Unit),
			QtyPerPack:  cell(row, cols.QtyPerPack),
			PackUnit:    cell(row, cols.PackUnit),
			RawMaterial: cell(row, cols.RawMaterial),
			QtyPerBatch: cell(row, cols.QtyPerBatch),
			BatchUnit:   cell(row, cols.BatchUnit),
			Type:        cell(row, cols.Type),
		}
		if rec.HasKey() {
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, &Error{Err: ErrNoValidRows}
	}
	return records, nil
}

// ReadWorkbook parses the first sheet of an xlsx workbook.
func ReadWorkbook(r io.Reader) ([]models.MasterRecord, error) {
	rows, err := WorkbookRows(r)
	if err != nil {
		return nil, err
	}
	return ParseRows(rows)
}

// WorkbookRows returns the raw rows of the first sheet of an xlsx workbook.
func WorkbookRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &Error{Err: ErrUnreadable, Detail: err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &Error{Err: ErrUnreadable, Detail: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &Error{Err: ErrUnreadable, Detail: fmt.Sprintf("read sheet %q: %v", sheets[0], err)}
	}
	return rows, nil
}

// ReadCSV parses a comma-separated master table with the same header rules.
func ReadCSV(r io.Reader) ([]models.MasterRecord, error) {
	rows, err := CSVRows(r)
	if err != nil {
		return nil, err
	}
	return ParseRows(rows)
}

// CSVRows returns the raw rows of a CSV file without its byte order mark.
func CSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &Error{Err: ErrUnreadable, Detail: err.Error()}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// Rows returns the raw rows of a master file, picking the decoder from the
// file name. Anything that is not a .csv is treated as a workbook.
func Rows(fileName string, r io.Reader) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return CSVRows(r)
	}
	return WorkbookRows(r)
}

// Read parses a master file of either format.
func Read(fileName string, r io.Reader) ([]models.MasterRecord, error) {
	rows, err := Rows(fileName, r)
	if err != nil {
		return nil, err
	}
	return ParseRows(rows)
}

// ReadBytes is Read over an in-memory upload.
func ReadBytes(fileName string, data []byte) ([]models.MasterRecord, error) {
	return Read(fileName, bytes.NewReader(data))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func nonEmpty(header []string) []string {
	var out []string
	for _, h := range header {
		if s := strings.TrimSpace(h); s != "" {
			out = append(out, s)
		}
	}
	return out
}
