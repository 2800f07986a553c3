package interchange

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written on export
const SheetName = "PPCP"

// ExportFilename is the download name of an exported workbook
const ExportFilename = "ppcp_data.xlsx"

// WriteXLSX writes rows as a single-sheet workbook with a header row
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, line := range tableFromRows(rows) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(line))
		for j, v := range line {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return f.Write(w)
}

// ReadXLSX reads the first sheet of a workbook into rows keyed by header
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Source: "xlsx", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Source: "xlsx", Err: fmt.Errorf("workbook has no sheets")}
	}

	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Source: "xlsx", Err: err}
	}
	return rowsFromTable("xlsx", table)
}

// WriteCSV writes rows as comma-separated values with a header line
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(tableFromRows(rows)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ReadCSV reads comma-separated values with a header line
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	table, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Source: "csv", Err: err}
	}
	return rowsFromTable("csv", table)
}
