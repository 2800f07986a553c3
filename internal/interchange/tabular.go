// Package interchange converts the entry collection to and from its two
// external forms: a spreadsheet table with DD/MM/YYYY dates, and a JSON
// snapshot that keeps canonical dates. Date format conversion lives here and
// nowhere else.
package interchange

import (
	"errors"
	"fmt"
	"strings"

	"ppcp-backend/internal/models"
	"ppcp-backend/internal/timeutil"
)

// Columns is the header row of an exported sheet, in column order
var Columns = []string{
	models.FieldID,
	models.FieldOrderCode,
	models.FieldPartNumber,
	models.FieldExternalCode,
	models.FieldPlannedProductionDate,
	models.FieldPlannedTreatmentDate,
	models.FieldPlannedTreatmentReturnDate,
	models.FieldPlannedDeliveryDate,
	models.FieldHasControlDocument,
	models.FieldControlDocumentNumber,
	models.FieldHasFollowSheet,
	models.FieldStatus,
	models.FieldPriority,
}

// optionalColumns may be absent from an imported header
var optionalColumns = map[string]bool{
	models.FieldID:                    true,
	models.FieldControlDocumentNumber: true,
}

// Row is one loosely-typed sheet row keyed by column header
type Row map[string]string

// RowError is an imported row that was rejected. Line is the sheet line
// number (the header is line 1).
type RowError struct {
	Line int    `json:"line"`
	ID   string `json:"id,omitempty"`
	Err  error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ImportResult holds the accepted entries, in sheet order, and the rejected rows
type ImportResult struct {
	Entries  []models.Entry
	Rejected []RowError
}

// FormatDisplayDate converts a canonical date to DD/MM/YYYY. Values that do
// not parse are returned unchanged so a bad cell never breaks a whole view.
func FormatDisplayDate(canonical string) string {
	if canonical == "" {
		return ""
	}
	t, err := timeutil.ParseDate(timeutil.CanonicalLayout, canonical)
	if err != nil {
		return canonical
	}
	return t.Format(timeutil.DisplayLayout)
}

// ParseDisplayDate converts a DD/MM/YYYY cell to canonical form. A cell that is
// already canonical is re-parsed and accepted.
func ParseDisplayDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if t, err := timeutil.ParseDate(timeutil.DisplayLayout, value); err == nil {
		return t.Format(timeutil.CanonicalLayout), nil
	}
	if t, err := timeutil.ParseDate(timeutil.CanonicalLayout, value); err == nil {
		return t.Format(timeutil.CanonicalLayout), nil
	}
	return "", fmt.Errorf("invalid date %q, expected DD/MM/YYYY", value)
}

// ExportRows maps each entry to one row, dates in display form
func ExportRows(entries []models.Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			models.FieldID:                         e.ID,
			models.FieldOrderCode:                  e.OrderCode,
			models.FieldPartNumber:                 e.PartNumber,
			models.FieldExternalCode:               e.ExternalCode,
			models.FieldPlannedProductionDate:      FormatDisplayDate(e.PlannedProductionDate),
			models.FieldPlannedTreatmentDate:       FormatDisplayDate(e.PlannedTreatmentDate),
			models.FieldPlannedTreatmentReturnDate: FormatDisplayDate(e.PlannedTreatmentReturnDate),
			models.FieldPlannedDeliveryDate:        FormatDisplayDate(e.PlannedDeliveryDate),
			models.FieldHasControlDocument:         string(e.HasControlDocument),
			models.FieldControlDocumentNumber:      e.ControlDocumentNumber,
			models.FieldHasFollowSheet:             string(e.HasFollowSheet),
			models.FieldStatus:                     string(e.Status),
			models.FieldPriority:                   string(e.Priority),
		})
	}
	return rows
}

// ImportRows validates every row on its own. Invalid rows are rejected and
// reported; valid rows are kept. A row without an id gets one from newID, and
// a row repeating an id already accepted in this run is rejected.
func ImportRows(rows []Row, newID models.IDGenerator) ImportResult {
	res := ImportResult{Entries: make([]models.Entry, 0, len(rows))}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		line := i + 2
		if row.blank() {
			continue
		}

		id := strings.TrimSpace(row[models.FieldID])
		fields, dateErr := row.fields()

		if id != "" && seen[id] {
			res.Rejected = append(res.Rejected, RowError{Line: line, ID: id, Err: fmt.Errorf("duplicate id %q", id)})
			continue
		}
		if dateErr != nil {
			res.Rejected = append(res.Rejected, RowError{Line: line, ID: id, Err: mergeRowErrors(dateErr, fields)})
			continue
		}

		if id == "" {
			id = newID()
		}
		e, err := models.NewEntry(fields, id)
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Line: line, ID: id, Err: err})
			continue
		}
		seen[id] = true
		res.Entries = append(res.Entries, *e)
	}
	return res
}

// mergeRowErrors adds the field rules the row breaks to its date errors.
// Dates that failed to parse are reported once, as parse failures.
func mergeRowErrors(dateErr error, fields models.EntryFields) error {
	var dates *models.ValidationError
	if !errors.As(dateErr, &dates) {
		return dateErr
	}
	merged := &models.ValidationError{Fields: append([]models.FieldError(nil), dates.Fields...)}
	_, err := models.NewEntry(fields, "")
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			if !dates.Has(f.Field) {
				merged.Fields = append(merged.Fields, f)
			}
		}
	}
	return merged
}

func (r Row) blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// fields converts the row to entry fields. Date cells that fail to parse are
// reported together as one validation error.
func (r Row) fields() (models.EntryFields, error) {
	verr := &models.ValidationError{}
	date := func(field string) string {
		raw := r[field]
		if strings.TrimSpace(raw) == "" {
			verr.Add(field, "obrigatório")
			return ""
		}
		v, err := ParseDisplayDate(raw)
		if err != nil {
			verr.Add(field, "data inválida, esperado DD/MM/AAAA")
			return ""
		}
		return v
	}

	f := models.EntryFields{
		OrderCode:                  r[models.FieldOrderCode],
		PartNumber:                 r[models.FieldPartNumber],
		ExternalCode:               r[models.FieldExternalCode],
		PlannedProductionDate:      date(models.FieldPlannedProductionDate),
		PlannedTreatmentDate:       date(models.FieldPlannedTreatmentDate),
		PlannedTreatmentReturnDate: date(models.FieldPlannedTreatmentReturnDate),
		PlannedDeliveryDate:        date(models.FieldPlannedDeliveryDate),
		HasControlDocument:         r[models.FieldHasControlDocument],
		ControlDocumentNumber:      r[models.FieldControlDocumentNumber],
		HasFollowSheet:             r[models.FieldHasFollowSheet],
		Status:                     r[models.FieldStatus],
		Priority:                   r[models.FieldPriority],
	}
	return f, verr.OrNil()
}

// rowsFromTable turns a header + body table into rows keyed by header name.
// Column order is free; every required column must be present by its exact name.
func rowsFromTable(source string, table [][]string) ([]Row, error) {
	if len(table) == 0 {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("empty sheet")}
	}

	header := make([]string, len(table[0]))
	present := make(map[string]bool, len(header))
	for i, h := range table[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		present[h] = true
	}

	var missing []string
	for _, c := range Columns {
		if !optionalColumns[c] && !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))}
	}

	rows := make([]Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// tableFromRows renders rows under the fixed Columns header
func tableFromRows(rows []Row) [][]string {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, append([]string(nil), Columns...))
	for _, r := range rows {
		line := make([]string, len(Columns))
		for i, c := range Columns {
			line[i] = r[c]
		}
		table = append(table, line)
	}
	return table
}
