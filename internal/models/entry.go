package models

import (
	"strings"

	"ppcp-backend/internal/timeutil"

	"github.com/google/uuid"
)

// Entry is one production order tracked through the workflow.
// JSON keys match the persisted collection and backup files.
type Entry struct {
	ID                         string   `json:"id"`
	OrderCode                  string   `json:"oc"`
	PartNumber                 string   `json:"pn"`
	ExternalCode               string   `json:"codigoE"`
	PlannedProductionDate      string   `json:"dataProd"`    // YYYY-MM-DD
	PlannedTreatmentDate       string   `json:"dataTrat"`    // YYYY-MM-DD
	PlannedTreatmentReturnDate string   `json:"dataRetTrat"` // YYYY-MM-DD
	PlannedDeliveryDate        string   `json:"dataEntrega"` // YYYY-MM-DD
	HasControlDocument         YesNo    `json:"possuiCD"`
	ControlDocumentNumber      string   `json:"numeroCD"`
	HasFollowSheet             YesNo    `json:"fichaSeguidora"`
	Status                     Status   `json:"status"`
	Priority                   Priority `json:"prioridade"`
}

// EntryFields is the request body for creating or editing an entry.
// Values are loose strings; NewEntry/UpdateEntry validate them as a whole.
type EntryFields struct {
	OrderCode                  string `json:"oc"`
	PartNumber                 string `json:"pn"`
	ExternalCode               string `json:"codigoE"`
	PlannedProductionDate      string `json:"dataProd"`
	PlannedTreatmentDate       string `json:"dataTrat"`
	PlannedTreatmentReturnDate string `json:"dataRetTrat"`
	PlannedDeliveryDate        string `json:"dataEntrega"`
	HasControlDocument         string `json:"possuiCD"`
	ControlDocumentNumber      string `json:"numeroCD"`
	HasFollowSheet             string `json:"fichaSeguidora"`
	Status                     string `json:"status"`
	Priority                   string `json:"prioridade"`
}

// Field keys, shared by validation errors, the workbook header and the API
const (
	FieldID                         = "id"
	FieldOrderCode                  = "oc"
	FieldPartNumber                 = "pn"
	FieldExternalCode               = "codigoE"
	FieldPlannedProductionDate      = "dataProd"
	FieldPlannedTreatmentDate       = "dataTrat"
	FieldPlannedTreatmentReturnDate = "dataRetTrat"
	FieldPlannedDeliveryDate        = "dataEntrega"
	FieldHasControlDocument         = "possuiCD"
	FieldControlDocumentNumber      = "numeroCD"
	FieldHasFollowSheet             = "fichaSeguidora"
	FieldStatus                     = "status"
	FieldPriority                   = "prioridade"
)

// IDGenerator mints entry identifiers
type IDGenerator func() string

// NewID returns a time-ordered UUID, unique for the lifetime of the collection
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// DefaultFields returns the values a blank entry form starts with
func DefaultFields() EntryFields {
	return EntryFields{
		HasControlDocument: string(No),
		HasFollowSheet:     string(No),
		Status:             string(StatusNesting),
		Priority:           string(PriorityNormal),
	}
}

// Fields returns the editable part of e
func (e Entry) Fields() EntryFields {
	return EntryFields{
		OrderCode:                  e.OrderCode,
		PartNumber:                 e.PartNumber,
		ExternalCode:               e.ExternalCode,
		PlannedProductionDate:      e.PlannedProductionDate,
		PlannedTreatmentDate:       e.PlannedTreatmentDate,
		PlannedTreatmentReturnDate: e.PlannedTreatmentReturnDate,
		PlannedDeliveryDate:        e.PlannedDeliveryDate,
		HasControlDocument:         string(e.HasControlDocument),
		ControlDocumentNumber:      e.ControlDocumentNumber,
		HasFollowSheet:             string(e.HasFollowSheet),
		Status:                     string(e.Status),
		Priority:                   string(e.Priority),
	}
}

// DateValue returns the canonical value of one of the four planned-date fields
func (e Entry) DateValue(field string) (string, bool) {
	switch field {
	case FieldPlannedProductionDate:
		return e.PlannedProductionDate, true
	case FieldPlannedTreatmentDate:
		return e.PlannedTreatmentDate, true
	case FieldPlannedTreatmentReturnDate:
		return e.PlannedTreatmentReturnDate, true
	case FieldPlannedDeliveryDate:
		return e.PlannedDeliveryDate, true
	}
	return "", false
}

// DateFields lists the planned-date field keys in form order
func DateFields() []string {
	return []string{
		FieldPlannedProductionDate,
		FieldPlannedTreatmentDate,
		FieldPlannedTreatmentReturnDate,
		FieldPlannedDeliveryDate,
	}
}

// NewEntry validates fields and builds a new entry with the given id.
// Blank flag/status/priority values take the form defaults.
func NewEntry(fields EntryFields, id string) (*Entry, error) {
	e, err := fields.build()
	if err != nil {
		return nil, err
	}
	e.ID = id
	return e, nil
}

// UpdateEntry validates fields and returns a copy of existing with every field but the id replaced
func UpdateEntry(existing Entry, fields EntryFields) (*Entry, error) {
	e, err := fields.build()
	if err != nil {
		return nil, err
	}
	e.ID = existing.ID
	return e, nil
}

// Validate checks a stored entry (e.g. one read from a backup) against the field rules
func (e Entry) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(e.ID) == "" {
		verr.Add(FieldID, "obrigatório")
	}
	if _, err := e.Fields().build(); err != nil {
		if fe, ok := err.(*ValidationError); ok {
			verr.Fields = append(verr.Fields, fe.Fields...)
		}
	}
	if e.HasControlDocument == "" {
		verr.Add(FieldHasControlDocument, "obrigatório")
	}
	if e.HasFollowSheet == "" {
		verr.Add(FieldHasFollowSheet, "obrigatório")
	}
	if e.Status == "" {
		verr.Add(FieldStatus, "obrigatório")
	}
	if e.Priority == "" {
		verr.Add(FieldPriority, "obrigatório")
	}
	return verr.OrNil()
}

func (f EntryFields) build() (*Entry, error) {
	verr := &ValidationError{}
	e := &Entry{
		OrderCode:    strings.TrimSpace(f.OrderCode),
		PartNumber:   strings.TrimSpace(f.PartNumber),
		ExternalCode: strings.TrimSpace(f.ExternalCode),
	}

	if e.OrderCode == "" {
		verr.Add(FieldOrderCode, "obrigatório")
	}
	if e.PartNumber == "" {
		verr.Add(FieldPartNumber, "obrigatório")
	}
	if e.ExternalCode == "" {
		verr.Add(FieldExternalCode, "obrigatório")
	}

	e.PlannedProductionDate = canonicalDate(verr, FieldPlannedProductionDate, f.PlannedProductionDate)
	e.PlannedTreatmentDate = canonicalDate(verr, FieldPlannedTreatmentDate, f.PlannedTreatmentDate)
	e.PlannedTreatmentReturnDate = canonicalDate(verr, FieldPlannedTreatmentReturnDate, f.PlannedTreatmentReturnDate)
	e.PlannedDeliveryDate = canonicalDate(verr, FieldPlannedDeliveryDate, f.PlannedDeliveryDate)

	e.HasControlDocument = yesNoOrDefault(verr, FieldHasControlDocument, f.HasControlDocument)
	e.HasFollowSheet = yesNoOrDefault(verr, FieldHasFollowSheet, f.HasFollowSheet)

	if e.HasControlDocument == Yes {
		e.ControlDocumentNumber = strings.TrimSpace(f.ControlDocumentNumber)
		if e.ControlDocumentNumber == "" {
			verr.Add(FieldControlDocumentNumber, "obrigatório quando possuiCD = Sim")
		}
	}

	e.Status = StatusNesting
	if v := strings.TrimSpace(f.Status); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			verr.Add(FieldStatus, "status inválido")
		}
		e.Status = st
	}

	e.Priority = PriorityNormal
	if v := strings.TrimSpace(f.Priority); v != "" {
		p, err := ParsePriority(v)
		if err != nil {
			verr.Add(FieldPriority, "prioridade inválida")
		}
		e.Priority = p
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return e, nil
}

func canonicalDate(verr *ValidationError, field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		verr.Add(field, "obrigatório")
		return ""
	}
	t, err := timeutil.ParseDate(timeutil.CanonicalLayout, value)
	if err != nil {
		verr.Add(field, "data inválida, esperado AAAA-MM-DD")
		return ""
	}
	return t.Format(timeutil.CanonicalLayout)
}

func yesNoOrDefault(verr *ValidationError, field, value string) YesNo {
	value = strings.TrimSpace(value)
	if value == "" {
		return No
	}
	v, err := ParseYesNo(value)
	if err != nil {
		verr.Add(field, "esperado Sim ou Não")
		return ""
	}
	return v
}
