package models

import "fmt"

// Status is a workflow stage of a production order
type Status string

// Workflow stages in display order
const (
	StatusNesting             Status = "Nesting"
	StatusAwaitingRawMaterial Status = "Aguardando chegar materia prima"
	StatusInProduction        Status = "Em produção"
	StatusTreaterInspection   Status = "Inspeção para tratador"
	StatusInTreatment         Status = "Em tratamento"
	StatusFinalInspection     Status = "Em inspeção final"
	StatusShipping            Status = "Em expedição"
	StatusCompleted           Status = "Concluído"
)

var statusSequence = []Status{
	StatusNesting,
	StatusAwaitingRawMaterial,
	StatusInProduction,
	StatusTreaterInspection,
	StatusInTreatment,
	StatusFinalInspection,
	StatusShipping,
	StatusCompleted,
}

// Priority is a display/severity level. Lower rank is more urgent.
type Priority string

// Priority levels, most urgent first
const (
	PriorityMaximumUrgency Priority = "Urgencia Máxima"
	PriorityFlangeNut      Priority = "Porca Flange"
	PriorityCoverage       Priority = "Cobertura"
	PriorityNormal         Priority = "Normal"
)

var prioritySequence = []Priority{
	PriorityMaximumUrgency,
	PriorityFlangeNut,
	PriorityCoverage,
	PriorityNormal,
}

var priorityRank = map[Priority]int{
	PriorityMaximumUrgency: 0,
	PriorityFlangeNut:      1,
	PriorityCoverage:       2,
	PriorityNormal:         3,
}

// Statuses returns the workflow stages in display order
func Statuses() []Status {
	out := make([]Status, len(statusSequence))
	copy(out, statusSequence)
	return out
}

// Priorities returns the priority levels, most urgent first
func Priorities() []Priority {
	out := make([]Priority, len(prioritySequence))
	copy(out, prioritySequence)
	return out
}

// ParseStatus returns the Status named by s, or an error if s is not a workflow stage
func ParseStatus(s string) (Status, error) {
	for _, st := range statusSequence {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is one of the workflow stages
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// UnmarshalText rejects values outside the workflow vocabulary
func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParsePriority returns the Priority named by s, or an error if s is not a priority level
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if _, ok := priorityRank[p]; !ok {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the priority levels
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank is the position of p in the priority sequence; 0 is most urgent.
// Unknown priorities sort after every known level.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(prioritySequence)
}

// Style is the row highlight class used when rendering the entry list
func (p Priority) Style() string {
	switch p {
	case PriorityMaximumUrgency:
		return "bg-red-600 text-white"
	case PriorityFlangeNut:
		return "bg-pink-200"
	case PriorityCoverage:
		return "bg-pink-100"
	default:
		return "bg-white"
	}
}

// UnmarshalText rejects values outside the priority vocabulary
func (p *Priority) UnmarshalText(text []byte) error {
	pr, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = pr
	return nil
}

// YesNo is the two-valued flag used for control document and follow sheet
type YesNo string

const (
	Yes YesNo = "Sim"
	No  YesNo = "Não"
)

// ParseYesNo accepts exactly "Sim" or "Não"
func ParseYesNo(s string) (YesNo, error) {
	switch YesNo(s) {
	case Yes, No:
		return YesNo(s), nil
	}
	return "", fmt.Errorf("expected %q or %q, got %q", Yes, No, s)
}

// UnmarshalText rejects anything other than Sim/Não
func (y *YesNo) UnmarshalText(text []byte) error {
	v, err := ParseYesNo(string(text))
	if err != nil {
		return err
	}
	*y = v
	return nil
}
