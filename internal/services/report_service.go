package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"ppcp-backend/internal/interchange"
	"ppcp-backend/internal/models"
	"ppcp-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// dateFieldLabels names the planned-date fields in reports
var dateFieldLabels = map[string]string{
	models.FieldPlannedProductionDate:      "Produção",
	models.FieldPlannedTreatmentDate:       "Tratamento",
	models.FieldPlannedTreatmentReturnDate: "Retorno do tratamento",
	models.FieldPlannedDeliveryDate:        "Entrega",
}

// OverdueSection is the overdue list for one planned-date field
type OverdueSection struct {
	Field string        `json:"field"`
	Label string        `json:"label"`
	Items []OverdueItem `json:"items"`
}

// Summary is the dashboard view of the collection
type Summary struct {
	GeneratedAt time.Time        `json:"generated_at"`
	AsOf        string           `json:"as_of"`
	Total       int              `json:"total"`
	Priority    []Bucket         `json:"priority"`
	Status      []Bucket         `json:"status"`
	Overdue     []OverdueSection `json:"overdue"`
	Entries     []models.Entry   `json:"-"`
}

type ReportService struct {
	Store EntryCollection
	Now   func() time.Time
}

func NewReportService(store EntryCollection) *ReportService {
	return &ReportService{Store: store, Now: timeutil.Now}
}

func (s *ReportService) PriorityHistogram(ctx context.Context) ([]Bucket, error) {
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return PriorityHistogram(entries), nil
}

func (s *ReportService) StatusHistogram(ctx context.Context) ([]Bucket, error) {
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return StatusHistogram(entries), nil
}

// Overdue lists entries late on field as of asOf; a zero asOf means today
func (s *ReportService) Overdue(ctx context.Context, field string, asOf time.Time) ([]OverdueItem, error) {
	if _, err := ParseDateField(field); err != nil {
		return nil, err
	}
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.Now()
	}
	return Overdue(entries, field, asOf)
}

// Summary gathers both histograms and the overdue lists of all four date fields
func (s *ReportService) Summary(ctx context.Context, asOf time.Time) (*Summary, error) {
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if asOf.IsZero() {
		asOf = now
	}

	sum := &Summary{
		GeneratedAt: now,
		AsOf:        timeutil.CalendarDate(asOf).Format(timeutil.CanonicalLayout),
		Total:       len(entries),
		Priority:    PriorityHistogram(entries),
		Status:      StatusHistogram(entries),
		Entries:     VisibleEntries(entries, StatusFilterAll),
	}
	for _, field := range models.DateFields() {
		items, err := Overdue(entries, field, asOf)
		if err != nil {
			return nil, err
		}
		sum.Overdue = append(sum.Overdue, OverdueSection{Field: field, Label: dateFieldLabels[field], Items: items})
	}
	return sum, nil
}

// rowFill maps a priority's highlight class to a PDF fill and text colour
var rowFill = map[string]struct{ r, g, b, text int }{
	models.PriorityMaximumUrgency.Style(): {220, 38, 38, 255},
	models.PriorityFlangeNut.Style():      {251, 207, 232, 0},
	models.PriorityCoverage.Style():       {252, 231, 243, 0},
	models.PriorityNormal.Style():         {255, 255, 255, 0},
}

// GenerateSummaryPDF renders a summary as a landscape A4 report
func (s *ReportService) GenerateSummaryPDF(sum *Summary) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(277, 12, tr("PPCP - Resumo da Produção"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, tr(fmt.Sprintf("Referência: %s   Gerado em: %s   Total de entradas: %d",
		interchange.FormatDisplayDate(sum.AsOf),
		sum.GeneratedAt.In(timeutil.Local).Format("02/01/2006 15:04"),
		sum.Total)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Histograms side by side
	top := pdf.GetY()
	s.bucketTable(pdf, tr, 10, "Por prioridade", sum.Priority, true)
	pdf.SetY(top)
	s.bucketTable(pdf, tr, 150, "Por status", sum.Status, false)
	pdf.Ln(4)

	// Overdue lists
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, tr("Atrasos"), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, sec := range sum.Overdue {
		line := fmt.Sprintf("%s: nenhum", sec.Label)
		if len(sec.Items) > 0 {
			line = fmt.Sprintf("%s: ", sec.Label)
			for i, it := range sec.Items {
				if i > 0 {
					line += ", "
				}
				line += fmt.Sprintf("%s (%d d)", it.OrderCode, it.DaysLate)
			}
		}
		pdf.MultiCell(277, 5, tr(line), "LR", "L", false)
	}
	pdf.CellFormat(277, 0, "", "T", 1, "", false, 0, "")
	pdf.Ln(4)

	// Entries table, most urgent first
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(277, 8, "Entradas", "1", 1, "L", true, 0, "")

	widths := []float64{28, 32, 28, 22, 22, 22, 22, 16, 22, 35, 28}
	headers := []string{"OC", "PN", "Código E", "Produção", "Tratam.", "Ret. trat.", "Entrega", "CD", "Nº CD", "Status", "Prioridade"}
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, tr(h), "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Arial", "", 8)
	for _, e := range sum.Entries {
		fill := rowFill[e.Priority.Style()]
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.SetTextColor(fill.text, fill.text, fill.text)
		cells := []string{
			e.OrderCode,
			e.PartNumber,
			e.ExternalCode,
			interchange.FormatDisplayDate(e.PlannedProductionDate),
			interchange.FormatDisplayDate(e.PlannedTreatmentDate),
			interchange.FormatDisplayDate(e.PlannedTreatmentReturnDate),
			interchange.FormatDisplayDate(e.PlannedDeliveryDate),
			string(e.HasControlDocument),
			e.ControlDocumentNumber,
			string(e.Status),
			string(e.Priority),
		}
		for i, c := range cells {
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(widths[i], 6, tr(truncate(c, widths[i])), "1", ln, "L", true, 0, "")
		}
	}
	pdf.SetTextColor(0, 0, 0)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ReportService) bucketTable(pdf *gofpdf.Fpdf, tr func(string) string, x float64, title string, buckets []Bucket, shade bool) {
	pdf.SetX(x)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(120, 7, tr(title), "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, b := range buckets {
		pdf.SetX(x)
		fill := rowFill[models.PriorityNormal.Style()]
		if shade {
			fill = rowFill[models.Priority(b.Name).Style()]
		}
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.SetTextColor(fill.text, fill.text, fill.text)
		pdf.CellFormat(95, 6, tr(b.Name), "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", b.Count), "1", 1, "R", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
}

// truncate shortens s to roughly fit a column of width mm at 8pt
func truncate(s string, width float64) string {
	limit := int(width / 1.7)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
