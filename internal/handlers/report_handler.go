package handlers

import (
	"fmt"
	"net/http"
	"time"

	"ppcp-backend/internal/models"
	"ppcp-backend/internal/services"
	"ppcp-backend/internal/timeutil"
	"ppcp-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

func (h *ReportHandler) PriorityHistogram(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.Service.PriorityHistogram(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, buckets)
}

func (h *ReportHandler) StatusHistogram(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.Service.StatusHistogram(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, buckets)
}

// Overdue lists late entries for ?field= (default dataEntrega) as of ?as_of=YYYY-MM-DD (default today)
func (h *ReportHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = models.FieldPlannedDeliveryDate
	}
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}

	items, err := h.Service.Overdue(r.Context(), field, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	sum, err := h.Service.Summary(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, sum)
}

func (h *ReportHandler) SummaryPDF(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	sum, err := h.Service.Summary(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	pdf, err := h.Service.GenerateSummaryPDF(sum)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("ppcp_resumo_%s.pdf", sum.GeneratedAt.In(timeutil.Local).Format(timeutil.FileStampLayout))
	utils.Attachment(w, "application/pdf", filename)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// parseAsOf reads ?as_of=YYYY-MM-DD; absent means today (zero time)
func parseAsOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Time{}, true
	}
	t, err := timeutil.ParseDate(timeutil.CanonicalLayout, raw)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
