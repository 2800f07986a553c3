package handlers

import (
	"encoding/json"
	"net/http"

	"ppcp-backend/internal/models"
	"ppcp-backend/internal/services"
	"ppcp-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type EntryHandler struct {
	Service *services.EntryService
}

func NewEntryHandler(s *services.EntryService) *EntryHandler {
	return &EntryHandler{Service: s}
}

// VocabularyResponse lists the closed value sets a client needs to build its forms
type VocabularyResponse struct {
	Statuses   []models.Status    `json:"statuses"`
	Filters    []string           `json:"filters"`
	Priorities []models.Priority  `json:"priorities"`
	Defaults   models.EntryFields `json:"defaults"`
}

func (h *EntryHandler) Vocabulary(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, VocabularyResponse{
		Statuses:   models.Statuses(),
		Filters:    services.StatusFilters(),
		Priorities: models.Priorities(),
		Defaults:   h.Service.Template(),
	})
}

// ListEntries returns the visible entries for ?status= (default todos), most urgent first
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("status")
	if filter == "" {
		filter = services.StatusFilterAll
	}

	entries, err := h.Service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Template(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Service.Template())
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req models.EntryFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req models.EntryFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
