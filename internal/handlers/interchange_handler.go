package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"ppcp-backend/internal/interchange"
	"ppcp-backend/internal/services"
	"ppcp-backend/pkg/utils"
)

// maxUploadSize bounds imported sheets and restored snapshots
const maxUploadSize = 10 << 20

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// InterchangeHandler serves spreadsheet export/import and snapshot backup/restore
type InterchangeHandler struct {
	Service *services.EntryService
}

func NewInterchangeHandler(s *services.EntryService) *InterchangeHandler {
	return &InterchangeHandler{Service: s}
}

// Export downloads the collection as ?format=xlsx (default) or csv
func (h *InterchangeHandler) Export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.ExportRows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	switch format := r.URL.Query().Get("format"); format {
	case "", "xlsx":
		if err := interchange.WriteXLSX(&buf, rows); err != nil {
			writeError(w, err)
			return
		}
		utils.Attachment(w, xlsxContentType, interchange.ExportFilename)
	case "csv":
		if err := interchange.WriteCSV(&buf, rows); err != nil {
			writeError(w, err)
			return
		}
		utils.Attachment(w, csvContentType, strings.TrimSuffix(interchange.ExportFilename, ".xlsx")+".csv")
	default:
		utils.Error(w, http.StatusBadRequest, "format must be xlsx or csv")
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Import reads a multipart "file" (.xlsx or .csv) and replaces the collection
// with its valid rows
func (h *InterchangeHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, name, ok := readUpload(w, r)
	if !ok {
		return
	}

	var rows []interchange.Row
	var err error
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		rows, err = interchange.ReadCSV(bytes.NewReader(data))
	} else {
		rows, err = interchange.ReadXLSX(bytes.NewReader(data))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.Service.Import(r.Context(), rows)
	if errors.Is(err, services.ErrNothingImported) {
		utils.JSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// Backup downloads a snapshot of the whole collection
func (h *InterchangeHandler) Backup(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.Service.Backup(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.Attachment(w, "application/json", filename)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Restore replaces the collection with an uploaded snapshot, all or nothing
func (h *InterchangeHandler) Restore(w http.ResponseWriter, r *http.Request) {
	data, _, ok := readUpload(w, r)
	if !ok {
		return
	}

	report, err := h.Service.Restore(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// readUpload returns the multipart "file" field, or writes a 400 and returns false
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.Error(w, http.StatusBadRequest, "expected multipart form with a file under 10MB")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "missing file field")
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "failed to read upload")
		return nil, "", false
	}
	return data, header.Filename, true
}
