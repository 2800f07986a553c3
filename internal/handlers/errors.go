package handlers

import (
	"errors"
	"log"
	"net/http"

	"ppcp-backend/internal/backup"
	"ppcp-backend/internal/interchange"
	"ppcp-backend/internal/models"
	"ppcp-backend/internal/services"
	"ppcp-backend/pkg/utils"
)

// validationResponse is the 400 body for a rejected entry
type validationResponse struct {
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields"`
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var perr *interchange.ParseError

	switch {
	case errors.As(err, &perr) && errors.As(err, &verr):
		utils.JSON(w, http.StatusBadRequest, validationResponse{Error: perr.Error(), Fields: verr.Fields})
	case errors.As(err, &perr):
		utils.Error(w, http.StatusBadRequest, perr.Error())
	case errors.As(err, &verr):
		utils.JSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, services.ErrEntryNotFound):
		utils.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrUnknownDateField):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backup.ErrBackupNotFound):
		utils.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backup.ErrForeignKey):
		utils.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[HTTP] Internal error: %v", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
