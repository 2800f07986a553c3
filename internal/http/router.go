package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ppcp-backend/internal/handlers"
	"ppcp-backend/internal/middleware"
)

// NewRouter registers every route. backupHandler is nil when remote backups are disabled.
func NewRouter(
	authHandler *handlers.AuthHandler,
	entryHandler *handlers.EntryHandler,
	interchangeHandler *handlers.InterchangeHandler,
	reportHandler *handlers.ReportHandler,
	backupHandler *handlers.BackupHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/vocabulary", entryHandler.Vocabulary).Methods("GET")

	// Entries - fixed paths before {id}
	api.HandleFunc("/entries", entryHandler.ListEntries).Methods("GET")
	api.HandleFunc("/entries", entryHandler.CreateEntry).Methods("POST")
	api.HandleFunc("/entries/template", entryHandler.Template).Methods("GET")
	api.HandleFunc("/entries/export", interchangeHandler.Export).Methods("GET")
	api.HandleFunc("/entries/import", interchangeHandler.Import).Methods("POST")
	api.HandleFunc("/entries/{id}", entryHandler.GetEntry).Methods("GET")
	api.HandleFunc("/entries/{id}", entryHandler.UpdateEntry).Methods("PUT")
	api.HandleFunc("/entries/{id}", entryHandler.DeleteEntry).Methods("DELETE")

	// Reports
	api.HandleFunc("/reports/priority", reportHandler.PriorityHistogram).Methods("GET")
	api.HandleFunc("/reports/status", reportHandler.StatusHistogram).Methods("GET")
	api.HandleFunc("/reports/overdue", reportHandler.Overdue).Methods("GET")
	api.HandleFunc("/reports/summary", reportHandler.Summary).Methods("GET")
	api.HandleFunc("/reports/summary.pdf", reportHandler.SummaryPDF).Methods("GET")

	// Backup / restore
	api.HandleFunc("/backup", interchangeHandler.Backup).Methods("GET")
	api.HandleFunc("/restore", interchangeHandler.Restore).Methods("POST")
	if backupHandler != nil {
		api.HandleFunc("/backup/remote", backupHandler.ListRemote).Methods("GET")
		api.HandleFunc("/backup/remote", backupHandler.BackupNow).Methods("POST")
		api.HandleFunc("/restore/remote", backupHandler.RestoreRemote).Methods("POST")
	}

	return r
}

// Wrap applies the global middleware chain
func Wrap(router http.Handler, cors func(http.Handler) http.Handler, apiLogging *middleware.APILoggingMiddleware) http.Handler {
	handler := cors(router)
	if apiLogging != nil {
		handler = apiLogging.Handler(handler)
	}
	return middleware.PanicRecovery(middleware.MetricsMiddleware(handler))
}
