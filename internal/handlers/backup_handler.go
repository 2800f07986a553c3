package handlers

import (
	"context"
	"net/http"

	"ppcp-backend/internal/backup"
	"ppcp-backend/internal/services"
	"ppcp-backend/pkg/utils"
)

// RemoteBackups lists and fetches snapshots in remote storage
type RemoteBackups interface {
	List(ctx context.Context) ([]backup.RemoteBackup, error)
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// BackupRunner takes a snapshot and uploads it
type BackupRunner interface {
	RunOnce(ctx context.Context) (string, error)
}

// BackupHandler serves snapshots kept in the remote bucket
type BackupHandler struct {
	Service *services.EntryService
	Remote  RemoteBackups
	Runner  BackupRunner
}

func NewBackupHandler(s *services.EntryService, remote RemoteBackups, runner BackupRunner) *BackupHandler {
	return &BackupHandler{Service: s, Remote: remote, Runner: runner}
}

// BackupNow uploads a fresh snapshot
func (h *BackupHandler) BackupNow(w http.ResponseWriter, r *http.Request) {
	key, err := h.Runner.RunOnce(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *BackupHandler) ListRemote(w http.ResponseWriter, r *http.Request) {
	list, err := h.Remote.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []backup.RemoteBackup{}
	}
	utils.JSON(w, http.StatusOK, list)
}

// RestoreRemote restores ?key=, or the newest snapshot when key is empty
func (h *BackupHandler) RestoreRemote(w http.ResponseWriter, r *http.Request) {
	data, key, err := h.Remote.Download(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.Service.Restore(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"key":    key,
		"report": report,
	})
}
