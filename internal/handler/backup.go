package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashverma/pledge/internal/backup"
	"github.com/ashverma/pledge/internal/model"
	"github.com/ashverma/pledge/internal/store"
)

type BackupHandler struct {
	manager     *backup.Manager
	backupStore *store.BackupStore
	restart     func()
	logger      *slog.Logger
}

// NewBackupHandler creates the backup API handler. restart is invoked
// after a successful restore so the process can come back up on the
// restored database file; nil means no restart is triggered.
func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, restart func(), logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backupStore: bs, restart: restart, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backupStore.List(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record, err := h.backupStore.GetByID(id)
	if err != nil || record == nil {
		writeError(w, http.StatusInternalServerError, "backup record missing")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Restore replaces the live database with the chosen backup and then
// asks the process to restart on the restored file.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := h.backupStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load backup")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}

	if err := h.manager.Restore(r.Context(), id); err != nil {
		h.logger.Error("restore backup", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to restore backup")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})

	// Graceful shutdown waits for this handler to return, so the
	// response above still reaches the client.
	if h.restart != nil {
		h.restart()
	}
}

// Download streams the encrypted backup file. It stays encrypted; the
// passphrase never leaves the server config.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := h.backupStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load backup")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to download backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	io.Copy(w, body)
}
