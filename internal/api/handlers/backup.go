package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/securekv/internal/backup"
)

// BackupHandler handles backup and restore HTTP requests.
type BackupHandler struct {
	service      *backup.Service
	ageRecipient string
	ageIdentity  string
	logger       *slog.Logger
}

// NewBackupHandler creates a new backup handler. The age keys may be empty,
// in which case only plaintext backups are served.
func NewBackupHandler(service *backup.Service, ageRecipient, ageIdentity string, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		service:      service,
		ageRecipient: ageRecipient,
		ageIdentity:  ageIdentity,
		logger:       logger,
	}
}

// Create handles POST /v1/backup - snapshots the backing store. With
// ?encrypted=true the blob is sealed to the configured age recipient and
// returned base64-encoded.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("encrypted") == "true" {
		if h.ageRecipient == "" {
			WriteBadRequest(w, "No backup recipient configured")
			return
		}
		sealed, err := h.service.CreateEncrypted(h.ageRecipient)
		if err != nil {
			h.logger.Error("failed to create encrypted backup", "error", err)
			WriteInternalError(w, "Failed to create encrypted backup")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{
			"sealed": base64.StdEncoding.EncodeToString(sealed),
		})
		return
	}

	blob, err := h.service.Create()
	if err != nil {
		h.logger.Error("failed to create backup", "error", err)
		WriteInternalError(w, "Failed to create backup")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"blob": blob})
}

// RestoreRequest represents the request body for a restore. Exactly one of
// Blob (plaintext snapshot) or Sealed (base64 age-sealed snapshot) is set.
type RestoreRequest struct {
	Blob   string `json:"blob,omitempty"`
	Sealed string `json:"sealed,omitempty"`
}

// Restore handles POST /v1/restore - replaces the backing store's contents.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	switch {
	case req.Sealed != "":
		if h.ageIdentity == "" {
			WriteBadRequest(w, "No backup identity configured")
			return
		}
		sealed, err := base64.StdEncoding.DecodeString(req.Sealed)
		if err != nil {
			WriteBadRequest(w, "Invalid sealed blob encoding")
			return
		}
		ok, err := h.service.RestoreEncrypted(sealed, h.ageIdentity)
		if err != nil {
			h.logger.Error("failed to unseal backup", "error", err)
			WriteBadRequest(w, "Failed to unseal backup")
			return
		}
		if !ok {
			WriteBadRequest(w, "Malformed backup blob")
			return
		}
	case req.Blob != "":
		if !h.service.Restore(req.Blob) {
			WriteBadRequest(w, "Malformed backup blob")
			return
		}
	default:
		WriteBadRequest(w, "blob or sealed is required")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
