package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/narvanalabs/securekv/internal/migration"
)

// MigrateHandler handles migration HTTP requests.
type MigrateHandler struct {
	engine *migration.Engine
	logger *slog.Logger
}

// NewMigrateHandler creates a new migration handler.
func NewMigrateHandler(engine *migration.Engine, logger *slog.Logger) *MigrateHandler {
	return &MigrateHandler{engine: engine, logger: logger}
}

// migrateOptions mirrors migration.Options for JSON requests. Omitted
// booleans fall back to the engine defaults rather than false.
type migrateOptions struct {
	Encrypt         *bool  `json:"encrypt,omitempty"`
	ClearPlaintext  *bool  `json:"clear_plaintext,omitempty"`
	PreserveOnError *bool  `json:"preserve_on_error,omitempty"`
	ExpiresIn       string `json:"expires_in,omitempty"`
	Namespace       string `json:"namespace,omitempty"`
}

func (o *migrateOptions) toOptions() (migration.Options, error) {
	opts := migration.DefaultOptions()
	if o.Encrypt != nil {
		opts.Encrypt = *o.Encrypt
	}
	if o.ClearPlaintext != nil {
		opts.ClearPlaintext = *o.ClearPlaintext
	}
	if o.PreserveOnError != nil {
		opts.PreserveOnError = *o.PreserveOnError
	}
	if o.ExpiresIn != "" {
		d, err := time.ParseDuration(o.ExpiresIn)
		if err != nil || d < 0 {
			return opts, &APIError{Code: ErrCodeInvalidRequest, Message: "invalid expires_in duration"}
		}
		opts.ExpiresIn = d
	}
	opts.Namespace = o.Namespace
	return opts, nil
}

// MigrateKeyRequest represents the request body for migrating one key.
type MigrateKeyRequest struct {
	Key string `json:"key"`
	migrateOptions
}

// Key handles POST /v1/migrate/key - migrates a single key.
func (h *MigrateHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req MigrateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Key == "" {
		WriteBadRequest(w, "key is required")
		return
	}

	opts, err := req.toOptions()
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.engine.MigrateKey(req.Key, opts))
}

// MigrateBatchRequest represents the request body for migrating many keys.
type MigrateBatchRequest struct {
	Keys []string `json:"keys"`
	migrateOptions
}

// Batch handles POST /v1/migrate/batch - migrates a list of keys.
func (h *MigrateHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req MigrateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	opts, err := req.toOptions()
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.engine.MigrateKeys(req.Keys, opts))
}

// MigrateAllRequest represents the request body for prefix migration.
type MigrateAllRequest struct {
	Prefix string `json:"prefix"`
	migrateOptions
}

// All handles POST /v1/migrate/all - migrates every key under a prefix.
func (h *MigrateHandler) All(w http.ResponseWriter, r *http.Request) {
	var req MigrateAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	opts, err := req.toOptions()
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.engine.MigrateAll(req.Prefix, opts))
}

// Status handles GET /v1/migrate/status?key=&namespace= - reports whether a
// key has a live secure-store entry.
func (h *MigrateHandler) Status(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		WriteBadRequest(w, "key query parameter is required")
		return
	}
	namespace := r.URL.Query().Get("namespace")

	WriteJSON(w, http.StatusOK, map[string]any{
		"key":      key,
		"migrated": h.engine.IsMigrated(key, namespace),
	})
}

// RollbackRequest represents the request body for a rollback.
type RollbackRequest struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace,omitempty"`
}

// Rollback handles POST /v1/migrate/rollback - moves an entry back to
// plaintext.
func (h *MigrateHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Key == "" {
		WriteBadRequest(w, "key is required")
		return
	}

	rolledBack, err := h.engine.Rollback(req.Key, req.Namespace)
	if err != nil {
		h.logger.Error("rollback failed", "key", req.Key, "error", err)
		WriteInternalError(w, "Rollback failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"key":         req.Key,
		"rolled_back": rolledBack,
	})
}
