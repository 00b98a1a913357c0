package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/narvanalabs/securekv/internal/securestore"
)

// StoreHandler handles secure-store HTTP requests.
type StoreHandler struct {
	store  *securestore.Store
	logger *slog.Logger
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(store *securestore.Store, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{store: store, logger: logger}
}

// SetEntryRequest represents the request body for storing a value.
type SetEntryRequest struct {
	Value     any    `json:"value"`
	ExpiresIn string `json:"expires_in,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	PlainText bool   `json:"plaintext,omitempty"`
}

// Set handles PUT /v1/store/{key} - stores a value.
func (h *StoreHandler) Set(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		WriteBadRequest(w, "Key is required")
		return
	}

	var req SetEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	opts := securestore.Options{Namespace: req.Namespace, PlainText: req.PlainText}
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d < 0 {
			WriteBadRequest(w, "Invalid expires_in duration")
			return
		}
		opts.ExpiresIn = d
	}

	if err := h.store.Set(key, req.Value, opts); err != nil {
		if errors.Is(err, securestore.ErrInvalidNamespace) {
			WriteBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, securestore.ErrStorageWrite) {
			WriteError(w, http.StatusInsufficientStorage, ErrCodeQuotaExceeded, err.Error())
			return
		}
		h.logger.Error("failed to store entry", "key", key, "error", err)
		WriteInternalError(w, "Failed to store entry")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"key":       key,
		"encrypted": !req.PlainText && h.store.Encrypting(),
	})
}

// Get handles GET /v1/store/{key} - returns the stored value.
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	namespace := r.URL.Query().Get("namespace")

	value, ok := h.store.Get(key, securestore.Options{Namespace: namespace})
	if !ok {
		WriteNotFound(w, "Entry not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

// Delete handles DELETE /v1/store/{key} - removes the entry.
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	namespace := r.URL.Query().Get("namespace")

	h.store.Remove(key, securestore.Options{Namespace: namespace})
	w.WriteHeader(http.StatusNoContent)
}

// Keys handles GET /v1/store - lists live keys in a namespace.
func (h *StoreHandler) Keys(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")

	keys := h.store.Keys(securestore.Options{Namespace: namespace})
	if keys == nil {
		keys = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

// Clear handles POST /v1/store/clear - clears a namespace, or everything.
func (h *StoreHandler) Clear(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")

	h.store.Clear(securestore.Options{Namespace: namespace})
	h.logger.Info("store cleared", "namespace", namespace)
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup handles POST /v1/store/cleanup - removes expired entries.
func (h *StoreHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.store.CleanupExpired()
	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
