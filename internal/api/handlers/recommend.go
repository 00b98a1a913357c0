package handlers

import (
	"log/slog"
	"net/http"

	"github.com/narvanalabs/securekv/internal/backing"
	"github.com/narvanalabs/securekv/internal/recommend"
)

// RecommendHandler serves migration recommendations.
type RecommendHandler struct {
	backing backing.Store
	logger  *slog.Logger
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(b backing.Store, logger *slog.Logger) *RecommendHandler {
	return &RecommendHandler{backing: b, logger: logger}
}

// List handles GET /v1/recommendations - classifies plaintext keys.
func (h *RecommendHandler) List(w http.ResponseWriter, r *http.Request) {
	recs := recommend.Recommendations(h.backing)
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}
