package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
)

// ReferenceHandler serves allergen and category lookup lists
type ReferenceHandler struct {
	service *service.ReferenceService
	logger  *slog.Logger
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(service *service.ReferenceService, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		service: service,
		logger:  logger,
	}
}

// ListAllergens handles GET /api/allergens?lang=
func (h *ReferenceHandler) ListAllergens(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.service.Allergens(r.Context(), c, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list allergens")
		return
	}
	WriteJSON(w, http.StatusOK, list, h.logger)
}

// ListCategories handles GET /api/categories
func (h *ReferenceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.service.Categories(r.Context(), c)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list categories")
		return
	}
	WriteJSON(w, http.StatusOK, list, h.logger)
}
