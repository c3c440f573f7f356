package handlers

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
)

// IngredientHandler handles ingredient-related HTTP requests
type IngredientHandler struct {
	service *service.IngredientService
	logger  *slog.Logger
}

// NewIngredientHandler creates a new ingredient handler
func NewIngredientHandler(service *service.IngredientService, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{
		service: service,
		logger:  logger,
	}
}

// ingredientRequest is the body of create and update calls. Absent fields
// stay nil; allergens, when present, replace the whole set.
type ingredientRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Unit        *string          `json:"unit"`
	Cost        *decimal.Decimal `json:"cost"`
	Stock       *decimal.Decimal `json:"stock"`
	MinStock    *decimal.Decimal `json:"min_stock"`
	Allergens   *[]int64         `json:"allergens"`
}

func (req ingredientRequest) input() models.IngredientInput {
	var in models.IngredientInput
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Unit != nil {
		in.Unit = *req.Unit
	}
	if req.Cost != nil {
		in.Cost = *req.Cost
	}
	if req.Stock != nil {
		in.Stock = *req.Stock
	}
	if req.MinStock != nil {
		in.MinStock = *req.MinStock
	}
	return in
}

func (req ingredientRequest) patch() models.IngredientPatch {
	return models.IngredientPatch{
		Name:        req.Name,
		Description: req.Description,
		Unit:        req.Unit,
		Cost:        req.Cost,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
	}
}

// List handles GET /api/ingredients?search=&is_active=&lang=
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	isActive, err := queryBool(r, "is_active")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	list, err := h.service.List(r.Context(), c, models.IngredientFilter{
		Search:   r.URL.Query().Get("search"),
		IsActive: isActive,
		Language: r.URL.Query().Get("lang"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list ingredients")
		return
	}

	WriteJSON(w, http.StatusOK, list, h.logger)
}

// Get handles GET /api/ingredients/{id}
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	ing, err := h.service.Get(r.Context(), c, id, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get ingredient", "ingredient_id", id)
		return
	}

	WriteJSON(w, http.StatusOK, ing, h.logger)
}

// Create handles POST /api/ingredients
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req ingredientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode ingredient request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	var allergens []int64
	if req.Allergens != nil {
		allergens = *req.Allergens
	}

	ing, err := h.service.Create(r.Context(), c, req.input(), allergens, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create ingredient")
		return
	}

	h.logger.Info("ingredient created", "ingredient_id", ing.ID, "user_id", c.UserID)
	WriteJSON(w, http.StatusCreated, ing, h.logger)
}

// Update handles PUT /api/ingredients/{id}
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	var req ingredientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode ingredient request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	ing, err := h.service.Update(r.Context(), c, id, req.patch(), req.Allergens, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update ingredient", "ingredient_id", id)
		return
	}

	WriteJSON(w, http.StatusOK, ing, h.logger)
}

// Delete handles DELETE /api/ingredients/{id}
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), c, id); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete ingredient", "ingredient_id", id)
		return
	}

	WriteMessage(w, http.StatusOK, "Ingredient deactivated", h.logger)
}
