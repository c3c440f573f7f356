package handlers

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// productRequest is the body of create and update calls. Ingredients, when
// present, replace every line of the product.
type productRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Price       *decimal.Decimal    `json:"price"`
	CategoryID  *int64              `json:"category_id"`
	ImageURL    *string             `json:"image_url"`
	IsAvailable *bool               `json:"is_available"`
	Ingredients *[]models.LineInput `json:"ingredients"`
}

func (req productRequest) input() models.ProductInput {
	in := models.ProductInput{
		ImageURL:    req.ImageURL,
		IsAvailable: true,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.CategoryID != nil {
		in.CategoryID = *req.CategoryID
	}
	if req.IsAvailable != nil {
		in.IsAvailable = *req.IsAvailable
	}
	return in
}

func (req productRequest) patch() models.ProductPatch {
	return models.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		IsAvailable: req.IsAvailable,
	}
}

// ListProducts handles GET /api/products?category_id=&search=&is_available=
// Cost fields are absent from every item unless the caller may view costs.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	categoryID, err := queryInt(r, "category_id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	isAvailable, err := queryBool(r, "is_available")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	products, err := h.service.ListProducts(r.Context(), c, models.ProductFilter{
		CategoryID:  categoryID,
		Search:      r.URL.Query().Get("search"),
		IsAvailable: isAvailable,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list products")
		return
	}

	WriteJSON(w, http.StatusOK, products, h.logger)
}

// GetProduct handles GET /api/products/{id}?lang=
// - 200: hydrated product
// - 400: Invalid ID supplied
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.logger.Warn("invalid product ID format", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), c, id, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get product", "product_id", id)
		return
	}

	WriteJSON(w, http.StatusOK, product, h.logger)
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode product request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	var lines []models.LineInput
	if req.Ingredients != nil {
		lines = *req.Ingredients
	}

	product, err := h.service.CreateProduct(r.Context(), c, req.input(), lines, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "user_id", c.UserID)
	WriteJSON(w, http.StatusCreated, product, h.logger)
}

// UpdateProduct handles PUT /api/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode product request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), c, id, req.patch(), req.Ingredients, r.URL.Query().Get("lang"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update product", "product_id", id)
		return
	}

	WriteJSON(w, http.StatusOK, product, h.logger)
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), c, id); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete product", "product_id", id)
		return
	}

	WriteMessage(w, http.StatusOK, "Product deactivated", h.logger)
}

// GetCosts handles GET /api/products/{id}/costs
func (h *ProductHandler) GetCosts(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	report, err := h.service.ComputeProductCosts(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to compute product costs", "product_id", id)
		return
	}

	WriteJSON(w, http.StatusOK, report, h.logger)
}
