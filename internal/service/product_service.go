package service

import (
	"context"
	"strings"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/activity"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
)

// ProductStore is the persistence the product service depends on
type ProductStore interface {
	List(ctx context.Context, filter models.ProductFilter, caps permission.Set) ([]models.ProductSummary, error)
	GetWithDetails(ctx context.Context, id int64, lang string, caps permission.Set) (*models.ProductDetails, error)
	Create(ctx context.Context, in models.ProductInput, lines []models.LineInput) (int64, error)
	Update(ctx context.Context, id int64, patch models.ProductPatch, lines *[]models.LineInput, lang string, caps permission.Set) (*models.ProductDetails, error)
	Delete(ctx context.Context, id int64) error
	ComputeCosts(ctx context.Context, id int64) (*models.CostReport, error)
}

// ProductService handles business logic for products
type ProductService struct {
	store       ProductStore
	audit       recorder
	defaultLang string
}

// NewProductService creates a new product service
func NewProductService(store ProductStore, sink activity.Sink, defaultLang string) *ProductService {
	return &ProductService{
		store:       store,
		audit:       recorder{sink: sink, entityType: "product"},
		defaultLang: defaultLang,
	}
}

// ListProducts returns products; cost figures only appear for callers
// allowed to view them.
func (s *ProductService) ListProducts(ctx context.Context, c Caller, filter models.ProductFilter) ([]models.ProductSummary, error) {
	if err := c.require(permission.ProductsView); err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.List(ctx, filter, c.Caps)
}

// GetProduct returns the hydrated product
func (s *ProductService) GetProduct(ctx context.Context, c Caller, id int64, lang string) (*models.ProductDetails, error) {
	if err := c.require(permission.ProductsView); err != nil {
		return nil, err
	}
	details, err := s.store.GetWithDetails(ctx, id, language(lang, s.defaultLang), c.Caps)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, repository.ErrNotFound
	}
	return details, nil
}

// CreateProduct validates and stores a product with its ingredient lines.
// Supplying lines also requires the ingredient management capability.
func (s *ProductService) CreateProduct(ctx context.Context, c Caller, in models.ProductInput, lines []models.LineInput, lang string) (*models.ProductDetails, error) {
	needed := []string{permission.ProductsCreate}
	if len(lines) > 0 {
		needed = append(needed, permission.ProductsManageIngredients)
	}
	if err := c.require(needed...); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if !in.Price.IsPositive() {
		return nil, invalid("price must be greater than zero")
	}
	if err := places("price", in.Price, moneyPlaces); err != nil {
		return nil, err
	}
	if in.CategoryID <= 0 {
		return nil, invalid("category_id is required")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, in, lines)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, c, ActionCreate, id, map[string]any{
		"name":        in.Name,
		"ingredients": len(lines),
	})

	details, err := s.store.GetWithDetails(ctx, id, language(lang, s.defaultLang), c.Caps)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, repository.ErrNotFound
	}
	return details, nil
}

// UpdateProduct applies a partial update and returns the product re-read
// after commit. A non-nil lines replaces every ingredient line.
func (s *ProductService) UpdateProduct(ctx context.Context, c Caller, id int64, patch models.ProductPatch, lines *[]models.LineInput, lang string) (*models.ProductDetails, error) {
	needed := []string{permission.ProductsUpdate}
	if lines != nil {
		needed = append(needed, permission.ProductsManageIngredients)
	}
	if err := c.require(needed...); err != nil {
		return nil, err
	}

	if patch.IsEmpty() && lines == nil {
		return nil, invalid("no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if !patch.Price.IsPositive() {
			return nil, invalid("price must be greater than zero")
		}
		if err := places("price", *patch.Price, moneyPlaces); err != nil {
			return nil, err
		}
	}
	if lines != nil {
		if err := validateLines(*lines); err != nil {
			return nil, err
		}
	}

	details, err := s.store.Update(ctx, id, patch, lines, language(lang, s.defaultLang), c.Caps)
	if err != nil {
		return nil, err
	}

	audit := map[string]any{"fields": productFields(patch)}
	if lines != nil {
		audit["ingredients"] = len(*lines)
	}
	s.audit.record(ctx, c, ActionUpdate, id, audit)
	return details, nil
}

// DeleteProduct deactivates a product that no active menu lists
func (s *ProductService) DeleteProduct(ctx context.Context, c Caller, id int64) error {
	if err := c.require(permission.ProductsDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.record(ctx, c, ActionDelete, id, nil)
	return nil
}

// ComputeProductCosts returns the cost breakdown. The capability check runs
// before anything is read.
func (s *ProductService) ComputeProductCosts(ctx context.Context, c Caller, id int64) (*models.CostReport, error) {
	if err := c.require(permission.ProductsViewCosts); err != nil {
		return nil, err
	}
	return s.store.ComputeCosts(ctx, id)
}

func validateLines(lines []models.LineInput) error {
	for i, l := range lines {
		if l.IngredientID <= 0 {
			return invalid("ingredients[%d]: ingredient_id is required", i)
		}
		if !l.Quantity.IsPositive() {
			return invalid("ingredients[%d]: quantity must be greater than zero", i)
		}
		if !l.Quantity.Equal(l.Quantity.Truncate(quantityPlaces)) {
			return invalid("ingredients[%d]: quantity allows at most %d decimal places", i, quantityPlaces)
		}
	}
	return nil
}

func productFields(p models.ProductPatch) []string {
	fields := []string{}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Price != nil {
		fields = append(fields, "price")
	}
	if p.CategoryID != nil {
		fields = append(fields, "category_id")
	}
	if p.ImageURL != nil {
		fields = append(fields, "image_url")
	}
	if p.IsAvailable != nil {
		fields = append(fields, "is_available")
	}
	return fields
}
