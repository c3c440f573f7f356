package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/activity"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
)

// IngredientStore is the persistence the ingredient service depends on
type IngredientStore interface {
	List(ctx context.Context, filter models.IngredientFilter) ([]models.Ingredient, error)
	Get(ctx context.Context, id int64, lang string) (*models.Ingredient, error)
	Create(ctx context.Context, in models.IngredientInput, allergenIDs []int64) (int64, error)
	Update(ctx context.Context, id int64, patch models.IngredientPatch, allergenIDs *[]int64) error
	Delete(ctx context.Context, id int64) error
}

// IngredientService handles business logic for ingredients
type IngredientService struct {
	store       IngredientStore
	audit       recorder
	defaultLang string
}

// NewIngredientService creates a new ingredient service
func NewIngredientService(store IngredientStore, sink activity.Sink, defaultLang string) *IngredientService {
	return &IngredientService{
		store:       store,
		audit:       recorder{sink: sink, entityType: "ingredient"},
		defaultLang: defaultLang,
	}
}

// List returns ingredients with their allergens
func (s *IngredientService) List(ctx context.Context, c Caller, filter models.IngredientFilter) ([]models.Ingredient, error) {
	if err := c.require(permission.IngredientsView); err != nil {
		return nil, err
	}
	filter.Language = language(filter.Language, s.defaultLang)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.List(ctx, filter)
}

// Get returns a single ingredient
func (s *IngredientService) Get(ctx context.Context, c Caller, id int64, lang string) (*models.Ingredient, error) {
	if err := c.require(permission.IngredientsView); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id, language(lang, s.defaultLang))
}

// Create validates and stores a new ingredient, then returns it as stored.
// Supplying allergens also requires the allergen management capability.
func (s *IngredientService) Create(ctx context.Context, c Caller, in models.IngredientInput, allergenIDs []int64, lang string) (*models.Ingredient, error) {
	needed := []string{permission.IngredientsCreate}
	if len(allergenIDs) > 0 {
		needed = append(needed, permission.IngredientsManageAllergens)
	}
	if err := c.require(needed...); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if in.Unit == "" {
		return nil, invalid("unit is required")
	}
	if err := checkAmounts(map[string]decimal.Decimal{
		"cost": in.Cost, "stock": in.Stock, "min_stock": in.MinStock,
	}); err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, in, allergenIDs)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, c, ActionCreate, id, map[string]any{
		"name":      in.Name,
		"allergens": allergenIDs,
	})

	return s.store.Get(ctx, id, language(lang, s.defaultLang))
}

// Update applies a partial update. A non-nil allergenIDs replaces the whole
// allergen set and requires the allergen management capability.
func (s *IngredientService) Update(ctx context.Context, c Caller, id int64, patch models.IngredientPatch, allergenIDs *[]int64, lang string) (*models.Ingredient, error) {
	needed := []string{permission.IngredientsUpdate}
	if allergenIDs != nil {
		needed = append(needed, permission.IngredientsManageAllergens)
	}
	if err := c.require(needed...); err != nil {
		return nil, err
	}

	if patch.IsEmpty() && allergenIDs == nil {
		return nil, invalid("no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Unit != nil {
		unit := strings.TrimSpace(*patch.Unit)
		if unit == "" {
			return nil, invalid("unit cannot be empty")
		}
		patch.Unit = &unit
	}
	amounts := map[string]decimal.Decimal{}
	if patch.Cost != nil {
		amounts["cost"] = *patch.Cost
	}
	if patch.Stock != nil {
		amounts["stock"] = *patch.Stock
	}
	if patch.MinStock != nil {
		amounts["min_stock"] = *patch.MinStock
	}
	if err := checkAmounts(amounts); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, id, patch, allergenIDs); err != nil {
		return nil, err
	}

	details := map[string]any{"fields": ingredientFields(patch)}
	if allergenIDs != nil {
		details["allergens"] = *allergenIDs
	}
	s.audit.record(ctx, c, ActionUpdate, id, details)

	return s.store.Get(ctx, id, language(lang, s.defaultLang))
}

// Delete deactivates an ingredient that no product uses
func (s *IngredientService) Delete(ctx context.Context, c Caller, id int64) error {
	if err := c.require(permission.IngredientsDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.record(ctx, c, ActionDelete, id, nil)
	return nil
}

var amountPlaces = map[string]int32{"cost": moneyPlaces, "stock": quantityPlaces, "min_stock": quantityPlaces}

func checkAmounts(values map[string]decimal.Decimal) error {
	for _, field := range []string{"cost", "stock", "min_stock"} {
		v, ok := values[field]
		if !ok {
			continue
		}
		if v.IsNegative() {
			return invalid("%s cannot be negative", field)
		}
		if err := places(field, v, amountPlaces[field]); err != nil {
			return err
		}
	}
	return nil
}

func ingredientFields(p models.IngredientPatch) []string {
	fields := []string{}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Unit != nil {
		fields = append(fields, "unit")
	}
	if p.Cost != nil {
		fields = append(fields, "cost")
	}
	if p.Stock != nil {
		fields = append(fields, "stock")
	}
	if p.MinStock != nil {
		fields = append(fields, "min_stock")
	}
	return fields
}
