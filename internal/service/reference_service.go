package service

import (
	"context"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
)

// AllergenLister lists allergen reference data in a language
type AllergenLister interface {
	List(ctx context.Context, lang string) ([]models.Allergen, error)
}

// CategoryLister lists product categories
type CategoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// ReferenceService serves the read-only lookup lists the admin forms need.
type ReferenceService struct {
	allergens   AllergenLister
	categories  CategoryLister
	defaultLang string
}

// NewReferenceService creates a new reference service
func NewReferenceService(allergens AllergenLister, categories CategoryLister, defaultLang string) *ReferenceService {
	return &ReferenceService{allergens: allergens, categories: categories, defaultLang: defaultLang}
}

func (s *ReferenceService) Allergens(ctx context.Context, c Caller, lang string) ([]models.Allergen, error) {
	if err := c.require(permission.IngredientsView); err != nil {
		return nil, err
	}
	return s.allergens.List(ctx, language(lang, s.defaultLang))
}

func (s *ReferenceService) Categories(ctx context.Context, c Caller) ([]models.Category, error) {
	if err := c.require(permission.ProductsView); err != nil {
		return nil, err
	}
	return s.categories.List(ctx)
}
