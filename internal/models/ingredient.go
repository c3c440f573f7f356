package models

import "github.com/shopspring/decimal"

// Ingredient is a stock item used to compose products
type Ingredient struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       decimal.Decimal `json:"stock"`
	MinStock    decimal.Decimal `json:"min_stock"`
	IsActive    bool            `json:"is_active"`
	Allergens   []Allergen      `json:"allergens"`
}

// IngredientInput carries the fields of a new ingredient
type IngredientInput struct {
	Name        string
	Description string
	Unit        string
	Cost        decimal.Decimal
	Stock       decimal.Decimal
	MinStock    decimal.Decimal
}

// IngredientPatch is a partial update: nil fields are left untouched
type IngredientPatch struct {
	Name        *string
	Description *string
	Unit        *string
	Cost        *decimal.Decimal
	Stock       *decimal.Decimal
	MinStock    *decimal.Decimal
}

// IsEmpty reports whether the patch changes no column
func (p IngredientPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Unit == nil &&
		p.Cost == nil && p.Stock == nil && p.MinStock == nil
}

// IngredientFilter narrows List results
type IngredientFilter struct {
	Search   string
	IsActive *bool
	Language string
}
