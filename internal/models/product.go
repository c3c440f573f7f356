package models

import "github.com/shopspring/decimal"

// Product represents a menu item composed of ingredients
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	ImageURL     *string         `json:"image_url"`
	IsAvailable  bool            `json:"is_available"`
	IsActive     bool            `json:"is_active"`
}

// CostFields are derived on read and only populated for callers allowed to
// view costs. Nil fields are left out of the JSON entirely.
type CostFields struct {
	TotalCost        *decimal.Decimal `json:"total_cost,omitempty"`
	Margin           *decimal.Decimal `json:"margin,omitempty"`
	MarginPercentage *string          `json:"margin_percentage,omitempty"`
}

// ProductLine is one ingredient of a product with its quantity
type ProductLine struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Unit     string           `json:"unit"`
	Quantity decimal.Decimal  `json:"quantity"`
	Notes    *string          `json:"notes,omitempty"`
	Cost     *decimal.Decimal `json:"cost,omitempty"`
}

// ProductSummary is the list view of a product
type ProductSummary struct {
	Product
	Ingredients []ProductLine `json:"ingredients"`
	CostFields
}

// DetailedLine is an ingredient line carrying its own allergens
type DetailedLine struct {
	ProductLine
	Allergens []Allergen `json:"allergens"`
}

// ProductDetails is the fully hydrated product
type ProductDetails struct {
	Product
	Ingredients []DetailedLine `json:"ingredients"`
	// Allergens is the union of the allergens of every ingredient
	Allergens []Allergen `json:"allergens"`
	CostFields
}

// ProductInput carries the fields of a new product
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  int64
	ImageURL    *string
	IsAvailable bool
}

// ProductPatch is a partial update: nil fields are left untouched
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	CategoryID  *int64
	ImageURL    *string
	IsAvailable *bool
}

// IsEmpty reports whether the patch changes no column
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.CategoryID == nil &&
		p.ImageURL == nil && p.IsAvailable == nil
}

// LineInput associates an ingredient with a product
type LineInput struct {
	IngredientID int64           `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Notes        *string         `json:"notes,omitempty"`
}

// ProductFilter narrows List results
type ProductFilter struct {
	CategoryID  *int64
	Search      string
	IsAvailable *bool
}

// CostLine is one ingredient contribution in a cost report
type CostLine struct {
	IngredientID int64           `json:"ingredient_id"`
	Name         string          `json:"name"`
	Cost         decimal.Decimal `json:"cost"`
	Quantity     decimal.Decimal `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
}

// CostReport is the cost breakdown of a single product
type CostReport struct {
	ProductID        int64           `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Price            decimal.Decimal `json:"price"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Margin           decimal.Decimal `json:"margin"`
	MarginPercentage *string         `json:"margin_percentage,omitempty"`
	Ingredients      []CostLine      `json:"ingredients"`
}
