package models

// Allergen is an EU allergen with its name in the requested language.
// Name is empty when no translation exists for that language.
type Allergen struct {
	ID     int64  `json:"id"`
	EUCode string `json:"eu_code"`
	Name   string `json:"name"`
}

// Category groups products on the menu
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// AllergenTranslation is one catalog line: an EU code named in one language
type AllergenTranslation struct {
	EUCode   string
	Language string
	Name     string
}
