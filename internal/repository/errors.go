package repository

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateName      = errors.New("name already exists")
	ErrInUse              = errors.New("entity is still referenced")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidIngredients = errors.New("one or more ingredients are missing or inactive")
	ErrInvalidAllergens   = errors.New("one or more allergens are missing")
)
