package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/allergen"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// IngredientRepository manages ingredients and their allergen associations.
type IngredientRepository struct {
	db *database.Provider
}

// NewIngredientRepository creates a new ingredient repository
func NewIngredientRepository(db *database.Provider) *IngredientRepository {
	return &IngredientRepository{db: db}
}

const ingredientSelect = `
	SELECT i.id, i.name, i.description, i.unit, i.cost, i.stock, i.min_stock, i.is_active,
	       a.id, a.eu_code, t.name
	FROM ingredients i
	LEFT JOIN ingredient_allergens ia ON ia.ingredient_id = i.id
	LEFT JOIN allergens a ON a.id = ia.allergen_id
	LEFT JOIN allergen_translations t ON t.allergen_id = a.id AND t.language_code = ?`

// List returns ingredients matching filter, each with its allergens, in a
// single joined read ordered by name.
func (r *IngredientRepository) List(ctx context.Context, filter models.IngredientFilter) ([]models.Ingredient, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var (
		where []string
		args  = []any{filter.Language}
	)
	if filter.Search != "" {
		where = append(where, `LOWER(i.name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Search))
	}
	if filter.IsActive != nil {
		where = append(where, "i.is_active = ?")
		args = append(args, *filter.IsActive)
	}

	query := ingredientSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.name, i.id, a.eu_code, a.id"

	return r.query(ctx, r.db, query, args...)
}

// Get returns one ingredient with its allergens
func (r *IngredientRepository) Get(ctx context.Context, id int64, lang string) (*models.Ingredient, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	list, err := r.query(ctx, r.db, ingredientSelect+" WHERE i.id = ? ORDER BY a.eu_code, a.id", lang, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *IngredientRepository) query(ctx context.Context, q database.Querier, query string, args ...any) ([]models.Ingredient, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	var (
		order  []int64
		byID   = make(map[int64]*models.Ingredient)
		groups = allergen.Fold(nil)
	)
	for rows.Next() {
		var (
			ing models.Ingredient
			row allergen.Row
		)
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Description, &ing.Unit, &ing.Cost, &ing.Stock,
			&ing.MinStock, &ing.IsActive, &row.AllergenID, &row.EUCode, &row.Name); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		if _, ok := byID[ing.ID]; !ok {
			order = append(order, ing.ID)
			byID[ing.ID] = &ing
		}
		row.OwnerID = ing.ID
		groups.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}

	list := make([]models.Ingredient, 0, len(order))
	for _, id := range order {
		ing := byID[id]
		ing.Allergens = groups.For(id)
		list = append(list, *ing)
	}
	return list, nil
}

// Create inserts an ingredient and its allergen associations in one
// transaction and returns the new id.
func (r *IngredientRepository) Create(ctx context.Context, in models.IngredientInput, allergenIDs []int64) (int64, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var id int64
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO ingredients (name, description, unit, cost, stock, min_stock)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			in.Name, in.Description, in.Unit, in.Cost, in.Stock, in.MinStock).Scan(&id)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("insert ingredient: %w", err)
		}
		return replaceIngredientAllergens(ctx, tx, id, allergenIDs, false)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update applies the non-nil fields of patch. A non-nil allergenIDs, even an
// empty one, replaces the whole allergen set in the same transaction.
func (r *IngredientRepository) Update(ctx context.Context, id int64, patch models.IngredientPatch, allergenIDs *[]int64) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		found, err := exists(ctx, tx, "ingredients", id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		var set assignments
		if patch.Name != nil {
			set.add("name", *patch.Name)
		}
		if patch.Description != nil {
			set.add("description", *patch.Description)
		}
		if patch.Unit != nil {
			set.add("unit", *patch.Unit)
		}
		if patch.Cost != nil {
			set.add("cost", *patch.Cost)
		}
		if patch.Stock != nil {
			set.add("stock", *patch.Stock)
		}
		if patch.MinStock != nil {
			set.add("min_stock", *patch.MinStock)
		}
		if !set.empty() {
			if err := set.update(ctx, tx, "ingredients", id); err != nil {
				if database.IsUniqueViolation(err) {
					return ErrDuplicateName
				}
				return fmt.Errorf("update ingredient %d: %w", id, err)
			}
		}

		if allergenIDs != nil {
			return replaceIngredientAllergens(ctx, tx, id, *allergenIDs, true)
		}
		return nil
	})
}

// Delete deactivates an ingredient. It fails with ErrInUse while any product
// line references it; the row itself is never removed.
func (r *IngredientRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		found, err := exists(ctx, tx, "ingredients", id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		usages, err := count(ctx, tx, "SELECT COUNT(*) FROM product_ingredients WHERE ingredient_id = ?", id)
		if err != nil {
			return fmt.Errorf("count usages of ingredient %d: %w", id, err)
		}
		if usages > 0 {
			return ErrInUse
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE ingredients SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", false, id); err != nil {
			return fmt.Errorf("deactivate ingredient %d: %w", id, err)
		}
		return nil
	})
}
