package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/allergen"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// AllergenRepository reads allergen reference data and the allergens
// associated with ingredients and products.
type AllergenRepository struct {
	db *database.Provider
}

// NewAllergenRepository creates a new allergen repository
func NewAllergenRepository(db *database.Provider) *AllergenRepository {
	return &AllergenRepository{db: db}
}

// List returns every allergen named in lang, ordered by EU code
func (r *AllergenRepository) List(ctx context.Context, lang string) ([]models.Allergen, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.eu_code, t.name
		FROM allergens a
		LEFT JOIN allergen_translations t ON t.allergen_id = a.id AND t.language_code = ?
		ORDER BY a.eu_code`, lang)
	if err != nil {
		return nil, fmt.Errorf("query allergens: %w", err)
	}
	defer rows.Close()

	list := []models.Allergen{}
	for rows.Next() {
		var (
			a    models.Allergen
			name sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EUCode, &name); err != nil {
			return nil, fmt.Errorf("scan allergen: %w", err)
		}
		a.Name = name.String
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allergens: %w", err)
	}
	return list, nil
}

// ForIngredient returns the allergens of one ingredient in EU code order.
// An ingredient without allergens yields an empty list.
func (r *AllergenRepository) ForIngredient(ctx context.Context, ingredientID int64, lang string) ([]models.Allergen, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	found, err := exists(ctx, r.db, "ingredients", ingredientID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	groups, err := r.fold(ctx, ingredientID, `
		SELECT ia.ingredient_id, a.id, a.eu_code, t.name
		FROM ingredient_allergens ia
		JOIN allergens a ON a.id = ia.allergen_id
		LEFT JOIN allergen_translations t ON t.allergen_id = a.id AND t.language_code = ?
		WHERE ia.ingredient_id = ?
		ORDER BY a.eu_code, a.id`, lang, ingredientID)
	if err != nil {
		return nil, err
	}
	return groups.For(ingredientID), nil
}

// ForProduct returns the distinct allergens across all ingredients of a
// product in EU code order.
func (r *AllergenRepository) ForProduct(ctx context.Context, productID int64, lang string) ([]models.Allergen, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	found, err := exists(ctx, r.db, "products", productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	groups, err := r.fold(ctx, productID, `
		SELECT pi.product_id, a.id, a.eu_code, t.name
		FROM product_ingredients pi
		JOIN ingredient_allergens ia ON ia.ingredient_id = pi.ingredient_id
		JOIN allergens a ON a.id = ia.allergen_id
		LEFT JOIN allergen_translations t ON t.allergen_id = a.id AND t.language_code = ?
		WHERE pi.product_id = ?
		ORDER BY a.eu_code, a.id`, lang, productID)
	if err != nil {
		return nil, err
	}
	return groups.For(productID), nil
}

func (r *AllergenRepository) fold(ctx context.Context, owner int64, query string, args ...any) (*allergen.Groups, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query allergens of %d: %w", owner, err)
	}
	defer rows.Close()

	groups := allergen.Fold(nil)
	for rows.Next() {
		var row allergen.Row
		if err := rows.Scan(&row.OwnerID, &row.AllergenID, &row.EUCode, &row.Name); err != nil {
			return nil, fmt.Errorf("scan allergen row: %w", err)
		}
		groups.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allergen rows: %w", err)
	}
	return groups, nil
}

// Upsert stores catalog translations, creating allergens for unseen codes
// and overwriting names already present for a language.
func (r *AllergenRepository) Upsert(ctx context.Context, entries []models.AllergenTranslation) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		ids := make(map[string]int64)
		for _, e := range entries {
			id, ok := ids[e.EUCode]
			if !ok {
				var err error
				if id, err = ensureAllergen(ctx, tx, e.EUCode); err != nil {
					return err
				}
				ids[e.EUCode] = id
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO allergen_translations (allergen_id, language_code, name)
				VALUES (?, ?, ?)
				ON CONFLICT (allergen_id, language_code) DO UPDATE SET name = excluded.name`,
				id, e.Language, e.Name); err != nil {
				return fmt.Errorf("upsert translation %s/%s: %w", e.EUCode, e.Language, err)
			}
		}
		return nil
	})
}

func ensureAllergen(ctx context.Context, tx *database.Tx, code string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO allergens (eu_code) VALUES (?) ON CONFLICT (eu_code) DO NOTHING", code); err != nil {
		return 0, fmt.Errorf("insert allergen %s: %w", code, err)
	}
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM allergens WHERE eu_code = ?", code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("allergen %s vanished after insert", code)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup allergen %s: %w", code, err)
	}
	return id, nil
}

// replaceIngredientAllergens sets the allergen associations of an ingredient.
// When clear is true the existing set is deleted first; the new set is always
// written in full, never diffed.
func replaceIngredientAllergens(ctx context.Context, tx *database.Tx, ingredientID int64, allergenIDs []int64, clear bool) error {
	if clear {
		if _, err := tx.ExecContext(ctx, "DELETE FROM ingredient_allergens WHERE ingredient_id = ?", ingredientID); err != nil {
			return fmt.Errorf("clear allergens of ingredient %d: %w", ingredientID, err)
		}
	}
	if len(allergenIDs) == 0 {
		return nil
	}

	args, duplicate := idArgs(allergenIDs)
	if duplicate {
		return fmt.Errorf("%w: duplicate allergen id", ErrInvalidAllergens)
	}
	n, err := count(ctx, tx, "SELECT COUNT(*) FROM allergens WHERE id IN ("+database.Placeholders(len(args))+")", args...)
	if err != nil {
		return fmt.Errorf("validate allergens: %w", err)
	}
	if n != len(allergenIDs) {
		return ErrInvalidAllergens
	}

	values := make([]any, 0, 2*len(allergenIDs))
	for _, id := range allergenIDs {
		values = append(values, ingredientID, id)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO ingredient_allergens (ingredient_id, allergen_id) VALUES "+database.ValuesRows(len(allergenIDs), 2),
		values...); err != nil {
		return fmt.Errorf("insert allergens of ingredient %d: %w", ingredientID, err)
	}
	return nil
}
