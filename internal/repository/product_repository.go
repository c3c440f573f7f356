package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/allergen"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/costing"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
)

// ProductRepository manages products and their ingredient lines.
type ProductRepository struct {
	db *database.Provider
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.Provider) *ProductRepository {
	return &ProductRepository{db: db}
}

// costColumn selects ingredient cost only for callers allowed to see it, so
// the value is never read otherwise.
func costColumn(caps permission.Set) string {
	if caps.CanViewCosts() {
		return "i.cost"
	}
	return "NULL"
}

// lineRow is the ingredient-line part of a product join row.
type lineRow struct {
	id       sql.NullInt64
	name     sql.NullString
	unit     sql.NullString
	quantity decimal.NullDecimal
	notes    sql.NullString
	cost     decimal.NullDecimal
}

func (l lineRow) line() models.ProductLine {
	pl := models.ProductLine{
		ID:       l.id.Int64,
		Name:     l.name.String,
		Unit:     l.unit.String,
		Quantity: l.quantity.Decimal,
		Notes:    nullableString(l.notes),
	}
	if l.cost.Valid {
		c := l.cost.Decimal
		pl.Cost = &c
	}
	return pl
}

type productRow struct {
	p        models.Product
	category sql.NullString
	image    sql.NullString
}

func (r *productRow) targets() []any {
	return []any{&r.p.ID, &r.p.Name, &r.p.Description, &r.p.Price, &r.p.CategoryID, &r.category,
		&r.image, &r.p.IsAvailable, &r.p.IsActive}
}

func (r *productRow) product() models.Product {
	p := r.p
	p.CategoryName = r.category.String
	p.ImageURL = nullableString(r.image)
	return p
}

// costFields computes the derived economics when caps allows it and leaves
// every field nil otherwise.
func costFields(caps permission.Set, price decimal.Decimal, lines []models.ProductLine) models.CostFields {
	if !caps.CanViewCosts() {
		return models.CostFields{}
	}
	cl := make([]costing.Line, 0, len(lines))
	for _, l := range lines {
		var c decimal.Decimal
		if l.Cost != nil {
			c = *l.Cost
		}
		cl = append(cl, costing.Line{Cost: c, Quantity: l.Quantity})
	}
	b := costing.Compute(price, cl)
	return models.CostFields{
		TotalCost:        &b.TotalCost,
		Margin:           &b.Margin,
		MarginPercentage: b.MarginPercentage,
	}
}

// List returns products matching filter with their category name and
// ingredient lines. Costs and margins are only present when caps allows.
func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter, caps permission.Set) ([]models.ProductSummary, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if filter.Search != "" {
		where = append(where, `(LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\')`)
		pattern := likePattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	if filter.CategoryID != nil {
		where = append(where, "p.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.IsAvailable != nil {
		where = append(where, "p.is_available = ?")
		args = append(args, *filter.IsAvailable)
	}

	query := `
		SELECT p.id, p.name, p.description, p.price, p.category_id, c.name, p.image_url, p.is_available, p.is_active,
		       i.id, i.name, i.unit, pi.quantity, pi.notes, ` + costColumn(caps) + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN product_ingredients pi ON pi.product_id = p.id
		LEFT JOIN ingredients i ON i.id = pi.ingredient_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.name, p.name, p.id, i.name, i.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var (
		order []int64
		byID  = make(map[int64]*models.ProductSummary)
	)
	for rows.Next() {
		var (
			pr productRow
			lr lineRow
		)
		dest := append(pr.targets(), &lr.id, &lr.name, &lr.unit, &lr.quantity, &lr.notes, &lr.cost)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		summary, ok := byID[pr.p.ID]
		if !ok {
			summary = &models.ProductSummary{
				Product:     pr.product(),
				Ingredients: []models.ProductLine{},
			}
			byID[pr.p.ID] = summary
			order = append(order, pr.p.ID)
		}
		if lr.id.Valid {
			summary.Ingredients = append(summary.Ingredients, lr.line())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	list := make([]models.ProductSummary, 0, len(order))
	for _, id := range order {
		s := byID[id]
		s.CostFields = costFields(caps, s.Price, s.Ingredients)
		list = append(list, *s)
	}
	return list, nil
}

// GetWithDetails hydrates one product: category, ingredient lines, the
// allergens of every ingredient in lang, and costs when caps allows.
// It returns (nil, nil) when no product has this id.
func (r *ProductRepository) GetWithDetails(ctx context.Context, id int64, lang string, caps permission.Set) (*models.ProductDetails, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	// The language filter sits in the join so products whose ingredients
	// carry no allergens still produce rows.
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.category_id, c.name, p.image_url, p.is_available, p.is_active,
		       i.id, i.name, i.unit, pi.quantity, pi.notes, `+costColumn(caps)+`,
		       a.id, a.eu_code, t.name
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN product_ingredients pi ON pi.product_id = p.id
		LEFT JOIN ingredients i ON i.id = pi.ingredient_id
		LEFT JOIN ingredient_allergens ia ON ia.ingredient_id = i.id
		LEFT JOIN allergens a ON a.id = ia.allergen_id
		LEFT JOIN allergen_translations t ON t.allergen_id = a.id AND t.language_code = ?
		WHERE p.id = ?
		ORDER BY i.name, i.id, a.eu_code, a.id`, lang, id)
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	defer rows.Close()

	var (
		details   *models.ProductDetails
		lineOrder []int64
		lines     = make(map[int64]models.ProductLine)
		groups    = allergen.Fold(nil)
	)
	for rows.Next() {
		var (
			pr  productRow
			lr  lineRow
			row allergen.Row
		)
		dest := append(pr.targets(), &lr.id, &lr.name, &lr.unit, &lr.quantity, &lr.notes, &lr.cost,
			&row.AllergenID, &row.EUCode, &row.Name)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan product %d: %w", id, err)
		}

		if details == nil {
			details = &models.ProductDetails{Product: pr.product()}
		}
		if !lr.id.Valid {
			continue
		}
		if _, ok := lines[lr.id.Int64]; !ok {
			lineOrder = append(lineOrder, lr.id.Int64)
			lines[lr.id.Int64] = lr.line()
		}
		row.OwnerID = lr.id.Int64
		groups.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product %d: %w", id, err)
	}
	if details == nil {
		return nil, nil
	}

	details.Ingredients = make([]models.DetailedLine, 0, len(lineOrder))
	plain := make([]models.ProductLine, 0, len(lineOrder))
	perLine := make([][]models.Allergen, 0, len(lineOrder))
	for _, ingID := range lineOrder {
		l := lines[ingID]
		list := groups.For(ingID)
		details.Ingredients = append(details.Ingredients, models.DetailedLine{ProductLine: l, Allergens: list})
		plain = append(plain, l)
		perLine = append(perLine, list)
	}
	details.Allergens = allergen.Merge(perLine...)
	details.CostFields = costFields(caps, details.Price, plain)
	return details, nil
}

// Create validates the category, inserts the product and its ingredient
// lines in one transaction and returns the new id.
func (r *ProductRepository) Create(ctx context.Context, in models.ProductInput, lines []models.LineInput) (int64, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var id int64
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		found, err := exists(ctx, tx, "categories", in.CategoryID)
		if err != nil {
			return err
		}
		if !found {
			return ErrInvalidCategory
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO products (name, description, price, category_id, image_url, is_available)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			in.Name, in.Description, in.Price, in.CategoryID, in.ImageURL, in.IsAvailable).Scan(&id)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("insert product: %w", err)
		}

		return replaceProductLines(ctx, tx, id, lines, false)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update applies the non-nil fields of patch and, when lines is non-nil,
// replaces the whole ingredient set. After commit the product is re-read
// through GetWithDetails and that hydrated value is returned.
func (r *ProductRepository) Update(ctx context.Context, id int64, patch models.ProductPatch, lines *[]models.LineInput, lang string, caps permission.Set) (*models.ProductDetails, error) {
	txCtx, cancel := r.db.Bound(ctx)
	defer cancel()

	err := r.db.WithTx(txCtx, func(tx *database.Tx) error {
		found, err := exists(txCtx, tx, "products", id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		if patch.CategoryID != nil {
			ok, err := exists(txCtx, tx, "categories", *patch.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalidCategory
			}
		}

		var set assignments
		if patch.Name != nil {
			set.add("name", *patch.Name)
		}
		if patch.Description != nil {
			set.add("description", *patch.Description)
		}
		if patch.Price != nil {
			set.add("price", *patch.Price)
		}
		if patch.CategoryID != nil {
			set.add("category_id", *patch.CategoryID)
		}
		if patch.ImageURL != nil {
			set.add("image_url", *patch.ImageURL)
		}
		if patch.IsAvailable != nil {
			set.add("is_available", *patch.IsAvailable)
		}
		if !set.empty() {
			if err := set.update(txCtx, tx, "products", id); err != nil {
				if database.IsUniqueViolation(err) {
					return ErrDuplicateName
				}
				return fmt.Errorf("update product %d: %w", id, err)
			}
		}

		if lines != nil {
			return replaceProductLines(txCtx, tx, id, *lines, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	details, err := r.GetWithDetails(ctx, id, lang, caps)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrNotFound
	}
	return details, nil
}

// Delete deactivates a product unless an active menu still lists it.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		found, err := exists(ctx, tx, "products", id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		usages, err := count(ctx, tx, `
			SELECT COUNT(*)
			FROM menu_products mp
			JOIN menus m ON m.id = mp.menu_id
			WHERE mp.product_id = ? AND m.is_active = ?`, id, true)
		if err != nil {
			return fmt.Errorf("count menus of product %d: %w", id, err)
		}
		if usages > 0 {
			return ErrInUse
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", false, id); err != nil {
			return fmt.Errorf("deactivate product %d: %w", id, err)
		}
		return nil
	})
}

// ComputeCosts builds the cost report of a product. A product without
// ingredient lines has zero cost and a margin equal to its price.
func (r *ProductRepository) ComputeCosts(ctx context.Context, id int64) (*models.CostReport, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	report := &models.CostReport{ProductID: id, Ingredients: []models.CostLine{}}
	err := r.db.QueryRowContext(ctx, "SELECT name, price FROM products WHERE id = ?", id).
		Scan(&report.ProductName, &report.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product %d: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.cost, pi.quantity
		FROM product_ingredients pi
		JOIN ingredients i ON i.id = pi.ingredient_id
		WHERE pi.product_id = ?
		ORDER BY i.name, i.id`, id)
	if err != nil {
		return nil, fmt.Errorf("query cost lines of product %d: %w", id, err)
	}
	defer rows.Close()

	var lines []costing.Line
	for rows.Next() {
		var cl models.CostLine
		if err := rows.Scan(&cl.IngredientID, &cl.Name, &cl.Cost, &cl.Quantity); err != nil {
			return nil, fmt.Errorf("scan cost line: %w", err)
		}
		line := costing.Line{Cost: cl.Cost, Quantity: cl.Quantity}
		cl.Total = line.Total()
		lines = append(lines, line)
		report.Ingredients = append(report.Ingredients, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cost lines: %w", err)
	}

	b := costing.Compute(report.Price, lines)
	report.TotalCost = b.TotalCost
	report.Margin = b.Margin
	report.MarginPercentage = b.MarginPercentage
	return report, nil
}

// replaceProductLines writes the ingredient lines of a product. When clear
// is true the existing lines are deleted first. Every referenced ingredient
// must exist and be active, and no ingredient may appear twice; otherwise
// ErrInvalidIngredients is returned and the caller's transaction rolls back.
func replaceProductLines(ctx context.Context, tx *database.Tx, productID int64, lines []models.LineInput, clear bool) error {
	if clear {
		if _, err := tx.ExecContext(ctx, "DELETE FROM product_ingredients WHERE product_id = ?", productID); err != nil {
			return fmt.Errorf("clear lines of product %d: %w", productID, err)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.IngredientID)
	}
	args, duplicate := idArgs(ids)
	if duplicate {
		return fmt.Errorf("%w: ingredient listed more than once", ErrInvalidIngredients)
	}

	n, err := count(ctx, tx,
		"SELECT COUNT(*) FROM ingredients WHERE id IN ("+database.Placeholders(len(args))+") AND is_active = ?",
		append(args, true)...)
	if err != nil {
		return fmt.Errorf("validate ingredients: %w", err)
	}
	if n != len(lines) {
		return ErrInvalidIngredients
	}

	values := make([]any, 0, 4*len(lines))
	for _, l := range lines {
		values = append(values, productID, l.IngredientID, l.Quantity, l.Notes)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO product_ingredients (product_id, ingredient_id, quantity, notes) VALUES "+database.ValuesRows(len(lines), 4),
		values...); err != nil {
		return fmt.Errorf("insert lines of product %d: %w", productID, err)
	}
	return nil
}
