package repository

import (
	"context"
	"fmt"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// CategoryRepository reads and seeds product categories.
type CategoryRepository struct {
	db *database.Provider
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.Provider) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns active categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, is_active
		FROM categories
		WHERE is_active = ?
		ORDER BY name`, true)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	list := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return list, nil
}

// Create inserts a category and returns its id.
func (r *CategoryRepository) Create(ctx context.Context, name, description string) (int64, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO categories (name, description) VALUES (?, ?) RETURNING id", name, description).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicateName
		}
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}
