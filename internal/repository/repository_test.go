package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database/dbtest"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
)

type fixture struct {
	db          *database.Provider
	ingredients *repository.IngredientRepository
	products    *repository.ProductRepository
	allergens   *repository.AllergenRepository
	categories  *repository.CategoryRepository
	admins      *repository.AdminRepository
	activity    *repository.ActivityRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	return &fixture{
		db:          db,
		ingredients: repository.NewIngredientRepository(db),
		products:    repository.NewProductRepository(db),
		allergens:   repository.NewAllergenRepository(db),
		categories:  repository.NewCategoryRepository(db),
		admins:      repository.NewAdminRepository(db),
		activity:    repository.NewActivityRepository(db),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) category(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.categories.Create(context.Background(), name, "")
	require.NoError(t, err)
	return id
}

func (f *fixture) ingredient(t *testing.T, name, cost string, allergenIDs ...int64) int64 {
	t.Helper()
	id, err := f.ingredients.Create(context.Background(), models.IngredientInput{
		Name: name,
		Unit: "kg",
		Cost: dec(cost),
	}, allergenIDs)
	require.NoError(t, err)
	return id
}

// seedAllergens loads gluten and milk with English and Spanish names and
// returns their ids keyed by EU code.
func (f *fixture) seedAllergens(t *testing.T) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.allergens.Upsert(ctx, []models.AllergenTranslation{
		{EUCode: "A01", Language: "en", Name: "Gluten"},
		{EUCode: "A01", Language: "es", Name: "Gluten"},
		{EUCode: "A07", Language: "en", Name: "Milk"},
		{EUCode: "A07", Language: "es", Name: "Leche"},
	}))

	list, err := f.allergens.List(ctx, "en")
	require.NoError(t, err)
	ids := make(map[string]int64, len(list))
	for _, a := range list {
		ids[a.EUCode] = a.ID
	}
	return ids
}
