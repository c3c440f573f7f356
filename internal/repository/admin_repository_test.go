package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database/dbtest"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
)

func TestAdminRepository_Roles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.admins.UpsertRole(ctx, "kitchen", []string{"ingredients.view"})
	require.NoError(t, err)

	again, err := f.admins.UpsertRole(ctx, "kitchen", []string{"ingredients.view", "ingredients.update"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	tokens, err := f.admins.RolePermissions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"ingredients.view", "ingredients.update"}, tokens)

	_, err = f.admins.RolePermissions(ctx, 500)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdminRepository_Users(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.admins.UpsertRole(ctx, "admin", nil)
	require.NoError(t, err)

	id, err := f.admins.CreateUser(ctx, "alex", "hash", role)
	require.NoError(t, err)

	_, err = f.admins.CreateUser(ctx, "alex", "other", role)
	assert.ErrorIs(t, err, repository.ErrDuplicateName)

	u, err := f.admins.FindUserByUsername(ctx, "alex")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, role, u.RoleID)
	assert.Equal(t, "hash", u.PasswordHash)

	require.NoError(t, f.admins.TouchLastLogin(ctx, id))
	assert.Equal(t, 1, dbtest.Count(t, f.db, "SELECT COUNT(*) FROM admin_users WHERE last_login IS NOT NULL"))

	dbtest.Exec(t, f.db, "UPDATE admin_users SET is_active = ? WHERE id = ?", false, id)
	_, err = f.admins.FindUserByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestActivityRepository_Insert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.activity.Insert(ctx, models.ActivityEntry{
		EventID:    "6f1c7e0e-1111-4c55-9f00-000000000001",
		Action:     "update",
		EntityType: "product",
		EntityID:   7,
		Details:    map[string]any{"fields": []string{"price"}},
	})
	require.NoError(t, err)

	var details string
	require.NoError(t, f.db.QueryRowContext(ctx,
		"SELECT details FROM admin_activity_log WHERE entity_id = ?", 7).Scan(&details))
	assert.JSONEq(t, `{"fields":["price"]}`, details)
	assert.Equal(t, 1, dbtest.Count(t, f.db, "SELECT COUNT(*) FROM admin_activity_log WHERE user_id IS NULL"))
}

func TestCategoryRepository_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.category(t, "Wines")
	f.category(t, "Beers")

	_, err := f.categories.Create(ctx, "Wines", "")
	assert.ErrorIs(t, err, repository.ErrDuplicateName)

	list, err := f.categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Beers", list[0].Name)
}

func TestAllergenRepository_ForProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	allergens := f.seedAllergens(t)
	cat := f.category(t, "Sandwiches")
	bread := f.ingredient(t, "Bread", "0.50", allergens["A01"])
	cheese := f.ingredient(t, "Cheddar", "1.20", allergens["A07"], allergens["A01"])

	id, err := f.products.Create(ctx, models.ProductInput{Name: "Toastie", Price: dec("4.50"), CategoryID: cat},
		[]models.LineInput{{IngredientID: bread, Quantity: dec("2")}, {IngredientID: cheese, Quantity: dec("0.05")}})
	require.NoError(t, err)

	list, err := f.allergens.ForProduct(ctx, id, "en")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Gluten", list[0].Name)
	assert.Equal(t, "Milk", list[1].Name)

	_, err = f.allergens.ForProduct(ctx, 999, "en")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Upsert overwrites existing names and keeps ids stable.
	require.NoError(t, f.allergens.Upsert(ctx, []models.AllergenTranslation{{EUCode: "A07", Language: "en", Name: "Milk (lactose)"}}))
	all, err := f.allergens.List(ctx, "en")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, allergens["A07"], all[1].ID)
	assert.Equal(t, "Milk (lactose)", all[1].Name)
}
