package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database/dbtest"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

func TestIngredientLifecycle(t *testing.T) {
	api := newTestAPI(t)
	chef := api.login(t, "chef")
	if err := api.allergens.Upsert(context.Background(), []models.AllergenTranslation{
		{EUCode: "A07", Language: "en", Name: "Milk"},
		{EUCode: "A07", Language: "it", Name: "Latte"},
	}); err != nil {
		t.Fatalf("seed allergens: %v", err)
	}

	// Create
	w := api.do(t, http.MethodPost, "/api/ingredients?lang=it", chef, map[string]any{
		"name": "  Mozzarella ", "unit": "kg", "cost": "7.5", "stock": "10", "allergens": []int64{1},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var ing models.Ingredient
	decode(t, w, &ing)
	if ing.Name != "Mozzarella" || !ing.Cost.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("unexpected ingredient: %+v", ing)
	}
	if len(ing.Allergens) != 1 || ing.Allergens[0].Name != "Latte" {
		t.Errorf("unexpected allergens: %+v", ing.Allergens)
	}
	path := fmt.Sprintf("/api/ingredients/%d", ing.ID)

	// Get
	w = api.do(t, http.MethodGet, path, chef, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected status 200, got %d", w.Code)
	}

	// Update clears allergens and keeps the cost
	w = api.do(t, http.MethodPut, path, chef, map[string]any{"stock": "4", "allergens": []int64{}})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"allergens":[]`) {
		t.Errorf("expected an empty allergen list, got %s", w.Body.String())
	}
	decode(t, w, &ing)
	if !ing.Stock.Equal(decimal.NewFromInt(4)) || !ing.Cost.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("unexpected ingredient after update: %+v", ing)
	}

	// List
	w = api.do(t, http.MethodGet, "/api/ingredients?search=mozz&is_active=true", chef, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected status 200, got %d", w.Code)
	}
	var list []models.Ingredient
	decode(t, w, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 ingredient, got %d", len(list))
	}

	// Delete
	w = api.do(t, http.MethodDelete, path, chef, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if n := dbtest.Count(t, api.db, "SELECT COUNT(*) FROM ingredients WHERE is_active = ?", true); n != 0 {
		t.Errorf("expected ingredient to be deactivated, %d still active", n)
	}
}

func TestIngredientErrors(t *testing.T) {
	api := newTestAPI(t)
	chef := api.login(t, "chef")
	waiter := api.login(t, "waiter")

	w := api.do(t, http.MethodPost, "/api/ingredients", chef, map[string]any{"name": "Basil", "unit": "g"})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed ingredient: expected status 201, got %d", w.Code)
	}

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     any
		expected int
	}{
		{name: "duplicate name", method: http.MethodPost, path: "/api/ingredients", token: chef, body: map[string]any{"name": "Basil", "unit": "g"}, expected: http.StatusBadRequest},
		{name: "negative cost", method: http.MethodPost, path: "/api/ingredients", token: chef, body: map[string]any{"name": "Salt", "unit": "g", "cost": "-1"}, expected: http.StatusBadRequest},
		{name: "unknown allergen", method: http.MethodPost, path: "/api/ingredients", token: chef, body: map[string]any{"name": "Salt", "unit": "g", "allergens": []int64{42}}, expected: http.StatusBadRequest},
		{name: "create forbidden", method: http.MethodPost, path: "/api/ingredients", token: waiter, body: map[string]any{"name": "Salt", "unit": "g"}, expected: http.StatusForbidden},
		{name: "update missing", method: http.MethodPut, path: "/api/ingredients/999", token: chef, body: map[string]any{"unit": "kg"}, expected: http.StatusNotFound},
		{name: "update invalid id", method: http.MethodPut, path: "/api/ingredients/x", token: chef, body: map[string]any{"unit": "kg"}, expected: http.StatusBadRequest},
		{name: "delete missing", method: http.MethodDelete, path: "/api/ingredients/999", token: chef, expected: http.StatusNotFound},
		{name: "delete forbidden", method: http.MethodDelete, path: "/api/ingredients/1", token: waiter, expected: http.StatusForbidden},
		{name: "invalid filter", method: http.MethodGet, path: "/api/ingredients?is_active=sometimes", token: chef, expected: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteIngredient_InUse(t *testing.T) {
	api := newTestAPI(t)
	chef := api.login(t, "chef")
	seedProduct(t, api, chef)

	w := api.do(t, http.MethodDelete, "/api/ingredients/1", chef, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateIngredient_IgnoresIsActive(t *testing.T) {
	api := newTestAPI(t)
	chef := api.login(t, "chef")
	seedProduct(t, api, chef)
	activeRows := "SELECT COUNT(*) FROM ingredients WHERE id = 1 AND is_active = ?"

	w := api.do(t, http.MethodPut, "/api/ingredients/1", chef, map[string]any{"is_active": false})
	if w.Code != http.StatusBadRequest {
		t.Errorf("is_active only: expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	w = api.do(t, http.MethodPut, "/api/ingredients/1", chef, map[string]any{"is_active": false, "stock": "3"})
	if w.Code != http.StatusOK {
		t.Fatalf("with stock: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if n := dbtest.Count(t, api.db, activeRows, true); n != 1 {
		t.Errorf("expected the referenced ingredient to stay active")
	}

	if w := api.do(t, http.MethodDelete, "/api/ingredients/1", chef, nil); w.Code != http.StatusConflict {
		t.Errorf("delete: expected status 409, got %d", w.Code)
	}
	if n := dbtest.Count(t, api.db, activeRows, true); n != 1 {
		t.Errorf("expected the referenced ingredient to stay active after delete")
	}
}
