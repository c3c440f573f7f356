package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/activity"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/auth"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database/dbtest"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/pkg/logger"
)

const testPassword = "s3cret-pass"

// testAPI is the full router over a fresh SQLite store with two users:
// "chef" holds every permission, "waiter" may only view.
type testAPI struct {
	db         *database.Provider
	router     http.Handler
	categories *repository.CategoryRepository
	allergens  *repository.AllergenRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.New("error")
	ctx := context.Background()

	admins := repository.NewAdminRepository(db)
	categories := repository.NewCategoryRepository(db)
	allergens := repository.NewAllergenRepository(db)
	hasher := auth.NewPasswordHasherWithCost(4)

	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	roles := map[string][]string{
		"chef":   permission.All,
		"waiter": {permission.ProductsView, permission.IngredientsView},
	}
	for name, perms := range roles {
		roleID, err := admins.UpsertRole(ctx, name, perms)
		if err != nil {
			t.Fatalf("seed role %s: %v", name, err)
		}
		if _, err := admins.CreateUser(ctx, name, hash, roleID); err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
	}

	tokens := auth.NewJWTManager(auth.JWTConfig{SecretKey: "test-secret", TTL: time.Hour, Issuer: "test"})
	authService := service.NewAuthService(admins, permission.NewGate(admins), tokens, hasher, activity.Nop{}, log)

	router := NewRouter(RouterConfig{
		Health:        NewHealthHandler(db, log),
		Auth:          NewAuthHandler(authService, log),
		Ingredients:   NewIngredientHandler(service.NewIngredientService(repository.NewIngredientRepository(db), activity.Nop{}, "en"), log),
		Products:      NewProductHandler(service.NewProductService(repository.NewProductRepository(db), activity.Nop{}, "en"), log),
		Reference:     NewReferenceHandler(service.NewReferenceService(allergens, categories, "en"), log),
		Authenticator: authService,
		Metrics:       metrics.New(),
		Logger:        log,
	})

	return &testAPI{db: db, router: router, categories: categories, allergens: allergens}
}

// do sends a request through the router. body, when not nil, is JSON encoded.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(t *testing.T, username string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected status 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	decode(t, w, &res)
	return res.Token
}

func (a *testAPI) category(t *testing.T, name string) int64 {
	t.Helper()
	id, err := a.categories.Create(context.Background(), name, "")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return id
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)

	paths := []string{
		"/api/auth/verify",
		"/api/allergens",
		"/api/categories",
		"/api/ingredients",
		"/api/products",
		"/api/products/1",
		"/api/products/1/costs",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := api.do(t, http.MethodGet, path, "", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", w.Code)
			}
		})
	}

	w := api.do(t, http.MethodGet, "/api/products", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for a bad token, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var res HealthResponse
	decode(t, w, &res)
	if res.Status != "healthy" || res.Database != "up" {
		t.Errorf("unexpected health response: %+v", res)
	}
}

type downPinger struct{}

func (downPinger) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealth_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(downPinger{}, logger.New("error"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	var res HealthResponse
	decode(t, w, &res)
	if res.Status != "unhealthy" || res.Database != "down" {
		t.Errorf("unexpected health response: %+v", res)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/health", "", nil)

	w := api.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `route="/health"`) {
		t.Errorf("expected /health to be recorded, got:\n%s", w.Body.String())
	}
}

func TestReferenceEndpoints(t *testing.T) {
	api := newTestAPI(t)
	chef := api.login(t, "chef")
	api.category(t, "Pizza")
	if err := api.allergens.Upsert(context.Background(), []models.AllergenTranslation{
		{EUCode: "A07", Language: "en", Name: "Milk"},
		{EUCode: "A07", Language: "it", Name: "Latte"},
	}); err != nil {
		t.Fatalf("seed allergens: %v", err)
	}

	w := api.do(t, http.MethodGet, "/api/allergens?lang=it", chef, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var allergens []models.Allergen
	decode(t, w, &allergens)
	if len(allergens) != 1 || allergens[0].Name != "Latte" {
		t.Errorf("unexpected allergens: %+v", allergens)
	}

	w = api.do(t, http.MethodGet, "/api/categories", chef, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var categories []models.Category
	decode(t, w, &categories)
	if len(categories) != 1 || categories[0].Name != "Pizza" {
		t.Errorf("unexpected categories: %+v", categories)
	}
}
