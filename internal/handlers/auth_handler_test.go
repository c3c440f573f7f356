package handlers

import (
	"net/http"
	"testing"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database/dbtest"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
)

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name     string
		body     any
		expected int
	}{
		{name: "valid credentials", body: map[string]string{"username": "waiter", "password": testPassword}, expected: http.StatusOK},
		{name: "wrong password", body: map[string]string{"username": "waiter", "password": "nope"}, expected: http.StatusUnauthorized},
		{name: "unknown user", body: map[string]string{"username": "ghost", "password": testPassword}, expected: http.StatusUnauthorized},
		{name: "malformed body", body: "{", expected: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}

	if n := dbtest.Count(t, api.db, "SELECT COUNT(*) FROM admin_users WHERE last_login IS NOT NULL"); n != 1 {
		t.Errorf("expected one user with a last login, got %d", n)
	}
}

func TestVerify(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "waiter")

	w := api.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var res VerifyResponse
	decode(t, w, &res)

	if res.Username != "waiter" {
		t.Errorf("expected username waiter, got %q", res.Username)
	}
	caps := permission.NewSet(res.Permissions...)
	if len(res.Permissions) != 2 || !caps.Has(permission.ProductsView) || !caps.Has(permission.IngredientsView) {
		t.Errorf("unexpected permissions: %v", res.Permissions)
	}
}
