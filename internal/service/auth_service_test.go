package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/auth"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
)

func newAuthService(t *testing.T, h *harness) *AuthService {
	t.Helper()
	ctx := context.Background()
	hasher := auth.NewPasswordHasherWithCost(4)

	role, err := h.admins.UpsertRole(ctx, "editor", []string{permission.ProductsView, permission.ProductsUpdate})
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := h.admins.CreateUser(ctx, "maria", hash, role); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	tokens := auth.NewJWTManager(auth.JWTConfig{SecretKey: "secret", TTL: time.Hour, Issuer: "test"})
	return NewAuthService(h.admins, permission.NewGate(h.admins), tokens, hasher, h.sink, discardLogger())
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	h := newHarness(t)
	svc := newAuthService(t, h)
	ctx := context.Background()

	result, err := svc.Login(ctx, "maria", "correct horse", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Login() returned empty token")
	}
	if len(result.Permissions) != 2 {
		t.Errorf("Login() permissions = %v", result.Permissions)
	}

	caller, err := svc.Authenticate(ctx, result.Token, "10.0.0.2")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if caller.Username != "maria" || caller.IPAddress != "10.0.0.2" {
		t.Errorf("Authenticate() caller = %+v", caller)
	}
	if !caller.Caps.Has(permission.ProductsUpdate) || caller.Caps.CanViewCosts() {
		t.Errorf("Authenticate() caps = %v", caller.Caps.Tokens())
	}

	if got := h.sink.actions(); len(got) != 1 || got[0] != "admin_user:LOGIN" {
		t.Errorf("activity = %v, want one login", got)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	h := newHarness(t)
	svc := newAuthService(t, h)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"wrong password", "maria", "nope", ErrInvalidCredentials},
		{"unknown user", "ghost", "correct horse", ErrInvalidCredentials},
		{"empty", "", "", ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tt.username, tt.password, ""); !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_AuthenticateRejectsBadTokens(t *testing.T) {
	h := newHarness(t)
	svc := newAuthService(t, h)

	if _, err := svc.Authenticate(context.Background(), "garbage", ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Authenticate(garbage) error = %v, want ErrUnauthenticated", err)
	}

	orphan, _, err := auth.NewJWTManager(auth.JWTConfig{SecretKey: "secret", TTL: time.Hour, Issuer: "test"}).Generate(77, "ghost", 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), orphan, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Authenticate(unknown user) error = %v, want ErrUnauthenticated", err)
	}
}
