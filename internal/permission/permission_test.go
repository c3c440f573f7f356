package permission

import (
	"context"
	"errors"
	"testing"
)

type stubRoles struct {
	tokens map[int64][]string
	err    error
	calls  int
}

func (s *stubRoles) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens[roleID], nil
}

func TestSet_Require(t *testing.T) {
	s := NewSet(ProductsView, ProductsViewCosts)

	tests := []struct {
		name   string
		needed []string
		want   bool
	}{
		{"nothing needed", nil, true},
		{"single held", []string{ProductsView}, true},
		{"all held", []string{ProductsView, ProductsViewCosts}, true},
		{"one missing", []string{ProductsView, ProductsUpdate}, false},
		{"unknown token", []string{"menus.view"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Require(tt.needed...); got != tt.want {
				t.Errorf("Require(%v) = %v, want %v", tt.needed, got, tt.want)
			}
		})
	}
}

func TestZeroSetHoldsNothing(t *testing.T) {
	var s Set
	if s.Has(ProductsView) || s.CanViewCosts() {
		t.Error("zero set should hold no tokens")
	}
	if !s.Require() {
		t.Error("zero set should satisfy an empty requirement")
	}
	if len(s.Tokens()) != 0 {
		t.Errorf("Tokens() = %v, want empty", s.Tokens())
	}
}

func TestGate_Resolve(t *testing.T) {
	roles := &stubRoles{tokens: map[int64][]string{
		1: {IngredientsView, ProductsViewCosts},
	}}
	gate := NewGate(roles)

	caps, err := gate.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !caps.CanViewCosts() {
		t.Error("expected cost capability")
	}
	if caps.Has(ProductsDelete) {
		t.Error("unexpected delete capability")
	}
	if roles.calls != 1 {
		t.Errorf("expected a single role lookup, got %d", roles.calls)
	}

	want := []string{IngredientsView, ProductsViewCosts}
	got := caps.Tokens()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGate_ResolveError(t *testing.T) {
	errStore := errors.New("store unavailable")
	gate := NewGate(&stubRoles{err: errStore})

	if _, err := gate.Resolve(context.Background(), 1); !errors.Is(err, errStore) {
		t.Errorf("Resolve() error = %v, want wrapped %v", err, errStore)
	}
}
