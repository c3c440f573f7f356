// Package permission resolves a caller's capability tokens and checks them.
package permission

import (
	"context"
	"fmt"
	"sort"
)

// Capability tokens stored in admin_roles.permissions.
const (
	IngredientsView            = "ingredients.view"
	IngredientsCreate          = "ingredients.create"
	IngredientsUpdate          = "ingredients.update"
	IngredientsDelete          = "ingredients.delete"
	IngredientsManageAllergens = "ingredients.manage_allergens"

	ProductsView              = "products.view"
	ProductsCreate            = "products.create"
	ProductsUpdate            = "products.update"
	ProductsDelete            = "products.delete"
	ProductsManageIngredients = "products.manage_ingredients"
	ProductsViewCosts         = "products.view_costs"
)

// All lists every known token, for seeding administrator roles.
var All = []string{
	IngredientsView, IngredientsCreate, IngredientsUpdate, IngredientsDelete, IngredientsManageAllergens,
	ProductsView, ProductsCreate, ProductsUpdate, ProductsDelete, ProductsManageIngredients, ProductsViewCosts,
}

// Set is an immutable set of capability tokens. The zero value holds nothing.
type Set struct {
	tokens map[string]struct{}
}

// NewSet builds a set from tokens.
func NewSet(tokens ...string) Set {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return Set{tokens: m}
}

// Has reports whether token is held.
func (s Set) Has(token string) bool {
	_, ok := s.tokens[token]
	return ok
}

// Require reports whether every needed token is held.
func (s Set) Require(needed ...string) bool {
	for _, n := range needed {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// CanViewCosts is shorthand for the cost-visibility capability.
func (s Set) CanViewCosts() bool {
	return s.Has(ProductsViewCosts)
}

// Tokens returns the held tokens in sorted order.
func (s Set) Tokens() []string {
	out := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// RoleSource loads the token list configured for a role.
type RoleSource interface {
	RolePermissions(ctx context.Context, roleID int64) ([]string, error)
}

// Gate resolves capability sets from role configuration.
type Gate struct {
	roles RoleSource
}

// NewGate creates a gate over roles.
func NewGate(roles RoleSource) *Gate {
	return &Gate{roles: roles}
}

// Resolve loads the capability set of roleID. It is called once per request.
func (g *Gate) Resolve(ctx context.Context, roleID int64) (Set, error) {
	tokens, err := g.roles.RolePermissions(ctx, roleID)
	if err != nil {
		return Set{}, fmt.Errorf("resolve role %d: %w", roleID, err)
	}
	return NewSet(tokens...), nil
}
