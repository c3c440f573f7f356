// Package allergen folds flat (owner, allergen) join rows back into nested,
// ordered allergen lists.
package allergen

import (
	"database/sql"
	"sort"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// Row is one line of a LEFT JOIN between an owner (ingredient or product)
// and its allergens. AllergenID is invalid when the owner has no allergens.
type Row struct {
	OwnerID    int64
	AllergenID sql.NullInt64
	EUCode     sql.NullString
	Name       sql.NullString
}

// Groups holds the allergen list of each owner seen by Fold.
type Groups struct {
	owners []int64
	lists  map[int64][]models.Allergen
	seen   map[int64]map[int64]struct{}
}

// Fold groups rows by owner, keeping the order in which the query emitted
// them. Owners with no allergen rows get an empty, non-nil list.
func Fold(rows []Row) *Groups {
	g := &Groups{
		lists: make(map[int64][]models.Allergen),
		seen:  make(map[int64]map[int64]struct{}),
	}
	for _, r := range rows {
		g.Add(r)
	}
	return g
}

// Add folds a single row.
func (g *Groups) Add(r Row) {
	if _, ok := g.lists[r.OwnerID]; !ok {
		g.owners = append(g.owners, r.OwnerID)
		g.lists[r.OwnerID] = []models.Allergen{}
		g.seen[r.OwnerID] = make(map[int64]struct{})
	}
	if !r.AllergenID.Valid {
		return
	}
	if _, dup := g.seen[r.OwnerID][r.AllergenID.Int64]; dup {
		return
	}
	g.seen[r.OwnerID][r.AllergenID.Int64] = struct{}{}
	g.lists[r.OwnerID] = append(g.lists[r.OwnerID], models.Allergen{
		ID:     r.AllergenID.Int64,
		EUCode: r.EUCode.String,
		Name:   r.Name.String,
	})
}

// For returns the allergens of owner; never nil.
func (g *Groups) For(owner int64) []models.Allergen {
	if list, ok := g.lists[owner]; ok {
		return list
	}
	return []models.Allergen{}
}

// Owners lists owner ids in first-seen order.
func (g *Groups) Owners() []int64 {
	return g.owners
}

// Merge returns the union of lists without duplicates, ordered by EU code.
func Merge(lists ...[]models.Allergen) []models.Allergen {
	byID := make(map[int64]models.Allergen)
	for _, list := range lists {
		for _, a := range list {
			byID[a.ID] = a
		}
	}

	merged := make([]models.Allergen, 0, len(byID))
	for _, a := range byID {
		merged = append(merged, a)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].EUCode == merged[j].EUCode {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].EUCode < merged[j].EUCode
	})
	return merged
}
