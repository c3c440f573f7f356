// Command seed prepares a back office database: it applies the schema, loads
// the allergen catalog and creates default roles, an administrator and the
// base menu categories. Running it twice is harmless.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/auth"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/catalog"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/pkg/logger"
)

var roles = []struct {
	name  string
	perms []string
}{
	{name: "admin", perms: permission.All},
	{name: "editor", perms: []string{
		permission.IngredientsView, permission.IngredientsCreate, permission.IngredientsUpdate, permission.IngredientsManageAllergens,
		permission.ProductsView, permission.ProductsCreate, permission.ProductsUpdate, permission.ProductsManageIngredients,
	}},
	{name: "viewer", perms: []string{permission.IngredientsView, permission.ProductsView}},
}

var categories = []string{"Antipasti", "Primi", "Secondi", "Pizze", "Dolci", "Bevande"}

func main() {
	driver := flag.String("driver", envOr("DB_DRIVER", "pgx"), "database driver: pgx or sqlite")
	url := flag.String("url", envOr("DATABASE_URL", "postgres://localhost:5432/backoffice?sslmode=disable"), "database URL or SQLite path")
	username := flag.String("admin-user", envOr("ADMIN_USERNAME", "admin"), "administrator username")
	sources := flag.String("catalog", os.Getenv("ALLERGEN_CATALOG_SOURCES"), "comma separated allergen catalog files or URLs; empty uses the built-in catalog")
	flag.Parse()

	log := logger.New(envOr("LOG_LEVEL", "info"))

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_PASSWORD is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, database.Options{
		Driver:       *driver,
		URL:          *url,
		QueryTimeout: 30 * time.Second,
		Logger:       log,
	})
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	stats, err := catalog.Import(ctx, catalog.NewLoader(nil), repository.NewAllergenRepository(db), splitList(*sources))
	if err != nil {
		log.Error("failed to import allergen catalog", "error", err)
		os.Exit(1)
	}
	log.Info("allergen catalog imported", "entries", stats.Entries, "codes", stats.Codes)

	admins := repository.NewAdminRepository(db)
	roleIDs := make(map[string]int64, len(roles))
	for _, r := range roles {
		id, err := admins.UpsertRole(ctx, r.name, r.perms)
		if err != nil {
			log.Error("failed to seed role", "role", r.name, "error", err)
			os.Exit(1)
		}
		roleIDs[r.name] = id
	}
	log.Info("roles seeded", "count", len(roleIDs))

	hash, err := auth.NewPasswordHasher().Hash(password)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		os.Exit(1)
	}
	switch _, err := admins.CreateUser(ctx, *username, hash, roleIDs["admin"]); {
	case errors.Is(err, repository.ErrDuplicateName):
		log.Info("administrator already exists", "username", *username)
	case err != nil:
		log.Error("failed to create administrator", "error", err)
		os.Exit(1)
	default:
		log.Info("administrator created", "username", *username)
	}

	categoryRepo := repository.NewCategoryRepository(db)
	created := 0
	for _, name := range categories {
		if _, err := categoryRepo.Create(ctx, name, ""); err != nil {
			if errors.Is(err, repository.ErrDuplicateName) {
				continue
			}
			log.Error("failed to seed category", "category", name, "error", err)
			os.Exit(1)
		}
		created++
	}
	log.Info("categories seeded", "created", created)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
