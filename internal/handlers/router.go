package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/middleware"
)

// RouterConfig carries everything NewRouter mounts
type RouterConfig struct {
	Health      *HealthHandler
	Auth        *AuthHandler
	Ingredients *IngredientHandler
	Products    *ProductHandler
	Reference   *ReferenceHandler

	Authenticator  middleware.Authenticator
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler of the back office API
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.ServeHTTP)
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", cfg.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Authenticator, cfg.Logger))

			r.Get("/auth/verify", cfg.Auth.Verify)
			r.Get("/allergens", cfg.Reference.ListAllergens)
			r.Get("/categories", cfg.Reference.ListCategories)

			r.Route("/ingredients", func(r chi.Router) {
				r.Get("/", cfg.Ingredients.List)
				r.Post("/", cfg.Ingredients.Create)
				r.Get("/{id}", cfg.Ingredients.Get)
				r.Put("/{id}", cfg.Ingredients.Update)
				r.Delete("/{id}", cfg.Ingredients.Delete)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", cfg.Products.ListProducts)
				r.Post("/", cfg.Products.CreateProduct)
				r.Get("/{id}", cfg.Products.GetProduct)
				r.Put("/{id}", cfg.Products.UpdateProduct)
				r.Delete("/{id}", cfg.Products.DeleteProduct)
				r.Get("/{id}/costs", cfg.Products.GetCosts)
			})
		})
	})

	return r
}
