package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/activity"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/auth"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/catalog"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/config"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/handlers"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting back office api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"db_driver", cfg.Database.Driver,
		"log_level", cfg.LogLevel,
	)

	m := metrics.New()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{
		Driver:       cfg.Database.Driver,
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		QueryTimeout: cfg.Database.QueryTimeout,
		Logger:       log,
		Metrics:      m,
	})
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ingredientRepo := repository.NewIngredientRepository(db)
	productRepo := repository.NewProductRepository(db)
	allergenRepo := repository.NewAllergenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Allergen catalog
	if len(cfg.Catalog.Sources) > 0 {
		log.Info("importing allergen catalog...", "sources", len(cfg.Catalog.Sources))
		stats, err := catalog.Import(ctx, catalog.NewLoader(nil), allergenRepo, cfg.Catalog.Sources)
		if err != nil {
			log.Error("failed to import allergen catalog", "error", err)
			os.Exit(1)
		}
		log.Info("allergen catalog imported",
			"entries", stats.Entries,
			"codes", stats.Codes,
		)
	}

	sink := activity.NewAsyncSink(repository.NewActivityRepository(db), cfg.Activity.BufferSize, log, m)

	// Initialize services
	tokens := auth.NewJWTManager(auth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		TTL:       cfg.Auth.TokenTTL,
		Issuer:    cfg.Auth.Issuer,
	})
	authService := service.NewAuthService(adminRepo, permission.NewGate(adminRepo), tokens, auth.NewPasswordHasher(), sink, log)
	ingredientService := service.NewIngredientService(ingredientRepo, sink, cfg.DefaultLanguage)
	productService := service.NewProductService(productRepo, sink, cfg.DefaultLanguage)
	referenceService := service.NewReferenceService(allergenRepo, categoryRepo, cfg.DefaultLanguage)

	router := handlers.NewRouter(handlers.RouterConfig{
		Health:         handlers.NewHealthHandler(db, log),
		Auth:           handlers.NewAuthHandler(authService, log),
		Ingredients:    handlers.NewIngredientHandler(ingredientService, log),
		Products:       handlers.NewProductHandler(productService, log),
		Reference:      handlers.NewReferenceHandler(referenceService, log),
		Authenticator:  authService,
		Metrics:        m,
		Logger:         log,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Stop accepting requests first, then flush pending activity, then close the pool
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		map[string]gfshutdown.Operation{
			"backoffice": func(ctx context.Context) error {
				log.Info("shutting down server...")
				if err := srv.Shutdown(ctx); err != nil {
					log.Error("server forced to shutdown", "error", err)
				}
				if err := sink.Close(ctx); err != nil {
					log.Warn("activity sink did not drain", "error", err)
				}
				return db.Close()
			},
		},
	)

	exitCode := <-wait
	log.Info("server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
