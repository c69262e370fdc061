package main

import (
	"context"
	"net/http"
	"os"

	"github.com/diagnosis/bookfair-stalls/pkg/cache"
	"github.com/diagnosis/bookfair-stalls/pkg/config"
	"github.com/diagnosis/bookfair-stalls/pkg/database"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/diagnosis/bookfair-stalls/pkg/server"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/handlers"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/repository"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/service"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// User store
	var userRepo repository.UserRepository
	if cfg.Auth.UserStore == "postgres" {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		userRepo = repository.NewUserRepository(pool)
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}

	// Rate limit counters
	counters := cache.NewMemoryCache("auth")
	if cfg.Redis.Enabled {
		redisCache, closeRedis := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "auth")
		defer closeRedis()
		counters = redisCache
	}

	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.AllowAdminSignup)
	if cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Error("Failed to seed admin account", "error", err)
			os.Exit(1)
		}
	}
	h := handlers.New(authService, repository.NewRateLimitRepository(counters))

	trustedProxies, err := mw.ParseNetworks(cfg.Auth.TrustedProxies)
	if err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(mw.RealIPFrom(trustedProxies))
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	h.Mount(r, cfg.Auth.JWTSecret)

	srv := &http.Server{
		Addr:         cfg.Server.Addr("8081"),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if err := server.Run(ctx, "auth", srv); err != nil {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}
