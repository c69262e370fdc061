package main

import (
	"context"
	"net/http"
	"os"

	"github.com/diagnosis/bookfair-stalls/pkg/config"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/diagnosis/bookfair-stalls/pkg/server"
	"github.com/diagnosis/bookfair-stalls/services/gateway/internal/handlers"
	"github.com/diagnosis/bookfair-stalls/services/gateway/internal/proxy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.Load()

	authProxy := proxy.NewServiceProxy("auth", cfg.Services.AuthURL)
	reservationsProxy := proxy.NewServiceProxy("reservations", cfg.Services.ReservationsURL)

	h := handlers.New(authProxy, reservationsProxy)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)
	r.Use(mw.Metrics)

	h.Mount(r)

	srv := &http.Server{
		Addr:         cfg.Server.Addr("8080"),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if err := server.Run(context.Background(), "gateway", srv); err != nil {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}
