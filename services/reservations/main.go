package main

import (
	"context"
	"net/http"
	"os"

	"github.com/diagnosis/bookfair-stalls/pkg/cache"
	"github.com/diagnosis/bookfair-stalls/pkg/config"
	"github.com/diagnosis/bookfair-stalls/pkg/database"
	"github.com/diagnosis/bookfair-stalls/pkg/events"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/diagnosis/bookfair-stalls/pkg/server"
	"github.com/diagnosis/bookfair-stalls/pkg/storage"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/handlers"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/mailer"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/repository"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Stall store and reservation log
	var (
		stallRepo       repository.StallRepository
		reservationRepo repository.ReservationRepository
	)
	if cfg.Reservation.StoreDriver == "postgres" {
		pool := mustConnect(ctx, cfg)
		defer pool.Close()

		if err := repository.Seed(ctx, pool, domain.DefaultStalls()); err != nil {
			logger.Error("Failed to seed stalls", "error", err)
			os.Exit(1)
		}
		stallRepo = repository.NewStallRepository(pool)
		reservationRepo = repository.NewReservationRepository(pool)
	} else {
		stallRepo = repository.NewMemoryStallRepository(domain.DefaultStalls())
		reservationRepo = repository.NewMemoryReservationRepository()
	}

	// Connect to event bus
	var eventBus events.EventBus = events.NoopEventBus{}
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL, "reservations")
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	for _, subject := range []string{events.ReservationConfirmed, events.ReservationFailed, events.StallsReleased} {
		if err := eventBus.Subscribe(subject, auditEvent); err != nil {
			logger.Warn("Failed to subscribe to events", "subject", subject, "error", err)
		}
	}

	// QR object storage
	var bucket storage.Bucket
	if cfg.Storage.Driver == "gcs" {
		gcsBucket, err := storage.NewGCSBucket(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			logger.Error("Failed to create storage client", "error", err)
			os.Exit(1)
		}
		defer gcsBucket.Close()
		bucket = gcsBucket
	} else {
		bucket = storage.NewMemoryBucket(cfg.Storage.Bucket)
	}

	// Idempotency cache for confirmations
	idem := cache.NewMemoryCache("reservations")
	if cfg.Redis.Enabled {
		redisCache, closeRedis := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "reservations")
		defer closeRedis()
		idem = redisCache
	}

	// Initialize services
	reservationService := service.NewReservationService(stallRepo, eventBus, cfg.Reservation.MaxStalls)
	qrService := service.NewQRService(bucket, cfg.Storage.QRURLExpiry)
	orchestrator := service.NewOrchestrator(reservationService, qrService, newMailer(cfg), reservationRepo, eventBus)

	h := handlers.New(reservationService, orchestrator)

	// Setup router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("reservations"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	h.Mount(r, cfg.Auth.JWTSecret, idem)

	srv := &http.Server{
		Addr:         cfg.Server.Addr("8082"),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if err := server.Run(ctx, "reservations", srv); err != nil {
		logger.Error("Reservations service error", "error", err)
		os.Exit(1)
	}
}

func mustConnect(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	return pool
}

func newMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		logger.Info("Using dev mailer - emails will be printed to console")
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		logger.Info("Using MailerSend for emails")
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		logger.Info("Using SMTP for emails", "host", cfg.Email.SMTPHost, "port", cfg.Email.SMTPPort)
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}

// auditEvent writes every published reservation event to the log.
func auditEvent(msg *events.Message) {
	logger.Info("Reservation event", "subject", msg.Subject, "payload", string(msg.Data), "received_at", msg.Timestamp)
}
