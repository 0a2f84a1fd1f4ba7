package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-onboarding/internal/analytics"
	analytics_api "ms-onboarding/internal/analytics/api"
	"ms-onboarding/internal/application"
	application_api "ms-onboarding/internal/application/api"
	appdb "ms-onboarding/internal/application/db"
	"ms-onboarding/internal/auth"
	"ms-onboarding/internal/certificate"
	"ms-onboarding/internal/config"
	"ms-onboarding/internal/database/migrations"
	"ms-onboarding/internal/kafka"
	"ms-onboarding/internal/logger"
	"ms-onboarding/internal/raffle"
	raffle_api "ms-onboarding/internal/raffle/api"
	raffledb "ms-onboarding/internal/raffle/db"
	rediswrap "ms-onboarding/internal/raffle/redis"
	"ms-onboarding/internal/sse"
	"ms-onboarding/internal/stalls"
	stalls_api "ms-onboarding/internal/stalls/api"
	stallsdb "ms-onboarding/internal/stalls/db"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Vendor Onboarding Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	migrationRunner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := migrationRunner.Initialize(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration initialization failed: %v", err))
	}
	if err := migrationRunner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	log.Info("DATABASE", "Schema migrations applied")

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer kafkaProducer.Close()

	requiredTopics := []string{
		kafka.TopicStatusEvents,
		kafka.TopicAssignmentEvents,
	}
	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}

	emitter := sse.NewAssignmentEventEmitter()

	applicationService := application.NewService(
		&appdb.DB{Bun: bunDB},
		kafkaProducer,
		log,
	)

	stallService := stalls.NewService(&stallsdb.DB{Bun: bunDB}, log)
	analyticsService := analytics.NewService(bunDB)

	raffleService := raffle.NewService(
		&raffledb.DB{Bun: bunDB},
		rediswrap.NewStallLock(redisClient, log),
		kafkaProducer,
		emitter,
		certificate.NewIssuer(cfg.Raffle.QRSecret),
		raffle.NewPicker(),
		log,
	)

	applicationHandler := &application_api.Handler{
		ApplicationService: applicationService,
	}
	stallHandler := &stalls_api.Handler{
		StallService: stallService,
	}
	raffleHandler := &raffle_api.Handler{
		RaffleService: raffleService,
		Emitter:       emitter,
	}
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/v1/applications/number/{number}", applicationHandler.GetByNumber)
	r.Get("/api/v1/raffles/events/stream", raffleHandler.StreamAssignments)
	log.Info("ROUTER", "Public status lookup and SSE stream registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		log.Info("AUTH", "OIDC middleware applied to protected API routes")

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/applications", func(r chi.Router) {
				r.Post("/", applicationHandler.CreateApplication)
				r.Post("/{applicationId}/submit", applicationHandler.Submit)
				r.Post("/{applicationId}/notarize", applicationHandler.Notarize)
				r.Post("/{applicationId}/documents-submitted", applicationHandler.MarkDocumentsSubmitted)
				r.Post("/{applicationId}/activate", applicationHandler.ActivateAccount)
				r.Get("/{applicationId}/documents", applicationHandler.GetDocuments)
				r.Post("/{applicationId}/documents/{kind}/resubmit", applicationHandler.ResubmitDocument)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAdmin)
					r.Post("/{applicationId}/approve-for-raffle", applicationHandler.ApproveForRaffle)
					r.Post("/{applicationId}/documents/{kind}/verdict", applicationHandler.RecordDocumentVerdict)
				})
			})
			log.Info("ROUTER", "Application routes registered under /api/v1/applications")

			r.Get("/stalls", stallHandler.ListStalls)
			r.Get("/stalls/{stallId}", stallHandler.GetStall)
			r.Get("/raffles/{stallId}", raffleHandler.GetRaffle)
			r.Get("/certificates/{applicationId}", raffleHandler.GetCertificate)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/sections", stallHandler.CreateSection)
				r.Put("/stalls/{stallId}/maintenance", stallHandler.SetMaintenance)
				r.Post("/stalls/{stallId}/raffle", raffleHandler.ConductRaffle)
				analyticsHandler.RegisterRoutes(r)
			})
			log.Info("ROUTER", "Stall, raffle and analytics routes registered under /api/v1")
		})
	})

	// WriteTimeout stays unset: it would sever long-lived SSE streams.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Vendor Onboarding Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Vendor Onboarding Service shutdown complete")
	}
}
