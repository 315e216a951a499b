package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campus-events/internal/analytics"
	analytics_api "campus-events/internal/analytics/api"
	"campus-events/internal/api"
	"campus-events/internal/attendance"
	"campus-events/internal/auth"
	"campus-events/internal/checkin"
	"campus-events/internal/config"
	"campus-events/internal/database/migrations"
	"campus-events/internal/kafka"
	"campus-events/internal/logger"
	"campus-events/internal/models"
	"campus-events/internal/session"
	"campus-events/internal/sse"
	ticket_db "campus-events/internal/tickets/db"
	"campus-events/internal/tickets/qr"
	tickets "campus-events/internal/tickets/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type eventPublisher interface {
	PublishTicketEvent(ctx context.Context, event models.TicketEvent) error
}

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))

	return bunDB, redisClient
}

func newVerifier(ctx context.Context, cfg *config.Config, logger *logger.Logger) auth.Verifier {
	if cfg.Auth.SkipVerify {
		logger.Warn("AUTH", "AUTH_SKIP_VERIFY is set, bearer token signatures are NOT checked")
		return auth.UnverifiedVerifier{}
	}
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
	if err != nil {
		logger.Fatal("AUTH", fmt.Sprintf("Failed to set up token verification: %v", err))
	}
	logger.Info("AUTH", "Verifying tokens against "+cfg.Auth.OIDCIssuer)
	return verifier
}

func main() {
	cfg := config.Load()

	logger := logger.NewLogger(cfg.Log.Dir, cfg.Log.Name)
	defer logger.Close()

	logger.Info("APP", "Starting campus events service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, cfg.Database, logger)
		if err := runner.Up(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	emitter := sse.NewTicketEventEmitter()

	// With Kafka every instance consumes every ticket event and fans it out to
	// its own SSE clients. Without it events only reach this instance.
	var publisher eventPublisher = emitter
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.TicketIssued, cfg.Kafka.Topics.TicketCheckedIn}
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics, cfg.Kafka.GroupID, logger)
		defer consumer.Close()
		go consumer.Start(ctx, emitter.Emit)
		logger.Info("KAFKA", fmt.Sprintf("Consuming ticket events as group %s", cfg.Kafka.GroupID))
	} else {
		logger.Warn("KAFKA", "Kafka disabled, ticket events stay on this instance")
	}

	store := &ticket_db.DB{Bun: bunDB}
	access := checkin.NewEventAccess(store)
	ticketService := tickets.NewTicketService(store, qr.NewQRGenerator(cfg.Tickets.CodePrefix, cfg.Tickets.QRSize), publisher, logger)

	handler := api.NewHandler(logger)
	handler.Tickets = ticketService
	handler.Validator = checkin.NewValidator(store, access, publisher, logger)
	handler.Attendance = attendance.NewService(store, logger)
	handler.Access = access
	handler.Events = emitter
	handler.Sessions = session.NewStore(redisClient, cfg.Session.TTL)
	handler.Checks["postgres"] = func(ctx context.Context) error { return bunDB.PingContext(ctx) }
	handler.Checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

	analyticsHandler := analytics_api.NewHandler(analytics.NewService(bunDB), access, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger(logger))

	r.Get("/healthz", handler.Health)

	r.Route("/api", func(r chi.Router) {
		handler.RegisterPublicRoutes(r)
		logger.Info("ROUTER", "Public ticket count endpoint registered at /api/tickets/count")

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(newVerifier(ctx, cfg, logger), logger))

			handler.RegisterRoutes(r)
			logger.Info("ROUTER", "Ticket, check-in, attendance and session routes registered under /api")

			analyticsHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Analytics routes registered under /api")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", "Campus events service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Service shutdown complete")
	}
}
