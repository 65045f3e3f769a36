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

	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events"
	events_db "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/tickets"
	tickets_db "ms-events/internal/tickets/db"
	"ms-events/internal/tickets/qr"
	rediswrap "ms-events/internal/tickets/redis"
	"ms-events/internal/tickets/ticket_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.Ping()
		}
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Event Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if os.Getenv("AUTO_MIGRATE") != "false" {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		log.Info("DATABASE", "Migrations applied")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Enabled)
	defer producer.Close()
	if cfg.Kafka.Enabled {
		requiredTopics := []string{
			cfg.Kafka.Topics.EventCreated,
			cfg.Kafka.Topics.EventCancelled,
			cfg.Kafka.Topics.TicketBooked,
			cfg.Kafka.Topics.TicketExpired,
			cfg.Kafka.Topics.TicketCancelled,
			cfg.Kafka.Topics.NewsletterDispatch,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	}

	eventService := events.NewEventService(
		&events_db.DB{Bun: bunDB},
		producer,
		events.Topics{
			EventCreated:       cfg.Kafka.Topics.EventCreated,
			EventCancelled:     cfg.Kafka.Topics.EventCancelled,
			NewsletterDispatch: cfg.Kafka.Topics.NewsletterDispatch,
		},
		cfg.Listing.CacheTTL,
	)

	ticketService := tickets.NewTicketService(
		&tickets_db.DB{Bun: bunDB},
		rediswrap.NewRedis(redisClient, cfg.Redis.SeatHoldTTL),
		producer,
		qr.NewGenerator(os.Getenv("TICKET_QR_SECRET")),
		tickets.Topics{
			TicketBooked:    cfg.Kafka.Topics.TicketBooked,
			TicketExpired:   cfg.Kafka.Topics.TicketExpired,
			TicketCancelled: cfg.Kafka.Topics.TicketCancelled,
		},
	)

	eventHandler := &event_api.Handler{EventService: eventService, Logger: log}
	ticketHandler := &ticket_api.Handler{TicketService: ticketService, Logger: log}

	log.Info("HTTP", "Setting up router")
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Post("/", eventHandler.CreateEvent)
			r.Get("/{eventID}", eventHandler.GetEvent)
			r.Put("/{eventID}", eventHandler.UpdateEvent)
			r.Post("/{eventID}/cancel", eventHandler.CancelEvent)
			r.Delete("/{eventID}", eventHandler.DeleteEvent)
		})
		r.Post("/admin/venues", eventHandler.CreateVenue)
		log.Info("ROUTER", "Admin event routes registered under /api/admin/events")

		r.Get("/locations/{locationID}/events", eventHandler.EventsByLocation)
		r.Get("/venues/{venueID}/seats", ticketHandler.SeatMap)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", ticketHandler.BookTicket)
			r.Get("/", ticketHandler.ListTicketsByUser)
			r.Get("/{ticketID}", ticketHandler.GetTicket)
			r.Delete("/{ticketID}", ticketHandler.CancelTicket)
		})
		log.Info("ROUTER", "Ticket routes registered under /api/tickets")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Event Service running on %s", cfg.Server.Port))
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
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Event Service shutdown complete")
	}
}
