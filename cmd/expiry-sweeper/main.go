// The expiry sweeper is the scheduled batch job that marks tickets of past
// event occurrences as expired and releases their seats. It is idempotent
// and safe to run alongside another sweep.
package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-events/internal/config"
	"ms-events/internal/tickets"
	tickets_db "ms-events/internal/tickets/db"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[Database] Failed to open PostgreSQL: %v", err)
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatalf("[Database] Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("[Database] PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	// No Redis, no Kafka: the sweep only touches ticket and seat state.
	service := tickets.NewTicketService(&tickets_db.DB{Bun: bunDB}, nil, nil, nil, tickets.Topics{})

	sweep := func() {
		count, err := service.ExpireTicketsForPastEvents(time.Now())
		if err != nil {
			log.Printf("[Sweep] failed: %v", err)
			return
		}
		log.Printf("[Sweep] expired %d tickets", count)
	}

	log.Printf("[Sweep] running every %s", cfg.Sweep.Interval)
	sweep()

	ticker := time.NewTicker(cfg.Sweep.Interval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-stop:
			log.Println("[Sweep] shutdown complete")
			return
		}
	}
}
