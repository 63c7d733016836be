package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/bank-ledger-be/internal/config"
	"github.com/hongminglow/bank-ledger-be/internal/events"
	"github.com/hongminglow/bank-ledger-be/internal/events/kafka"
	"github.com/hongminglow/bank-ledger-be/internal/server"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
	"github.com/hongminglow/bank-ledger-be/internal/storage/memory"
	"github.com/hongminglow/bank-ledger-be/internal/storage/postgres"
	"github.com/hongminglow/bank-ledger-be/internal/storage/sqlite"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer store.Close()

	publisher := openPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("close event publisher: %v", err)
		}
	}()

	srv := server.New(cfg, store, publisher)
	if _, err := srv.EnsureAdmin(ctx, cfg.Admin); err != nil {
		log.Fatalf("ensure admin: %v", err)
	}

	go func() {
		log.Printf("bank ledger backend listening on %s (store=%s)", cfg.HTTPAddress(), cfg.DatabaseDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath, cfg.LogSQL)
	case config.DriverMemory:
		log.Println("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func openPublisher(cfg config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}
	}
	log.Printf("publishing transaction events to %s on %v", cfg.KafkaTopic, cfg.KafkaBrokers)
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
