package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"surveyhub.org/internal/config"
	"surveyhub.org/internal/job"
	"surveyhub.org/internal/obs"
	"surveyhub.org/internal/store/pg"
)

func main() {
	obs.Init()

	var cfg config.Worker
	if err := config.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("missing SURVEYHUB_PG_DSN")
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	worker, err := job.NewWorker(store, store, job.WithInterval(cfg.PollInterval))
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("deletion worker polling every %s", cfg.PollInterval)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker: %v", err)
	}
	log.Print("stopped")
}
