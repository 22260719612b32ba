package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surveyhub.org/internal/auth"
	"surveyhub.org/internal/config"
	"surveyhub.org/internal/httpapi"
	"surveyhub.org/internal/job"
	"surveyhub.org/internal/obs"
	"surveyhub.org/internal/store/memory"
	"surveyhub.org/internal/store/pg"
	"surveyhub.org/internal/survey"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var cfg config.API
	if err := config.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AuthSecret == "" {
		log.Fatal("missing SURVEYHUB_AUTH_SECRET")
	}

	events := job.NewBroadcast()

	// Without a DSN everything lives in process memory; handy for local runs.
	var (
		store   survey.Store
		queue   job.Enqueuer
		probe   httpapi.ReadyProbe
		closeFn func() error
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN, pg.WithEvents(events))
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store, queue = pgStore, pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
		closeFn = pgStore.Close
	} else {
		mem := memory.NewStore(memory.WithEvents(events))
		store, queue = mem, mem
		log.Print("SURVEYHUB_PG_DSN not set; using in-memory store")
	}

	svc, err := survey.NewService(store, queue)
	if err != nil {
		log.Fatalf("service: %v", err)
	}
	codec, err := auth.NewCodec(cfg.AuthSecret)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	resolver, err := auth.NewResolver(codec, store, store)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	roles := auth.NewRegistry()
	engine, err := auth.NewEngine(roles, store)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	api, err := httpapi.New(httpapi.Deps{
		Ready:    probe,
		Version:  version,
		Codec:    codec,
		Resolver: resolver,
		Engine:   engine,
		Roles:    roles,
		Service:  svc,
		Events:   events,
	})
	if err != nil {
		log.Fatalf("httpapi: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GRPCAddr != "" {
		grpcSrv := httpapi.NewGRPCServer(probe)
		go func() {
			log.Printf("gRPC health on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(ctx, cfg.GRPCAddr); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("surveyhub-api %s listening on %s", version, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if closeFn != nil {
		_ = closeFn()
	}
	log.Print("stopped")
}
