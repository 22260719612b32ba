// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// API configures the HTTP API process.
type API struct {
	Addr       string `env:"SURVEYHUB_ADDR" envDefault:":8080"`
	GRPCAddr   string `env:"SURVEYHUB_GRPC_ADDR"`
	PGDSN      string `env:"SURVEYHUB_PG_DSN"`
	AuthSecret string `env:"SURVEYHUB_AUTH_SECRET"`
}

// Worker configures the deletion worker process.
type Worker struct {
	PGDSN        string        `env:"SURVEYHUB_PG_DSN"`
	PollInterval time.Duration `env:"SURVEYHUB_WORKER_INTERVAL" envDefault:"5s"`
}

// Parse loads configuration from environment variables into target.
func Parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
