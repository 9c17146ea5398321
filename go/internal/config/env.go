// Package config loads process settings from the environment and gameplay
// tuning from an optional YAML file.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNATS     = "nats"
	BackendRemote   = "remote"
)

// Env is the process configuration shared by every executable.
type Env struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"rendezvous.db"`
	NATSURL      string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSBucket   string `env:"NATS_BUCKET" envDefault:"SESSIONS"`
	RecorddURL   string `env:"RECORDD_URL" envDefault:"http://localhost:8090"`
	Port         int    `env:"PORT" envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	TuningFile   string `env:"TUNING_FILE"`
}

// LoadEnv reads a .env file if one exists, then parses the environment.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return ParseEnv()
}

// ParseEnv parses the environment without touching .env files.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	e.StoreBackend = strings.ToLower(strings.TrimSpace(e.StoreBackend))
	switch e.StoreBackend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendNATS, BackendRemote:
	default:
		return Env{}, fmt.Errorf("unknown STORE_BACKEND %q", e.StoreBackend)
	}
	return e, nil
}
