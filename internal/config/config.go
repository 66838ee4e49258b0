// Package config loads service configuration from environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Coordinator configures cmd/coordinator.
type Coordinator struct {
	// Addr is the listen address of the HTTP API.
	Addr string `env:"COORDINATOR_ADDR" envDefault:":8080"`
	// PublicURL prefixes status links handed back to clients. Empty means
	// links are relative to the request host.
	PublicURL string `env:"COORDINATOR_PUBLIC_URL"`
	// DBPath selects the SQLite job store; empty keeps jobs in memory.
	DBPath         string        `env:"PRIMES_DB_PATH"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	HealthInterval time.Duration `env:"HEALTH_INTERVAL" envDefault:"5s"`
	// LocalFallback counts shares in-process when no node is healthy.
	LocalFallback bool `env:"LOCAL_FALLBACK" envDefault:"true"`
	// JobTimeout bounds one job end to end; zero means no limit.
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"0s"`
}

// Node configures cmd/node.
type Node struct {
	ID              string `env:"NODE_ID,required,notEmpty"`
	Listen          string `env:"NODE_LISTEN" envDefault:":8081"`
	PublicAddr      string `env:"NODE_ADDR" envDefault:"http://127.0.0.1:8081"`
	CoordinatorAddr string `env:"COORDINATOR_ADDR,required,notEmpty"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	// RegisterTimeout caps the total time spent retrying registration.
	RegisterTimeout time.Duration `env:"REGISTER_TIMEOUT" envDefault:"30s"`
}

// LoadCoordinator parses Coordinator from the environment.
func LoadCoordinator() (Coordinator, error) {
	var cfg Coordinator
	if err := env.Parse(&cfg); err != nil {
		return Coordinator{}, errors.Wrap(err, "parse coordinator env")
	}
	return cfg, nil
}

// LoadNode parses Node from the environment.
func LoadNode() (Node, error) {
	var cfg Node
	if err := env.Parse(&cfg); err != nil {
		return Node{}, errors.Wrap(err, "parse node env")
	}
	return cfg, nil
}
