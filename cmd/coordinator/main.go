// Package main implements the primesplit coordinator service, which accepts
// prime counting jobs, splits them between worker nodes and aggregates the
// partial counts.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│              Coordinator                │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    POST /jobs       - Submit a job      │
//	│    GET  /jobs       - Recent jobs       │
//	│    GET  /jobs/{id}  - Job status        │
//	│    POST /register   - Node registration │
//	│    GET  /nodes      - Known nodes       │
//	│    GET  /health     - Health check      │
//	│    GET  /metrics    - Prometheus        │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    Dispatcher     - Partition and sum   │
//	│    RemotePool     - Node selection      │
//	│    HealthMonitor  - Node liveness       │
//	│    Store          - Job records         │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - COORDINATOR_ADDR: Listen address (default: ":8080")
//   - COORDINATOR_PUBLIC_URL: Base of status URLs (default: request host)
//   - PRIMES_DB_PATH: SQLite file for job records (default: in memory)
//   - HEALTH_INTERVAL: Node health check period (default: "5s")
//   - LOCAL_FALLBACK: Count locally when no node is healthy (default: true)
//   - JOB_TIMEOUT: Upper bound for one job, 0 disables (default: "0s")
//   - LOG_LEVEL: zerolog level (default: "info")
//
// Example usage:
//
//	COORDINATOR_ADDR=:8080 ./coordinator
//
//	curl -X POST localhost:8080/jobs \
//	  -d '{"machineCount": 3, "ranges": [{"start": 1, "end": 10}, {"start": 20, "end": 24}]}'
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dreamware/primesplit/internal/cluster"
	"github.com/dreamware/primesplit/internal/config"
	"github.com/dreamware/primesplit/internal/coordinator"
	"github.com/dreamware/primesplit/internal/logging"
	"github.com/dreamware/primesplit/internal/metrics"
	"github.com/dreamware/primesplit/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadCoordinator()
	if err != nil {
		log := logging.New("info", "coordinator")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, "coordinator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Fatal().Err(err).Msg("coordinator failed")
	}
	log.Info().Msg("coordinator stopped")
}

// run wires the coordinator and serves until ctx is cancelled. When ln is
// nil it listens on cfg.Addr.
func run(ctx context.Context, cfg config.Coordinator, log zerolog.Logger, ln net.Listener) error {
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	registry := coordinator.NewNodeRegistry()

	monitor := coordinator.NewHealthMonitor(cfg.HealthInterval, log)
	monitor.SetOnUnhealthy(func(id string) {
		registry.SetStatus(id, cluster.StatusUnhealthy)
		m.SetHealthyNodes(countHealthy(registry))
	})
	monitor.SetOnHealthy(func(id string) {
		registry.SetStatus(id, cluster.StatusHealthy)
		m.SetHealthyNodes(countHealthy(registry))
	})

	pool := coordinator.NewRemotePool(registry, cfg.LocalFallback)
	api := coordinator.NewServer(coordinator.ServerOptions{
		Store:      store,
		Registry:   registry,
		Dispatcher: coordinator.NewDispatcher(pool, log, m),
		Metrics:    m,
		Logger:     log,
		Monitor:    monitor,
		PublicURL:  cfg.PublicURL,
		JobTimeout: cfg.JobTimeout,
	})

	if ln == nil {
		if ln, err = net.Listen("tcp", cfg.Addr); err != nil {
			return errors.Wrapf(err, "listen on %s", cfg.Addr)
		}
	}
	go monitor.Start(ctx, registry.Nodes)
	defer monitor.Stop()

	httpSrv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("coordinator listening")
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return errors.Wrap(err, "serve")
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := api.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("jobs still running at shutdown")
	}
	return nil
}

func openStore(path string) (storage.Store, error) {
	if path == "" {
		return storage.NewMemoryStore(), nil
	}
	s, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open job store %s", path)
	}
	return s, nil
}

func countHealthy(registry *coordinator.NodeRegistry) int {
	n := 0
	for _, node := range registry.Nodes() {
		if node.Status == cluster.StatusHealthy {
			n++
		}
	}
	return n
}
