// Package main implements the primesplit worker node, which counts the
// primes of the shares a coordinator sends it.
//
// The node:
//   - Serves POST /count for the coordinator's dispatcher
//   - Answers /health for the coordinator's health monitor
//   - Registers with the coordinator on start, retrying with backoff
//
// Configuration:
//   - NODE_ID: Unique node identifier (required)
//   - COORDINATOR_ADDR: Coordinator URL (required)
//   - NODE_LISTEN: Listen address (default: ":8081")
//   - NODE_ADDR: Public address for coordinator (default: "http://127.0.0.1:8081")
//   - REGISTER_TIMEOUT: Give up registering after this long (default: "30s")
//   - LOG_LEVEL: zerolog level (default: "info")
//
// Example usage:
//
//	NODE_ID=node-1 \
//	NODE_LISTEN=:8081 \
//	NODE_ADDR=http://localhost:8081 \
//	COORDINATOR_ADDR=http://localhost:8080 \
//	./node
//
// Exit codes:
//   - 0: Normal shutdown via signal
//   - 1: Missing required configuration
//   - 1: Failed to register with coordinator
//   - 1: Failed to start HTTP server
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
	"github.com/dreamware/primesplit/internal/logging"
	"github.com/dreamware/primesplit/internal/metrics"
	"github.com/dreamware/primesplit/internal/node"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadNode()
	if err != nil {
		log := logging.New("info", "node")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, "node")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Fatal().Err(err).Msg("node failed")
	}
	log.Info().Msg("node stopped")
}

// run serves the node and registers it with the coordinator. It returns
// when ctx is cancelled, or with an error if registration or the listener
// fails. When ln is nil it listens on cfg.Listen.
func run(ctx context.Context, cfg config.Node, log zerolog.Logger, ln net.Listener) error {
	n := node.New(cfg.ID, log, metrics.New())

	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", cfg.Listen); err != nil {
			return errors.Wrapf(err, "listen on %s", cfg.Listen)
		}
	}
	s := &http.Server{
		Handler:           n.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("listen", ln.Addr().String()).Str("public", cfg.PublicAddr).Msg("node listening")
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// The coordinator health-checks the node as soon as it is registered,
	// so the listener must already be up.
	self := cluster.NodeInfo{ID: cfg.ID, Addr: cfg.PublicAddr}
	regErr := node.Register(ctx, cfg.CoordinatorAddr, self, cfg.RegisterTimeout, log)

	var runErr error
	if regErr != nil && ctx.Err() == nil {
		runErr = regErr
	} else {
		select {
		case err := <-errc:
			if err != nil {
				runErr = errors.Wrap(err, "serve")
			}
		case <-ctx.Done():
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return runErr
}
