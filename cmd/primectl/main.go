// Command primectl counts primes over a set of ranges, either in-process or
// by submitting a job to a primesplit coordinator.
//
//	primectl count --machines 3 --range 1:10 --range 20:24 --report
//	primectl submit --coordinator http://localhost:8080 --machines 3 --range 1:1000000 --wait
//	primectl status 5f0c...
//
// Flags may also be set through PRIMECTL_* environment variables, for
// example PRIMECTL_COORDINATOR.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
