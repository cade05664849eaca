// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// deadlockd runs a single node of the edge-chasing deadlock detector.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/edgechase/deadlockd/internal/api"
	"github.com/edgechase/deadlockd/internal/config"
	"github.com/edgechase/deadlockd/internal/logging"
	"github.com/edgechase/deadlockd/internal/metrics"
	"github.com/edgechase/deadlockd/internal/node"
	"github.com/edgechase/deadlockd/internal/transport"
)

var app = &cli.App{
	Name:    "deadlockd",
	Usage:   "a node in a distributed edge-chasing deadlock detector",
	Version: "1.0.0",
	Action:  runNode,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	peers := transport.New(cfg.Peers, cfg.PeerTimeout, log)
	met := metrics.New(cfg.ServiceName)
	n := node.New(cfg.ServiceName, peers, met, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(n, log),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Debugw("listening", "service", cfg.ServiceName, "addr", srv.Addr, "peers", cfg.Peers)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Debugw("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
