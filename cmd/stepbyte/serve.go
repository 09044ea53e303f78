package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/yousuf/stepbyte/internal/complexity"
	"github.com/yousuf/stepbyte/internal/config"
	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/server"
	"github.com/yousuf/stepbyte/internal/session"
	"github.com/yousuf/stepbyte/internal/telemetry"
)

// sessionIdleTimeout is how long an unused MCP session keeps its trace.
const sessionIdleTimeout = 30 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the HTTP API and the MCP endpoint",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, os.Stderr, logger)
		if err != nil {
			return errors.Wrap(err, "initializing tracing")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d, err := newDebugger(cfg, debugger.NewMetrics(reg), logger)
	if err != nil {
		return err
	}
	sessionMgr := session.NewManager()
	srv := server.New(cfg.Server, d, sessionMgr, reg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessionMgr.PruneIdle(sessionIdleTimeout); n > 0 {
					logger.Info("pruned idle sessions", "count", n)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stepbyte listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	sessionMgr.CloseAll()
	logger.Info("server stopped")
	return nil
}

func newDebugger(cfg *config.Config, metrics *debugger.Metrics, logger *slog.Logger) (*debugger.Debugger, error) {
	cache, err := complexity.NewCache(cfg.Complexity.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating complexity cache")
	}
	return debugger.New(cfg.Debugger, cache, metrics, logger), nil
}
