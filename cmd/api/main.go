// Package main implements the inspection dashboard API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/WessleyAI/wessley-inspect/engine/config"
	"github.com/WessleyAI/wessley-inspect/engine/dashboard"
	"github.com/WessleyAI/wessley-inspect/engine/events"
	"github.com/WessleyAI/wessley-inspect/engine/export"
	"github.com/WessleyAI/wessley-inspect/engine/source"
	"github.com/WessleyAI/wessley-inspect/pkg/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := source.NewClient(cfg.SourceConfig())
	app := newApp(cfg, client, logger)

	// --- gRPC health ---
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, app.health)
	go func() {
		logger.Info("grpc health starting", "port", cfg.GRPCPort)
		if err := grpcSrv.Serve(grpcLis); err != nil {
			logger.Error("grpc server", "err", err)
		}
	}()
	defer grpcSrv.GracefulStop()

	// --- NATS responders (optional) ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		responders, err := events.Serve(nc, app.dash, logger)
		if err != nil {
			return err
		}
		defer responders.Close()
	}

	// --- Initial load and polling ---
	go func() {
		if _, err := app.dash.Refresh(ctx, cfg.Defaults); err != nil && ctx.Err() == nil {
			logger.Warn("initial refresh failed", "params", cfg.Defaults.String(), "err", err)
		}
		app.dash.Poll(ctx, cfg.RefreshInterval, cfg.Defaults)
	}()

	// --- Build HTTP server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.SourceTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "defaults", cfg.Defaults.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	app.health.Shutdown()
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutCtx)
	app.jobs.Wait()
	return err
}

// app wires the dashboard, export jobs, metrics and health state together.
type app struct {
	cfg      config.Config
	dash     *dashboard.Dashboard
	jobs     *export.Jobs
	registry *metrics.Registry
	health   *health.Server
	logger   *slog.Logger

	// breakerState reports the upstream circuit breaker, when there is one.
	breakerState func() string
}

func newApp(cfg config.Config, f dashboard.Fetcher, logger *slog.Logger) *app {
	reg := metrics.New()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)

	a := &app{
		cfg:      cfg,
		registry: reg,
		health:   hs,
		logger:   logger,
	}
	a.dash = dashboard.New(f, dashboard.Options{
		Locale:   cfg.Locale(),
		MapsHost: cfg.MapsHost,
		Logger:   logger,
		Metrics:  dashboard.NewMetrics(reg),
		OnCommit: func(*dashboard.Snapshot) {
			hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
		},
	})
	if c, ok := f.(*source.Client); ok {
		a.breakerState = func() string { return c.BreakerState().String() }
	}

	a.jobs = export.NewJobs(export.DefaultMaxJobs, logger)
	exportsOK := reg.Counter("inspect_exports_total", "Export jobs by result.", "result", "ok")
	exportsFailed := reg.Counter("inspect_exports_total", "Export jobs by result.", "result", "error")
	exportDuration := reg.Histogram("inspect_export_duration_seconds", "Time to build an export workbook.", nil)
	a.jobs.OnFinish = func(j export.Job, took time.Duration) {
		if j.State == export.StateDone {
			exportsOK.Inc()
		} else {
			exportsFailed.Inc()
		}
		exportDuration.Observe(took.Seconds())
	}
	return a
}

// healthService is the named gRPC health entry for the dashboard.
const healthService = "wessley.inspect.Dashboard"
