package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/upstrack/config"
	"github.com/BearBump/upstrack/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		slog.Error("load config", "path", os.Getenv("configPath"), "error", err.Error())
		os.Exit(1)
	}
	logging.Setup(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("track-worker starting", "carrier", cfg.Service.WorkerCarrier, "ups_env", cfg.UPS.Environment, "http_addr", cfg.Service.WorkerHTTPAddr)
	err = RunTrackWorker(ctx, cfg, defaultWorkerFactories(), workerHTTPOpts{
		httpAddr:    cfg.Service.WorkerHTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("track-worker stopped", "error", err.Error())
		os.Exit(1)
	}
	slog.Info("track-worker stopped")
}
