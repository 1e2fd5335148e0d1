package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/BearBump/upstrack/config"
	"github.com/BearBump/upstrack/internal/services/poller"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	poller *poller.Poller
	cfg    *config.Config
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newWorkerRouter(opts workerHTTPOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.poller == nil {
			writeJSON(w, map[string]string{"error": "poller not wired"})
			return
		}
		writeJSON(w, opts.poller.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil || opts.poller == nil {
			writeJSON(w, map[string]string{"error": "config not wired"})
			return
		}
		// Only operational settings; credentials stay out.
		pc := opts.poller.Planner().Config()
		writeJSON(w, map[string]any{
			"pollIntervalSeconds":          opts.cfg.Service.WorkerPollIntervalSeconds,
			"batchSize":                    opts.cfg.Service.WorkerBatchSize,
			"concurrency":                  opts.cfg.Service.WorkerConcurrency,
			"leaseSeconds":                 opts.cfg.Service.WorkerLeaseSeconds,
			"carrier":                      opts.cfg.Service.WorkerCarrier,
			"upsEnvironment":               opts.cfg.UPS.Environment,
			"upsLocale":                    opts.cfg.UPS.Locale,
			"nextCheckDeliveredSeconds":    int64(pc.DeliveredDelay.Seconds()),
			"nextCheckInTransitMinSeconds": int64(pc.InTransitMinDelay.Seconds()),
			"nextCheckInTransitMaxSeconds": int64(pc.InTransitMaxDelay.Seconds()),
			"nextCheckAttentionSeconds":    int64(pc.AttentionDelay.Seconds()),
			"nextCheckUnknownSeconds":      int64(pc.UnknownDelay.Seconds()),
			"failureDelaySeconds":          int64(pc.FailureDelay.Seconds()),
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.poller == nil {
			writeJSON(w, map[string]string{"error": "poller not wired"})
			return
		}
		opts.poller.Trigger()
		writeJSON(w, map[string]bool{"triggered": true})
	})

	// Serve swagger with no-cache + cachebuster (same trick as track-api).
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})

	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	return r
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return fmt.Errorf("worker swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("worker swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
