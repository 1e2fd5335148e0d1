package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	trackingsapi "github.com/BearBump/upstrack/internal/api/trackings_api"
	"github.com/BearBump/upstrack/internal/broker/kafka"
	"github.com/BearBump/upstrack/internal/broker/messages"
	"github.com/BearBump/upstrack/internal/services/trackings"
	"github.com/BearBump/upstrack/internal/storage/pgtracking"
)

const consumerRestartPause = time.Second

type trackAPIOpts struct {
	grpcAddr    string
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	onListen func(grpcAddr, httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler kafka.Handler) error
}

func runTrackAPI(ctx context.Context, opts trackAPIOpts, svc *trackings.Service, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	if opts.onListen != nil {
		opts.onListen(grpcLis.Addr().String(), httpLis.Addr().String())
	}

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- runGRPCServer(ctx, grpcLis)
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, httpLis, trackingsapi.New(svc), opts.swaggerPath)
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		consumeLoop(ctx, consumer, updateHandler(svc))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-grpcErr:
		return err
	case err := <-httpErr:
		return err
	}
}

// updateHandler applies TrackingUpdated messages. Malformed or invalid messages and
// updates of trackings that no longer exist are logged and committed so they do not
// block the partition.
func updateHandler(svc *trackings.Service) kafka.Handler {
	return func(ctx context.Context, key, value []byte) error {
		var m messages.TrackingUpdated
		if err := json.Unmarshal(value, &m); err != nil {
			slog.Warn("skip malformed tracking update", "key", string(key), "error", err.Error())
			return nil
		}
		err := svc.ApplyUpdate(ctx, m)
		switch {
		case errors.Is(err, trackings.ErrInvalidArgument):
			slog.Warn("skip invalid tracking update", "key", string(key), "error", err.Error())
			return nil
		case errors.Is(err, pgtracking.ErrNotFound):
			slog.Warn("skip update of unknown tracking", "tracking_id", m.TrackingID, "message_id", m.MessageID)
			return nil
		}
		return err
	}
}

func consumeLoop(ctx context.Context, consumer kafkaConsumer, h kafka.Handler) {
	for {
		err := consumer.Consume(ctx, h)
		if ctx.Err() != nil {
			return
		}
		slog.Error("kafka consumer stopped, restarting", "error", fmt.Sprint(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(consumerRestartPause):
		}
	}
}

func runGRPCServer(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			s.Stop()
		}
		_ = lis.Close()
	}()

	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.Serve(lis)
}

func newRouter(api *trackingsapi.TrackingsAPI, swaggerPath string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))

	api.Register(r)
	return r
}

func runHTTPServer(ctx context.Context, lis net.Listener, api *trackingsapi.TrackingsAPI, swaggerPath string) error {
	srv := &http.Server{Handler: newRouter(api, swaggerPath), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP API listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}
