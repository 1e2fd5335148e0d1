package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/upstrack/config"
	"github.com/BearBump/upstrack/internal/broker/kafka"
	"github.com/BearBump/upstrack/internal/cache/rediscache"
	"github.com/BearBump/upstrack/internal/logging"
	"github.com/BearBump/upstrack/internal/services/trackings"
	"github.com/BearBump/upstrack/internal/storage/pgtracking"
)

type trackAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     trackAPIOpts
	svc      *trackings.Service
	consumer *kafka.Consumer
	closers  []func()
}

// optsFromConfig fills in listener addresses, topic and group, defaulting unset values.
func optsFromConfig(cfg *config.Config, swaggerPath string) trackAPIOpts {
	opts := trackAPIOpts{
		grpcAddr:      cfg.Service.GRPCAddr,
		httpAddr:      cfg.Service.HTTPAddr,
		swaggerPath:   swaggerPath,
		topic:         cfg.Kafka.TrackingUpdatedTopicName,
		consumerGroup: cfg.Service.KafkaConsumerGroup,
	}
	if opts.grpcAddr == "" {
		opts.grpcAddr = ":50051"
	}
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}
	if opts.topic == "" {
		opts.topic = "tracking.updated"
	}
	if opts.consumerGroup == "" {
		opts.consumerGroup = "track-api"
	}
	return opts
}

func cacheTTL(cfg *config.Config) time.Duration {
	ttl := time.Duration(cfg.Service.CurrentStatusTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return ttl
}

func mustBootstrapTrackAPI() *trackAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	logging.Setup(cfg.Logging)

	opts := optsFromConfig(cfg, swaggerPath)

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
	rc := rediscache.New(cfg.Redis.Addr()).WithPrefix("upstrack:")
	svc := trackings.New(st, rc, cacheTTL(cfg))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers(), opts.topic, opts.consumerGroup).
		WithLogger(slog.Default().With("component", "kafka-consumer"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &trackAPIApp{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		svc:      svc,
		consumer: consumer,
		closers: []func(){
			func() { _ = consumer.Close() },
			func() { _ = rc.Close() },
			st.Close,
		},
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgtracking.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtracking.New(connString, pgtracking.WithApplicationName("track-api"))
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *trackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *trackAPIApp) Run() error {
	return runTrackAPI(a.ctx, a.opts, a.svc, a.consumer)
}
