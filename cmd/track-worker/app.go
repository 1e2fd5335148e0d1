package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/upstrack/config"
	"github.com/BearBump/upstrack/internal/broker/kafka"
	"github.com/BearBump/upstrack/internal/integrations/carrier"
	"github.com/BearBump/upstrack/internal/integrations/carrier/fake"
	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/services/poller"
	"github.com/BearBump/upstrack/internal/storage/pgtracking"
)

type workerFactories struct {
	newStorage       func(cfg *config.Config) (repo poller.Repository, closeFn func(), err error)
	newProducer      func(cfg *config.Config) (producer poller.Producer, closeFn func())
	newCarrierClient func(cfg *config.Config) (carrier.Client, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (poller.Repository, func(), error) {
			st, err := pgtracking.New(cfg.Database.ConnString(),
				pgtracking.WithApplicationName("track-worker"),
				pgtracking.WithMaxConns(int32(cfg.Service.WorkerConcurrency)*2),
			)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) (poller.Producer, func()) {
			p := kafka.NewProducer(cfg.Kafka.Brokers())
			return p, func() { _ = p.Close() }
		},
		newCarrierClient: newCarrierClient,
	}
}

// newCarrierClient returns the UPS adapter, or the offline fake when worker_carrier is "fake".
func newCarrierClient(cfg *config.Config) (carrier.Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Service.WorkerCarrier)) {
	case "fake":
		return fake.New(), nil
	case "", "ups":
	default:
		return nil, errors.Errorf("unknown worker_carrier %q", cfg.Service.WorkerCarrier)
	}

	u := cfg.UPS
	env, err := ups.ParseEnvironment(u.Environment)
	if err != nil {
		return nil, err
	}
	if u.ClientID == "" || u.ClientSecret == "" {
		return nil, errors.New("ups client_id and client_secret are required (set worker_carrier: fake for offline runs)")
	}
	if u.MerchantID == "" {
		return nil, errors.New("ups merchant_id is required")
	}

	timeout := time.Duration(u.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := ups.New(&http.Client{Timeout: timeout}).
		WithBaseURL(ups.EnvironmentProduction, u.ProductionBaseURL).
		WithBaseURL(ups.EnvironmentSandbox, u.SandboxBaseURL).
		WithLogger(slog.Default())

	return ups.NewCarrier(client, u.ClientID, u.ClientSecret, ups.TrackOptions{
		Locale:           u.Locale,
		ReturnMilestones: u.ReturnMilestones,
		ReturnSignature:  u.ReturnSignature,
		MerchantID:       u.MerchantID,
		Environment:      env,
	}), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// plannerConfig overlays configured delays on the defaults; zero keeps the default.
func plannerConfig(tb config.ServiceConfig) poller.PlannerConfig {
	return poller.PlannerConfig{
		DeliveredDelay:    seconds(tb.WorkerNextCheckDeliveredSeconds),
		InTransitMinDelay: seconds(tb.WorkerNextCheckInTransitMinSeconds),
		InTransitMaxDelay: seconds(tb.WorkerNextCheckInTransitMaxSeconds),
		AttentionDelay:    seconds(tb.WorkerNextCheckAttentionSeconds),
		UnknownDelay:      seconds(tb.WorkerNextCheckUnknownSeconds),
		FailureDelay:      seconds(tb.WorkerFailureDelaySeconds),
	}
}

func buildPoller(cfg *config.Config, repo poller.Repository, producer poller.Producer, c carrier.Client) *poller.Poller {
	topic := cfg.Kafka.TrackingUpdatedTopicName
	if topic == "" {
		topic = "tracking.updated"
	}
	tb := cfg.Service
	return poller.New(repo, c, producer, topic).
		WithSettings(seconds(tb.WorkerPollIntervalSeconds), tb.WorkerBatchSize, tb.WorkerConcurrency, seconds(tb.WorkerLeaseSeconds)).
		WithPlanner(plannerConfig(tb))
}

// RunTrackWorker runs the poller and, when httpOpts has a swagger path, the ops HTTP server.
// It returns when ctx is done or either of them fails.
func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	carrierClient, err := f.newCarrierClient(cfg)
	if err != nil {
		return errors.Wrap(err, "carrier client")
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer, closeProducer := f.newProducer(cfg)
	if closeProducer != nil {
		defer closeProducer()
	}

	p := buildPoller(cfg, repo, producer, carrierClient)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	if httpOpts.swaggerPath != "" {
		httpOpts.poller = p
		httpOpts.cfg = cfg
		go func() { httpErr <- runWorkerHTTPServer(ctx, httpOpts) }()
	}

	pollErr := make(chan error, 1)
	go func() { pollErr <- p.Run(ctx) }()

	slog.Info("track-worker started", "carrier", cfg.Service.WorkerCarrier, "environment", cfg.UPS.Environment)

	select {
	case err := <-pollErr:
		return err
	case err := <-httpErr:
		cancel()
		<-pollErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return ctx.Err()
		}
		return err
	}
}
