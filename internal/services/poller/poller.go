package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/upstrack/internal/broker/messages"
	"github.com/BearBump/upstrack/internal/integrations/carrier"
	"github.com/BearBump/upstrack/internal/models"
)

type Repository interface {
	ClaimDueTrackings(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Tracking, error)
}

// Producer delivers TrackingUpdated messages to track-api.
type Producer interface {
	PublishUpdate(ctx context.Context, topic string, msg messages.TrackingUpdated) error
}

type Poller struct {
	repo     Repository
	carrier  carrier.Client
	producer Producer

	topic string

	planner *Planner

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration
	publishTries int
	publishPause time.Duration
	newMessageID func() string
	now          func() time.Time

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	totalCarrierErrors  atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, c carrier.Client, producer Producer, topic string) *Poller {
	return &Poller{
		repo:              repo,
		carrier:           c,
		producer:          producer,
		topic:             topic,
		planner:           DefaultPlanner(),
		pollInterval:      2 * time.Second,
		batchSize:         100,
		concurrency:       10,
		lease:             120 * time.Second,
		publishTries:      10,
		publishPause:      150 * time.Millisecond,
		newMessageID:      uuid.NewString,
		now:               func() time.Time { return time.Now().UTC() },
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig(), nil)
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if concurrency > 0 {
		p.concurrency = concurrency
	}
	if lease > 0 {
		p.lease = lease
	}
	return p
}

func (p *Poller) WithPlanner(cfg PlannerConfig) *Poller {
	p.planner = NewPlanner(cfg, nil)
	return p
}

func (p *Poller) WithPublishRetry(tries int, pause time.Duration) *Poller {
	if tries > 0 {
		p.publishTries = tries
	}
	if pause >= 0 {
		p.publishPause = pause
	}
	return p
}

func (p *Poller) Planner() *Planner { return p.planner }

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt          time.Time  `json:"startedAt"`
	LastCycleAt        *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt      *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed       int64      `json:"totalClaimed"`
	TotalProcessed     int64      `json:"totalProcessed"`
	TotalErrors        int64      `json:"totalErrors"`
	TotalCarrierErrors int64      `json:"totalCarrierErrors"`
	InFlight           int64      `json:"inFlight"`
	LastError          string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:          time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalClaimed:       p.totalClaimed.Load(),
		TotalProcessed:     p.totalProcessed.Load(),
		TotalErrors:        p.totalErrors.Load(),
		TotalCarrierErrors: p.totalCarrierErrors.Load(),
		InFlight:           p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) setLastError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	now := p.now()
	p.lastCycleUnixNano.Store(now.UnixNano())

	items, err := p.repo.ClaimDueTrackings(ctx, now, p.batchSize, p.lease)
	if err != nil {
		slog.Error("claim due trackings", "error", err.Error())
		p.setLastError(err)
		return
	}
	p.totalClaimed.Add(int64(len(items)))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, tr := range items {
		sem <- struct{}{}
		wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := p.processOne(ctx, tr); err != nil {
				p.totalErrors.Add(1)
				p.setLastError(err)
				slog.Error("process tracking", "tracking_id", tr.ID, "error", err.Error())
			}
			p.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

func (p *Poller) processOne(ctx context.Context, tr *models.Tracking) error {
	now := p.now()

	res, err := p.carrier.GetTracking(ctx, tr.TrackNumber)
	msg := buildMessage(p.newMessageID(), tr.ID, now, res, err)
	if err != nil {
		p.totalCarrierErrors.Add(1)
		p.setLastError(err)
		slog.Warn("ups check failed", "tracking_id", tr.ID, "track_number", tr.TrackNumber, "fail_count", tr.CheckFailCount+1, "error", err.Error())
		msg.NextCheckAt = now.Add(p.planner.FailureDelay())
	} else {
		msg.NextCheckAt = now.Add(p.planner.NextCheckDelay(res.Status))
		if len(res.Warnings) > 0 {
			slog.Warn("ups returned warnings", "tracking_id", tr.ID, "trans_id", res.TransactionID, "warnings", res.Warnings)
		}
	}

	return p.publish(ctx, msg)
}

func buildMessage(id string, trackingID uint64, now time.Time, res carrier.TrackingResult, checkErr error) messages.TrackingUpdated {
	msg := messages.TrackingUpdated{
		MessageID:  id,
		TrackingID: trackingID,
		CheckedAt:  now,
	}
	if checkErr != nil {
		e := checkErr.Error()
		msg.Error = &e
		return msg
	}

	flags := res.Advisory.Flags
	msg.Status = res.Status
	msg.StatusRaw = res.StatusRaw
	msg.StatusDescription = res.Advisory.Description
	msg.Flags = &flags
	msg.StatusAt = res.StatusAt
	for _, e := range res.Events {
		var payload json.RawMessage
		if e.PayloadJSON != nil && *e.PayloadJSON != "" {
			payload = json.RawMessage(*e.PayloadJSON)
		}
		msg.Events = append(msg.Events, messages.TrackingEvent{
			Status:    e.Status,
			StatusRaw: e.StatusRaw,
			EventTime: e.EventTime,
			Location:  e.Location,
			Message:   e.Message,
			Payload:   payload,
		})
	}
	return msg
}

// publish retries the Kafka write: the broker may not be ready right after startup.
func (p *Poller) publish(ctx context.Context, msg messages.TrackingUpdated) error {
	var pubErr error
	for i := 0; i < p.publishTries; i++ {
		if pubErr = p.producer.PublishUpdate(ctx, p.topic, msg); pubErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "publish tracking update")
		case <-time.After(time.Duration(i+1) * p.publishPause):
		}
	}
	return pubErr
}
