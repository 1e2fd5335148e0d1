package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/upstrack/internal/broker/messages"
	"github.com/BearBump/upstrack/internal/integrations/carrier"
	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu    sync.Mutex
	topic string
	msg   messages.TrackingUpdated
	calls int
	errs  []error
}

func (p *fakeProducer) PublishUpdate(ctx context.Context, topic string, msg messages.TrackingUpdated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.topic, p.msg = topic, msg
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

type fakeCarrier struct {
	res carrier.TrackingResult
	err error
}

func (c fakeCarrier) GetTracking(ctx context.Context, trackNumber string) (carrier.TrackingResult, error) {
	return c.res, c.err
}

func TestPoller_processOne_okPublishes(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	adv := ups.Classify("005")
	fp := &fakeProducer{}
	p := New(nil, fakeCarrier{
		res: carrier.TrackingResult{
			Status:    adv.ShorthandStatus,
			StatusRaw: "005",
			Advisory:  adv,
			StatusAt:  &now,
			Events: []*models.TrackingEvent{
				{Status: adv.ShorthandStatus, StatusRaw: "005", EventTime: now, PayloadJSON: ptr(`{"date":"20250101"}`)},
			},
		},
	}, fp, "tracking.updated")
	p.now = func() time.Time { return now }
	p.newMessageID = func() string { return "msg-1" }

	tr := &models.Tracking{ID: 42, TrackNumber: "1Z023E2X0214323462"}
	require.NoError(t, p.processOne(context.Background(), tr))
	require.Equal(t, 1, fp.calls)
	require.Equal(t, "tracking.updated", fp.topic)

	msg := fp.msg
	require.Equal(t, "msg-1", msg.MessageID)
	require.Equal(t, uint64(42), msg.TrackingID)
	require.Equal(t, models.TrackingStatusInTransit, msg.Status)
	require.Equal(t, "005", msg.StatusRaw)
	require.Equal(t, adv.Description, msg.StatusDescription)
	require.NotNil(t, msg.Flags)
	require.True(t, msg.Flags.InTransit)
	require.Equal(t, now.Add(time.Minute), msg.NextCheckAt)
	require.Len(t, msg.Events, 1)
	require.JSONEq(t, `{"date":"20250101"}`, string(msg.Events[0].Payload))
	require.Nil(t, msg.Error)
}

func TestPoller_processOne_carrierErrorUsesFailureDelay(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	fp := &fakeProducer{}
	p := New(nil, fakeCarrier{err: &ups.TrackingError{StatusCode: 400, Details: []ups.ErrorDetail{{Code: "151118", Message: "Invalid tracking number"}}}}, fp, "tracking.updated").
		WithPlanner(PlannerConfig{FailureDelay: 7 * time.Minute})
	p.now = func() time.Time { return now }

	tr := &models.Tracking{ID: 1, TrackNumber: "1Z0000000000000000", CheckFailCount: 2}
	require.NoError(t, p.processOne(context.Background(), tr))
	require.Equal(t, 1, fp.calls)

	msg := fp.msg
	require.True(t, msg.Failed())
	require.Contains(t, *msg.Error, "Invalid tracking number")
	require.Empty(t, msg.Status)
	require.Equal(t, now.Add(7*time.Minute), msg.NextCheckAt)
	require.EqualValues(t, 1, p.Stats().TotalCarrierErrors)
}

func TestPoller_processOne_retriesPublish(t *testing.T) {
	fp := &fakeProducer{errs: []error{errors.New("not ready"), errors.New("not ready")}}
	p := New(nil, fakeCarrier{}, fp, "t").WithPublishRetry(3, 0)

	require.NoError(t, p.processOne(context.Background(), &models.Tracking{ID: 5, TrackNumber: "1Z"}))
	require.Equal(t, 3, fp.calls)
}

func TestPoller_processOne_publishGivesUp(t *testing.T) {
	want := errors.New("broker down")
	fp := &fakeProducer{errs: []error{want, want}}
	p := New(nil, fakeCarrier{}, fp, "t").WithPublishRetry(2, 0)

	err := p.processOne(context.Background(), &models.Tracking{ID: 5, TrackNumber: "1Z"})
	require.ErrorIs(t, err, want)
	require.Equal(t, 2, fp.calls)
}

func TestPoller_WithSettings(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fakeCarrier{}, fp, "t").
		WithSettings(5*time.Second, 7, 9, 11*time.Second)
	require.Equal(t, 5*time.Second, p.pollInterval)
	require.Equal(t, 7, p.batchSize)
	require.Equal(t, 9, p.concurrency)
	require.Equal(t, 11*time.Second, p.lease)
}

func ptr(s string) *string { return &s }
