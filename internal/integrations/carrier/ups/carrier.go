package ups

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/upstrack/internal/integrations/carrier"
	"github.com/BearBump/upstrack/internal/models"
)

// Carrier adapts Client to carrier.Client with fixed credentials and options.
type Carrier struct {
	client       *Client
	clientID     string
	clientSecret string
	opts         TrackOptions
	now          func() time.Time
}

func NewCarrier(client *Client, clientID, clientSecret string, opts TrackOptions) *Carrier {
	return &Carrier{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (c *Carrier) GetTracking(ctx context.Context, trackNumber string) (carrier.TrackingResult, error) {
	res, err := c.client.Track(ctx, trackNumber, c.clientID, c.clientSecret, c.opts)
	if err != nil {
		return carrier.TrackingResult{}, err
	}

	pkg := res.TrackResponse.Shipment[0].Package[0]
	events := make([]*models.TrackingEvent, 0, len(pkg.Activity))
	for _, a := range pkg.Activity {
		events = append(events, activityEvent(a, c.now))
	}

	out := carrier.TrackingResult{
		Status:    res.LastStatus.ShorthandStatus,
		StatusRaw: LatestStatusCode(&res.TrackResponse),
		Advisory:  res.LastStatus,
		Events:    events,

		TransactionID: res.TransactionID,
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Code+": "+w.Message)
	}
	if len(events) > 0 {
		at := events[0].EventTime
		out.StatusAt = &at
	}
	return out, nil
}

func activityEvent(a Activity, now func() time.Time) *models.TrackingEvent {
	var code, desc string
	if a.Status != nil {
		code = a.Status.StatusCode
		desc = a.Status.Description
	}
	at, ok := a.OccurredAt()
	if !ok {
		at = now()
	}
	ev := &models.TrackingEvent{
		Status:    Classify(code).ShorthandStatus,
		StatusRaw: code,
		EventTime: at,
		Location:  strPtr(a.Location.String()),
		Message:   strPtr(desc),
	}
	if raw := a.Raw(); len(raw) > 0 {
		ev.PayloadJSON = strPtr(string(raw))
	} else if b, err := json.Marshal(a); err == nil {
		ev.PayloadJSON = strPtr(string(b))
	}
	return ev
}

func strPtr(s string) *string { return &s }
