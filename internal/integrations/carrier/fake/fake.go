package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/upstrack/internal/integrations/carrier"
	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/models"
)

const (
	codeInTransit = "005"
	codeDelivered = "011"
)

// FakeClient answers like the UPS sandbox, without network or credentials.
// The status is a function of the number: about one in five is delivered.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) GetTracking(ctx context.Context, trackNumber string) (carrier.TrackingResult, error) {
	if err := ups.ValidateInquiryNumber(trackNumber); err != nil {
		return carrier.TrackingResult{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)

	h := fnv.New32a()
	_, _ = h.Write([]byte(trackNumber))

	code := codeInTransit
	if h.Sum32()%5 == 0 {
		code = codeDelivered
	}
	adv := ups.Classify(code)

	ev := &models.TrackingEvent{
		Status:    adv.ShorthandStatus,
		StatusRaw: code,
		EventTime: now,
		Location:  ptr("Atlanta, GA, US"),
		Message:   ptr(adv.Description),
	}

	return carrier.TrackingResult{
		Status:    adv.ShorthandStatus,
		StatusRaw: code,
		Advisory:  adv,
		StatusAt:  &now,
		Events:    []*models.TrackingEvent{ev},
	}, nil
}

func ptr(s string) *string { return &s }
