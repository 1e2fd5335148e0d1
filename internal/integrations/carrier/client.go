package carrier

import (
	"context"
	"time"

	"github.com/BearBump/upstrack/internal/models"
)

// TrackingResult is one successful check of a tracking number.
// Events are ordered newest first.
type TrackingResult struct {
	Status    models.TrackingStatus
	StatusRaw string
	Advisory  models.StatusAdvisory
	StatusAt  *time.Time
	Events    []*models.TrackingEvent

	// TransactionID is the carrier-side request reference, if any.
	TransactionID string
	Warnings      []string
}

// Client looks up the current state of a single tracking number.
type Client interface {
	GetTracking(ctx context.Context, trackNumber string) (TrackingResult, error)
}
