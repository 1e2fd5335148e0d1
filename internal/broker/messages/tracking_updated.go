package messages

import (
	"encoding/json"
	"time"

	"github.com/BearBump/upstrack/internal/models"
)

const ContentTypeJSON = "application/json"

// TrackingUpdated is published by track-worker after every UPS check of a tracking.
// On a failed check only Error and NextCheckAt are meaningful.
type TrackingUpdated struct {
	MessageID  string    `json:"message_id"`
	TrackingID uint64    `json:"tracking_id"`
	CheckedAt  time.Time `json:"checked_at"`

	Status            models.TrackingStatus `json:"status,omitempty"`
	StatusRaw         string                `json:"status_raw,omitempty"`
	StatusDescription string                `json:"status_description,omitempty"`
	Flags             *models.AdvisoryFlags `json:"flags,omitempty"`
	StatusAt          *time.Time            `json:"status_at,omitempty"`

	NextCheckAt time.Time `json:"next_check_at"`

	Events []TrackingEvent `json:"events,omitempty"`

	Error *string `json:"error,omitempty"`
}

type TrackingEvent struct {
	Status    models.TrackingStatus `json:"status"`
	StatusRaw string                `json:"status_raw"`
	EventTime time.Time             `json:"event_time"`
	Location  *string               `json:"location,omitempty"`
	Message   *string               `json:"message,omitempty"`
	Payload   json.RawMessage       `json:"payload,omitempty"`
}

func (m TrackingUpdated) Failed() bool { return m.Error != nil }
