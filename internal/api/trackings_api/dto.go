package trackings_api

import (
	"time"

	"github.com/BearBump/upstrack/internal/models"
)

type createItem struct {
	TrackNumber string `json:"trackNumber"`
}

type createTrackingsRequest struct {
	Items []createItem `json:"items"`
}

type trackingsResponse struct {
	Trackings []trackingDTO `json:"trackings"`
}

type eventsResponse struct {
	Events []eventDTO `json:"events"`
}

type statusCodeResponse struct {
	Code string `json:"code"`
	models.StatusAdvisory
}

type statusCodesResponse struct {
	Codes []statusCodeResponse `json:"codes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type trackingDTO struct {
	ID                uint64                `json:"id"`
	TrackNumber       string                `json:"trackNumber"`
	Status            models.TrackingStatus `json:"status"`
	StatusRaw         string                `json:"statusRaw,omitempty"`
	StatusDescription string                `json:"statusDescription,omitempty"`
	Flags             models.AdvisoryFlags  `json:"flags"`
	StatusAt          *time.Time            `json:"statusAt,omitempty"`
	LastCheckedAt     *time.Time            `json:"lastCheckedAt,omitempty"`
	NextCheckAt       time.Time             `json:"nextCheckAt"`
	CheckFailCount    int32                 `json:"checkFailCount"`
	LastError         string                `json:"lastError,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

type eventDTO struct {
	ID          uint64                `json:"id"`
	TrackingID  uint64                `json:"trackingId"`
	Status      models.TrackingStatus `json:"status"`
	StatusRaw   string                `json:"statusRaw"`
	EventTime   time.Time             `json:"eventTime"`
	Location    string                `json:"location,omitempty"`
	Message     string                `json:"message,omitempty"`
	PayloadJSON string                `json:"payloadJson,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func toTrackingDTOs(ts []*models.Tracking) []trackingDTO {
	out := make([]trackingDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, trackingDTO{
			ID:                t.ID,
			TrackNumber:       t.TrackNumber,
			Status:            t.Status,
			StatusRaw:         t.StatusRaw,
			StatusDescription: t.StatusDescription,
			Flags:             t.Flags,
			StatusAt:          t.StatusAt,
			LastCheckedAt:     t.LastCheckedAt,
			NextCheckAt:       t.NextCheckAt,
			CheckFailCount:    t.CheckFailCount,
			LastError:         derefString(t.LastError),
			CreatedAt:         t.CreatedAt,
			UpdatedAt:         t.UpdatedAt,
		})
	}
	return out
}

func toEventDTOs(evs []*models.TrackingEvent) []eventDTO {
	out := make([]eventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, eventDTO{
			ID:          e.ID,
			TrackingID:  e.TrackingID,
			Status:      e.Status,
			StatusRaw:   e.StatusRaw,
			EventTime:   e.EventTime,
			Location:    derefString(e.Location),
			Message:     derefString(e.Message),
			PayloadJSON: derefString(e.PayloadJSON),
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
