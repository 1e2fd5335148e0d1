package models

import "time"

type Tracking struct {
	ID                uint64
	TrackNumber       string
	Status            TrackingStatus
	StatusRaw         string
	StatusDescription string
	Flags             AdvisoryFlags
	StatusAt          *time.Time
	LastCheckedAt     *time.Time
	NextCheckAt       time.Time
	CheckFailCount    int32
	LastError         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type TrackingEvent struct {
	ID          uint64
	TrackingID  uint64
	Status      TrackingStatus
	StatusRaw   string
	EventTime   time.Time
	Location    *string
	Message     *string
	PayloadJSON *string
	CreatedAt   time.Time
}

type TrackingCreateInput struct {
	TrackNumber string
}
