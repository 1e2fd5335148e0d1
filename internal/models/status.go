package models

// TrackingStatus is the carrier-agnostic status of a shipment.
type TrackingStatus string

const (
	TrackingStatusAwaitingPickup     TrackingStatus = "awaiting_pickup"
	TrackingStatusInTransit          TrackingStatus = "in_transit"
	TrackingStatusOutForDelivery     TrackingStatus = "out_for_delivery"
	TrackingStatusDelivered          TrackingStatus = "delivered"
	TrackingStatusAvailableForPickup TrackingStatus = "available_for_pickup"
	TrackingStatusReturnToSender     TrackingStatus = "return_to_sender"
	TrackingStatusException          TrackingStatus = "exception"
	TrackingStatusDelay              TrackingStatus = "delay"
	TrackingStatusUnknown            TrackingStatus = "unknown"
)

// AllTrackingStatuses lists every TrackingStatus value.
func AllTrackingStatuses() []TrackingStatus {
	return []TrackingStatus{
		TrackingStatusAwaitingPickup,
		TrackingStatusInTransit,
		TrackingStatusOutForDelivery,
		TrackingStatusDelivered,
		TrackingStatusAvailableForPickup,
		TrackingStatusReturnToSender,
		TrackingStatusException,
		TrackingStatusDelay,
		TrackingStatusUnknown,
	}
}

func (s TrackingStatus) Valid() bool {
	for _, v := range AllTrackingStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

func (s TrackingStatus) String() string { return string(s) }

// AdvisoryFlags are independent hints attached to a status; several may be set at once.
type AdvisoryFlags struct {
	Delivered                   bool `json:"delivered,omitempty"`
	Delayed                     bool `json:"delayed,omitempty"`
	InTransit                   bool `json:"inTransit,omitempty"`
	Exception                   bool `json:"exception,omitempty"`
	OutForDelivery              bool `json:"outForDelivery,omitempty"`
	ReturnToSender              bool `json:"returnToSender,omitempty"`
	ShipperActionRequired       bool `json:"shipperActionRequired,omitempty"`
	RecipientShouldPickUp       bool `json:"recipientShouldPickUp,omitempty"`
	RecipientShouldCheckCarrier bool `json:"recipientShouldCheckCarrier,omitempty"`
	RecipientActionRequired     bool `json:"recipientActionRequired,omitempty"`
}

// StatusAdvisory is the normalized reading of one raw carrier status code.
type StatusAdvisory struct {
	Description     string         `json:"description"`
	ShorthandStatus TrackingStatus `json:"shorthandStatus"`
	Flags           AdvisoryFlags  `json:"flags"`
}
