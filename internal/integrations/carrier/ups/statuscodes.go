package ups

import (
	"fmt"
	"strings"

	"github.com/BearBump/upstrack/internal/models"
)

const (
	unknownStatusDescription = "Unknown status code - check tracking information on UPS.com for more details."
	emergencyDelay           = "Delay due to an emergency situation, severe weather, or natural disaster."
)

type statusCode struct {
	code        string
	status      models.TrackingStatus
	description string
	flags       models.AdvisoryFlags
}

var (
	inTransit      = models.AdvisoryFlags{InTransit: true}
	delayed        = models.AdvisoryFlags{Delayed: true, InTransit: true}
	exception      = models.AdvisoryFlags{Exception: true}
	recipientExc   = models.AdvisoryFlags{RecipientActionRequired: true, Exception: true}
	outForDelivery = models.AdvisoryFlags{OutForDelivery: true, InTransit: true}
	pickUp         = models.AdvisoryFlags{RecipientShouldPickUp: true}
	returned       = models.AdvisoryFlags{ReturnToSender: true}
)

// statusCodes lists every UPS activity status code with a known meaning.
// Codes must be unique; buildStatusTable rejects duplicates.
//
// UPS has also been seen reporting 029 for a second failed delivery attempt
// ("UPS will make a final attempt on the next business day", delayed and in
// transit). That reading conflicts with the address-problem entry below and is
// not represented.
var statusCodes = []statusCode{
	{"003", models.TrackingStatusAwaitingPickup, "Information Received - Awaiting Drop Off.", models.AdvisoryFlags{}},
	{"005", models.TrackingStatusInTransit, "In Transit.", inTransit},
	{"006", models.TrackingStatusOutForDelivery, "Out For Delivery Today.", outForDelivery},
	{"007", models.TrackingStatusException, "Shipment was cancelled.", exception},
	{"011", models.TrackingStatusDelivered, "Delivered.", models.AdvisoryFlags{Delivered: true}},
	{"012", models.TrackingStatusInTransit, "Customs Clearance in Progress.", inTransit},
	{"013", models.TrackingStatusException, "Delivery Exception.", exception},
	{"014", models.TrackingStatusInTransit, "Package Cleared Customs.", inTransit},
	{"016", models.TrackingStatusDelay, "UPS is holding the cargo at a secure facility, pending instructions and agreement.", models.AdvisoryFlags{
		RecipientShouldCheckCarrier: true,
		ShipperActionRequired:       true,
		RecipientActionRequired:     true,
		Delayed:                     true,
		InTransit:                   true,
	}},
	{"017", models.TrackingStatusAvailableForPickup, "The package is being held upon request for 5 business days and is ready for pickup. A valid government issued photo ID will be required for pickup.", pickUp},
	{"018", models.TrackingStatusInTransit, "Hold for pickup was requested - the package is not yet available for pickup at a UPS facility.", inTransit},
	{"019", models.TrackingStatusDelay, "Held for future delivery.", delayed},
	{"021", models.TrackingStatusOutForDelivery, "Out for Delivery Today.", outForDelivery},
	{"022", models.TrackingStatusDelay, "UPS missed the receiver and will try again on the next business day.", delayed},
	{"024", models.TrackingStatusDelay, "UPS was unable to deliver the package on the final delivery attempt. Air service packages will be held for 5 days - all other packages will be returned to the sender unless action is taken by the receiver by end of day.", models.AdvisoryFlags{
		RecipientShouldCheckCarrier: true,
		RecipientActionRequired:     true,
		Delayed:                     true,
		InTransit:                   true,
	}},
	{"025", models.TrackingStatusInTransit, "The package was transferred to the local post office for delivery to the final destination.", inTransit},
	{"026", models.TrackingStatusDelivered, "Package was delivered by local post office.", models.AdvisoryFlags{Delivered: true}},
	// an update, not a delay, unlike 054
	{"027", models.TrackingStatusInTransit, "UPS has received a request to deliver the package to an alternate address.", inTransit},
	{"028", models.TrackingStatusInTransit, "UPS has updated the delivery address.", inTransit},
	{"029", models.TrackingStatusException, "Action Required: The shipping address provided is either incorrect or incomplete.", recipientExc},
	{"030", models.TrackingStatusException, "Local post office Exception. Please check with your local post office for more information.", exception},
	{"032", models.TrackingStatusDelay, "Adverse weather may cause delay.", delayed},
	{"033", models.TrackingStatusReturnToSender, "UPS has received a request to return the package to the sender.", returned},
	{"035", models.TrackingStatusReturnToSender, "Returning to Sender.", returned},
	{"038", models.TrackingStatusInTransit, "Shipment was picked up.", inTransit},
	{"040", models.TrackingStatusAvailableForPickup, "Delivered to UPS Access Point™, awaiting customer pickup.", models.AdvisoryFlags{
		RecipientShouldPickUp: true,
		Delivered:             true,
	}},
	{"042", models.TrackingStatusInTransit, "Service was upgraded while in transit.", inTransit},
	{"044", models.TrackingStatusInTransit, "The Package is on its way to UPS. Delivery date will be updated when UPS takes possession of the package.", inTransit},
	{"045", models.TrackingStatusInTransit, "The Package is on its way to UPS. Delivery date will be updated when UPS takes possession of the package.", inTransit},
	{"046", models.TrackingStatusDelay, "UPS has placed the perishable package in a climate controlled environment for safety.", delayed},
	{"047", models.TrackingStatusDelay, "UPS has removed the package from a climate controlled environment.", delayed},
	{"048", models.TrackingStatusDelay, "Delay in Delivery.", delayed},
	{"049", models.TrackingStatusException, "Action required by the receiver.", recipientExc},
	{"050", models.TrackingStatusException, "Action Required: Please provide UPS with the correct delivery information or the package will be returned to the sender.", recipientExc},
	{"051", models.TrackingStatusDelay, emergencyDelay, delayed},
	{"052", models.TrackingStatusDelay, emergencyDelay, delayed},
	{"053", models.TrackingStatusDelay, emergencyDelay, delayed},
	{"054", models.TrackingStatusDelay, "Delivery Change Requested.", delayed},
	{"055", models.TrackingStatusDelay, "Delivery will be rescheduled.", delayed},
	{"057", models.TrackingStatusDelay, "UPS missed the receiver and is taking the package to a UPS Access Point™.", delayed},
	{"058", models.TrackingStatusDelay, "Customs Clearance Information Required.", models.AdvisoryFlags{
		ShipperActionRequired: true,
		Delayed:               true,
	}},
	{"065", models.TrackingStatusDelay, "Pickup Attempted.", models.AdvisoryFlags{
		RecipientShouldCheckCarrier: true,
		Delayed:                     true,
		InTransit:                   true,
	}},
	{"070", models.TrackingStatusInTransit, "Package is on its way to a Local UPS Access Point™ for pickup.", inTransit},
	{"071", models.TrackingStatusInTransit, "Package has arrived at destination facility and is being prepared for delivery today.", inTransit},
	{"072", models.TrackingStatusOutForDelivery, "The package has been loaded onto the delivery vehicle and is out for delivery.", outForDelivery},
	{"077", models.TrackingStatusAvailableForPickup, "The package is scheduled for pickup today.", pickUp},
}

var statusTable = mustBuildStatusTable(statusCodes)

func buildStatusTable(entries []statusCode) (map[string]models.StatusAdvisory, error) {
	table := make(map[string]models.StatusAdvisory, len(entries))
	for _, e := range entries {
		if _, dup := table[e.code]; dup {
			return nil, fmt.Errorf("duplicate status code %q", e.code)
		}
		table[e.code] = models.StatusAdvisory{
			Description:     e.description,
			ShorthandStatus: e.status,
			Flags:           e.flags,
		}
	}
	return table, nil
}

func mustBuildStatusTable(entries []statusCode) map[string]models.StatusAdvisory {
	table, err := buildStatusTable(entries)
	if err != nil {
		panic(err)
	}
	return table
}

// Classify maps a UPS activity status code to its advisory. Codes without a known
// meaning, including the empty string, map to TrackingStatusUnknown with
// RecipientShouldCheckCarrier set. Classify never fails.
func Classify(code string) models.StatusAdvisory {
	if adv, ok := statusTable[strings.TrimSpace(code)]; ok {
		return adv
	}
	return models.StatusAdvisory{
		Description:     unknownStatusDescription,
		ShorthandStatus: models.TrackingStatusUnknown,
		Flags:           models.AdvisoryFlags{RecipientShouldCheckCarrier: true},
	}
}

// KnownStatusCodes returns the codes Classify recognizes, in table order.
func KnownStatusCodes() []string {
	out := make([]string, 0, len(statusCodes))
	for _, e := range statusCodes {
		out = append(out, e.code)
	}
	return out
}
