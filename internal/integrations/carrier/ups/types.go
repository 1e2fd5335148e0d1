package ups

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Credential is the OAuth token returned by the token endpoint, with keys camelCased.
// expiresIn and refreshCount are decimal text, as UPS sends them.
type Credential struct {
	TokenType    string `json:"tokenType" validate:"required"`
	IssuedAt     string `json:"issuedAt" validate:"required"`
	ClientID     string `json:"clientId" validate:"required"`
	AccessToken  string `json:"accessToken" validate:"required"`
	ExpiresIn    string `json:"expiresIn" validate:"required,numeric"`
	Status       string `json:"status" validate:"required"`
	Scope        string `json:"scope,omitempty"`
	RefreshCount string `json:"refreshCount,omitempty" validate:"omitempty,numeric"`
}

// Lifetime returns expiresIn as a duration, or 0 when it is not a decimal number
// of seconds. Expiry is never enforced by this package.
func (c Credential) Lifetime() time.Duration {
	secs, err := strconv.ParseInt(c.ExpiresIn, 10, 64)
	if err != nil || secs < 0 || secs > math.MaxInt64/int64(time.Second) {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// trackingShape holds only what a tracking response must contain. Presence is
// checked, not content: empty strings are accepted, and status and location only
// need to be JSON objects.
type trackingShape struct {
	TrackResponse *struct {
		Shipment []struct {
			InquiryNumber *string `json:"inquiryNumber" validate:"required"`
			Package       []struct {
				Activity []struct {
					Date     *string         `json:"date" validate:"required"`
					Time     *string         `json:"time" validate:"required"`
					Status   json.RawMessage `json:"status" validate:"required,jsonobject"`
					Location json.RawMessage `json:"location" validate:"required,jsonobject"`
				} `json:"activity" validate:"required,dive"`
				DeliveryDate []struct {
					Type *string `json:"type" validate:"required"`
					Date *string `json:"date" validate:"required"`
				} `json:"deliveryDate" validate:"required,dive"`
				PackageCount   *float64 `json:"packageCount" validate:"required"`
				TrackingNumber *string  `json:"trackingNumber" validate:"required"`
			} `json:"package" validate:"required,min=1,dive"`
		} `json:"shipment" validate:"required,min=1,dive"`
	} `json:"trackResponse" validate:"required"`
}

// decodeLenient fills v from b, skipping fields whose JSON type does not match.
func decodeLenient(b []byte, v any) error {
	var te *json.UnmarshalTypeError
	if err := json.Unmarshal(b, v); err != nil && !errors.As(err, &te) {
		return err
	}
	return nil
}

// TrackingResponse is a typed view of the tracking body. Fields UPS sends with an
// unexpected type are left zero; the untouched body is TrackingQueryResult.RawResponse.
type TrackingResponse struct {
	TrackResponse *TrackResponse `json:"trackResponse"`
}

type TrackResponse struct {
	Shipment []Shipment `json:"shipment"`
}

type Shipment struct {
	InquiryNumber string        `json:"inquiryNumber"`
	Package       []Package     `json:"package"`
	UserRelation  []string      `json:"userRelation,omitempty"`
	Warnings      []ErrorDetail `json:"warnings,omitempty"`
}

type Package struct {
	AccessPointInformation  *AccessPointInformation  `json:"accessPointInformation,omitempty"`
	Activity                []Activity               `json:"activity"`
	AdditionalAttributes    []string                 `json:"additionalAttributes,omitempty"`
	AlternateTrackingNumber *AlternateTrackingNumber `json:"alternateTrackingNumber,omitempty"`
	CurrentStatus           *Status                  `json:"currentStatus,omitempty"`
	DeliveryDate            []DeliveryDate           `json:"deliveryDate"`
	DeliveryInformation     *DeliveryInformation     `json:"deliveryInformation,omitempty"`
	DeliveryTime            *DeliveryTime            `json:"deliveryTime,omitempty"`
	Milestones              []Milestone              `json:"milestones,omitempty"`
	PackageAddress          []PackageAddress         `json:"packageAddress,omitempty"`
	PackageCount            int                      `json:"packageCount"`
	PaymentInformation      []PaymentInformation     `json:"paymentInformation,omitempty"`
	ReferenceNumber         []ReferenceNumber        `json:"referenceNumber,omitempty"`
	Service                 *Service                 `json:"service,omitempty"`
	StatusCode              string                   `json:"statusCode,omitempty"`
	StatusDescription       string                   `json:"statusDescription,omitempty"`
	SuppressionIndicators   []string                 `json:"suppressionIndicators,omitempty"`
	TrackingNumber          string                   `json:"trackingNumber"`
	Weight                  *Weight                  `json:"weight,omitempty"`
}

type Activity struct {
	Location  *ActivityLocation `json:"location"`
	Status    *Status           `json:"status"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	GMTDate   string            `json:"gmtDate,omitempty"`
	GMTOffset string            `json:"gmtOffset,omitempty"`
	GMTTime   string            `json:"gmtTime,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the activity exactly as UPS sent it, see Raw.
func (a *Activity) UnmarshalJSON(b []byte) error {
	type plain Activity
	var p plain
	if err := decodeLenient(b, &p); err != nil {
		return err
	}
	*a = Activity(p)
	a.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Raw returns the activity as received, or nil for an activity built in code.
func (a Activity) Raw() json.RawMessage { return a.raw }

// OccurredAt returns the activity time in UTC. GMT fields are preferred; otherwise
// date and time are read as local wall clock shifted by gmtOffset when present.
func (a Activity) OccurredAt() (time.Time, bool) {
	const layout = "20060102150405"
	if a.GMTDate != "" && a.GMTTime != "" {
		if t, err := time.Parse(layout, a.GMTDate+stripColons(a.GMTTime)); err == nil {
			return t, true
		}
	}
	t, err := time.Parse(layout, a.Date+stripColons(a.Time))
	if err != nil {
		return time.Time{}, false
	}
	if off, ok := parseOffset(a.GMTOffset); ok {
		t = t.Add(-off)
	}
	return t.UTC(), true
}

func stripColons(s string) string { return strings.ReplaceAll(s, ":", "") }

// parseOffset reads "-05:00" or "-0500".
func parseOffset(s string) (time.Duration, bool) {
	s = stripColons(s)
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	t, err := time.Parse("1504", s[1:])
	if err != nil {
		return 0, false
	}
	d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	if s[0] == '-' {
		d = -d
	}
	return d, true
}

type Status struct {
	Type                      string `json:"type,omitempty"`
	Description               string `json:"description,omitempty"`
	Code                      string `json:"code,omitempty"`
	StatusCode                string `json:"statusCode,omitempty"`
	SimplifiedTextDescription string `json:"simplifiedTextDescription,omitempty"`
}

type ActivityLocation struct {
	Address *Address `json:"address,omitempty"`
	Slic    string   `json:"slic,omitempty"`
}

// String renders "City, ST, CC", skipping empty parts.
func (l *ActivityLocation) String() string {
	if l == nil || l.Address == nil {
		return ""
	}
	return l.Address.String()
}

type Address struct {
	AddressLine1  string `json:"addressLine1,omitempty"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	AddressLine3  string `json:"addressLine3,omitempty"`
	City          string `json:"city,omitempty"`
	StateProvince string `json:"stateProvince,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	CountryCode   string `json:"countryCode,omitempty"`
	Country       string `json:"country,omitempty"`
}

func (a Address) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.City, a.StateProvince, a.CountryCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type AccessPointInformation struct {
	PickupByDate string `json:"pickupByDate,omitempty"`
}

type AlternateTrackingNumber struct {
	Number string `json:"number,omitempty"`
	Type   string `json:"type,omitempty"`
}

type DeliveryDate struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

type DeliveryInformation struct {
	Location      string     `json:"location,omitempty"`
	ReceivedBy    string     `json:"receivedBy,omitempty"`
	Signature     *Signature `json:"signature,omitempty"`
	DeliveryPhoto *Photo     `json:"deliveryPhoto,omitempty"`
	Pod           *Pod       `json:"pod,omitempty"`
}

type Signature struct {
	Image string `json:"image,omitempty"`
}

type Photo struct {
	IsNonPostalCodeCountry bool   `json:"isNonPostalCodeCountry,omitempty"`
	Photo                  string `json:"photo,omitempty"`
	PhotoCaptureInd        string `json:"photoCaptureInd,omitempty"`
	PhotoDispositionCode   string `json:"photoDispositionCode,omitempty"`
}

type Pod struct {
	Content string `json:"content,omitempty"`
}

type DeliveryTime struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Type      string `json:"type,omitempty"`
}

type Milestone struct {
	Category       string        `json:"category,omitempty"`
	Code           string        `json:"code,omitempty"`
	Current        bool          `json:"current,omitempty"`
	Description    string        `json:"description,omitempty"`
	LinkedActivity string        `json:"linkedActivity,omitempty"`
	State          string        `json:"state,omitempty"`
	SubMilestone   *SubMilestone `json:"subMilestone,omitempty"`
}

type SubMilestone struct {
	Category string `json:"category,omitempty"`
}

type PackageAddress struct {
	Address       *Address `json:"address,omitempty"`
	AttentionName string   `json:"attentionName,omitempty"`
	Name          string   `json:"name,omitempty"`
	Type          string   `json:"type,omitempty"`
}

type PaymentInformation struct {
	Amount        string `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	ID            string `json:"id,omitempty"`
	Paid          bool   `json:"paid,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Type          string `json:"type,omitempty"`
}

type ReferenceNumber struct {
	Number string `json:"number,omitempty"`
	Type   string `json:"type,omitempty"`
}

type Service struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	LevelCode   string `json:"levelCode,omitempty"`
}

type Weight struct {
	UnitOfMeasurement string `json:"unitOfMeasurement,omitempty"`
	Weight            string `json:"weight,omitempty"`
}
