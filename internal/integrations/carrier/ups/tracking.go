package ups

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BearBump/upstrack/internal/models"
	"github.com/pkg/errors"
)

const (
	trackPath     = "/api/track/v1/details/{inquiryNumber}"
	DefaultLocale = "en_US"
)

// TrackOptions tunes a Track call. Either MerchantID or BearerToken must be set;
// with a BearerToken no token exchange happens.
type TrackOptions struct {
	Locale           string
	ReturnMilestones bool
	ReturnSignature  bool
	MerchantID       string
	BearerToken      string
	Environment      Environment
}

// TrackingQueryResult is a successful Track call. RawResponse is the body exactly as
// UPS sent it; TrackResponse is a typed view over the same data.
type TrackingQueryResult struct {
	RawResponse   json.RawMessage       `json:"rawResponse"`
	TrackResponse TrackResponse         `json:"-"`
	LastStatus    models.StatusAdvisory `json:"lastStatus"`
	Warnings      []ErrorDetail         `json:"warnings,omitempty"`
	TransactionID string                `json:"transactionId"`
}

// ValidateInquiryNumber accepts 1 to 35 ASCII letters and digits.
func ValidateInquiryNumber(id string) error {
	if err := validate.Var(id, "required,alphanum,max=35"); err != nil {
		return &ConfigurationError{Reason: fmt.Sprintf("malformed inquiry number %q", id)}
	}
	return nil
}

// Track fetches tracking details for shipmentID and classifies the most recent activity
// of the first package. clientID and clientSecret are only used when opts.BearerToken is
// empty.
func (c *Client) Track(ctx context.Context, shipmentID, clientID, clientSecret string, opts TrackOptions) (*TrackingQueryResult, error) {
	env, err := opts.Environment.normalize()
	if err != nil {
		return nil, err
	}
	if opts.MerchantID == "" && opts.BearerToken == "" {
		return nil, &ConfigurationError{Reason: "either a merchant id or a bearer token is required"}
	}
	if err := ValidateInquiryNumber(shipmentID); err != nil {
		return nil, err
	}
	locale := opts.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	token := opts.BearerToken
	if token == "" {
		cred, err := c.ObtainToken(ctx, opts.MerchantID, clientID, clientSecret, env)
		if err != nil {
			return nil, err
		}
		token = cred.AccessToken
	}

	transID := NewTransactionID(c.rand)
	c.logger.Debug("ups track request", "inquiry_number", shipmentID, "trans_id", transID, "environment", env)

	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("inquiryNumber", shipmentID).
		SetQueryParams(map[string]string{
			"locale":           locale,
			"returnMilestones": strconv.FormatBool(opts.ReturnMilestones),
			"returnSignature":  strconv.FormatBool(opts.ReturnSignature),
		}).
		SetHeaders(map[string]string{
			"transId":        transID,
			"transactionSrc": env.transactionSource(),
			"isCIE":          strconv.FormatBool(env.IsSandbox()),
			"Authorization":  "Bearer " + token,
			"Accept":         "application/json",
		}).
		Get(c.baseURL(env) + trackPath)
	if err != nil {
		return nil, errors.Wrap(err, "ups track request")
	}

	if !resp.IsSuccess() {
		if envl, ok := ParseErrorEnvelope(resp.Body()); ok {
			return nil, &TrackingError{StatusCode: resp.StatusCode(), Status: resp.Status(), Details: envl.Errors}
		}
		return nil, protocolError(resp, "", nil)
	}

	raw := resp.Body()
	var shape trackingShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, protocolError(resp, "malformed tracking response", err)
	}
	if err := validate.Struct(shape); err != nil {
		return nil, protocolError(resp, "unexpected tracking response shape", err)
	}
	var body TrackingResponse
	if err := decodeLenient(raw, &body); err != nil {
		return nil, protocolError(resp, "malformed tracking response", err)
	}

	var warnings []ErrorDetail
	for _, s := range body.TrackResponse.Shipment {
		for _, w := range s.Warnings {
			c.logger.Warn("ups shipment warning", "inquiry_number", s.InquiryNumber, "code", w.Code, "message", w.Message)
			warnings = append(warnings, w)
		}
	}

	return &TrackingQueryResult{
		RawResponse:   append(json.RawMessage(nil), raw...),
		TrackResponse: *body.TrackResponse,
		LastStatus:    Classify(LatestStatusCode(body.TrackResponse)),
		Warnings:      warnings,
		TransactionID: transID,
	}, nil
}

// LatestStatusCode returns the status code of the first activity of the first package
// of the first shipment, or "" when there is none. UPS lists activity newest first.
func LatestStatusCode(tr *TrackResponse) string {
	if tr == nil || len(tr.Shipment) == 0 || len(tr.Shipment[0].Package) == 0 {
		return ""
	}
	acts := tr.Shipment[0].Package[0].Activity
	if len(acts) == 0 || acts[0].Status == nil {
		return ""
	}
	return acts[0].Status.StatusCode
}
