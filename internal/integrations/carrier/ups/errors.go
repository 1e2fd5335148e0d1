package ups

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorDetail is one entry of a UPS error envelope. UPS uses the same shape for
// shipment warnings.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope is the body UPS sends with rejected requests: {"errors":[{code,message}]}.
type ErrorEnvelope struct {
	Errors []ErrorDetail `json:"errors"`
}

type rawErrorDetail struct {
	Code    *string `json:"code" validate:"required"`
	Message *string `json:"message" validate:"required"`
}

type rawErrorEnvelope struct {
	Errors   []rawErrorDetail `json:"errors"`
	Response *struct {
		Errors []rawErrorDetail `json:"errors"`
	} `json:"response"`
}

// ParseErrorEnvelope reports whether body is a well-formed error envelope: a non-empty
// errors array whose elements all carry string code and message. The envelope is
// accepted at the top level and nested under "response", which is how the live API
// wraps it.
func ParseErrorEnvelope(body []byte) (ErrorEnvelope, bool) {
	var raw rawErrorEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return ErrorEnvelope{}, false
	}
	if env, ok := envelopeFrom(raw.Errors); ok {
		return env, true
	}
	if raw.Response != nil {
		return envelopeFrom(raw.Response.Errors)
	}
	return ErrorEnvelope{}, false
}

func envelopeFrom(details []rawErrorDetail) (ErrorEnvelope, bool) {
	if err := validate.Var(details, "required,min=1,dive"); err != nil {
		return ErrorEnvelope{}, false
	}
	env := ErrorEnvelope{Errors: make([]ErrorDetail, 0, len(details))}
	for _, d := range details {
		env.Errors = append(env.Errors, ErrorDetail{Code: *d.Code, Message: *d.Message})
	}
	return env, true
}

// Message joins the messages of all entries.
func (e ErrorEnvelope) Message() string {
	return joinMessages(e.Errors)
}

func joinMessages(details []ErrorDetail) string {
	msgs := make([]string, 0, len(details))
	for _, d := range details {
		msgs = append(msgs, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// ConfigurationError is returned before any network call when the caller's input
// cannot produce a valid request.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "ups: " + e.Reason
}

// AuthenticationError is returned when the token endpoint rejects the credentials.
// Details is empty when the response carried no recognizable error envelope.
type AuthenticationError struct {
	StatusCode int
	Status     string
	Details    []ErrorDetail
}

func (e *AuthenticationError) Error() string {
	if len(e.Details) > 0 {
		return "ups: authentication failed: " + joinMessages(e.Details)
	}
	return "ups: authentication failed: " + e.Status
}

// TrackingError is returned when the tracking endpoint rejects the request with an
// error envelope, e.g. for an unknown inquiry number.
type TrackingError struct {
	StatusCode int
	Status     string
	Details    []ErrorDetail
}

func (e *TrackingError) Error() string {
	return "ups: tracking request failed: " + joinMessages(e.Details)
}

// ProtocolError is returned when a response cannot be interpreted: a success body that
// does not match the expected shape, or a failure status without an error envelope.
type ProtocolError struct {
	StatusCode int
	Status     string
	Reason     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := "ups: invalid response from server"
	if e.Status != "" {
		msg += fmt.Sprintf(" (%s)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }
